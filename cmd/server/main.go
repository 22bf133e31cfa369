package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/application/port"
	"github.com/expensetrack/approval-engine/internal/application/service"
	"github.com/expensetrack/approval-engine/internal/approval"
	"github.com/expensetrack/approval-engine/internal/config"
	"github.com/expensetrack/approval-engine/internal/infrastructure/external/webhooknotify"
	"github.com/expensetrack/approval-engine/internal/infrastructure/persistence/repository"
	"github.com/expensetrack/approval-engine/internal/infrastructure/persistence/sqlite"
	apihttp "github.com/expensetrack/approval-engine/internal/interfaces/http"
	"github.com/expensetrack/approval-engine/internal/scheduler"
	"github.com/expensetrack/approval-engine/pkg/database"
	"github.com/expensetrack/approval-engine/pkg/logging"
)

func main() {
	// Load .env if present, then configuration
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(logging.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Approval pipeline configuration
	approvalCfg := approval.Config{
		SupervisorEscalationHours: cfg.Approval.SupervisorEscalationHours,
		FinanceEscalationHours:    cfg.Approval.FinanceEscalationHours,
		ExecutivePositions:        cfg.Approval.ExecutivePositions,
		FinancePositions:          cfg.Approval.FinancePositions,
	}

	// Initialize repositories and transaction manager
	txManager := sqlite.NewDB(db, logger)
	reportRepo := repository.NewReportRepository(db, logger)
	employeeRepo := repository.NewEmployeeRepository(db, cfg.Approval.FinancePositions, logger)
	auditLogRepo := repository.NewAuditLogRepository(db, logger)
	revisionNoteRepo := repository.NewRevisionNoteRepository(db, logger)

	// Initialize notifier
	var notifier port.Notifier
	if cfg.Notify.Enabled {
		notifier = webhooknotify.NewNotifier(webhooknotify.Config{
			WebhookURL: cfg.Notify.WebhookURL,
			Timeout:    cfg.Notify.Timeout,
		}, logger)
	} else {
		notifier = webhooknotify.NewNopNotifier(logger)
	}

	// Initialize approval engine
	initializer := approval.NewInitializer(employeeRepo, approvalCfg, logger)
	processor := approval.NewProcessor(employeeRepo, approvalCfg, logger)
	approvalService := service.NewApprovalService(
		reportRepo,
		auditLogRepo,
		revisionNoteRepo,
		employeeRepo,
		txManager,
		notifier,
		initializer,
		processor,
		approvalCfg,
		service.NewZapLogger(logger),
	)

	// Start escalation scanner
	scanner := scheduler.NewEscalationScanner(approvalService, scheduler.Config{
		CronSpec:  cfg.Approval.EscalationCronSpec,
		BatchSize: cfg.Approval.EscalationBatchSize,
		Timeout:   cfg.Approval.EscalationScanTimeout,
	}, logger)
	if err := scanner.Start(); err != nil {
		logger.Fatal("Failed to start escalation scanner", zap.Error(err))
	}

	// Initialize HTTP router
	handlers := apihttp.NewHandlers(approvalService, reportRepo, employeeRepo, service.NewZapLogger(logger))
	router := apihttp.NewRouter(handlers, logger, cfg.Logger.Level == "debug")

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	scanner.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.yaml"
}
