package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/expensetrack/approval-engine/internal/application/service"
)

// EscalationScanner periodically fires system reminders for reports whose
// escalation deadline has passed. Due dates themselves are advisory; this is
// the only component that acts on them.
type EscalationScanner struct {
	approvals service.ApprovalService
	spec      string
	batchSize int
	timeout   time.Duration
	cron      *cron.Cron
	logger    *zap.Logger
}

// Config holds scanner configuration
type Config struct {
	CronSpec  string
	BatchSize int
	Timeout   time.Duration
}

// NewEscalationScanner creates a scanner; Start must be called to schedule it
func NewEscalationScanner(approvals service.ApprovalService, cfg Config, logger *zap.Logger) *EscalationScanner {
	spec := cfg.CronSpec
	if spec == "" {
		spec = "@hourly"
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &EscalationScanner{
		approvals: approvals,
		spec:      spec,
		batchSize: batch,
		timeout:   timeout,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start schedules the scan and starts the cron runner
func (s *EscalationScanner) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.scan); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Escalation scanner started", zap.String("spec", s.spec))
	return nil
}

// Stop stops the cron runner and waits for a running scan to finish
func (s *EscalationScanner) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Escalation scanner stopped")
}

func (s *EscalationScanner) scan() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reminded, err := s.approvals.RemindOverdue(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Escalation scan failed", zap.Error(err))
		return
	}
	if reminded > 0 {
		s.logger.Info("Escalation reminders sent", zap.Int("count", reminded))
	}
}
