package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// ApprovalConfig holds approval pipeline configuration
type ApprovalConfig struct {
	SupervisorEscalationHours int           `mapstructure:"supervisor_escalation_hours"`
	FinanceEscalationHours    int           `mapstructure:"finance_escalation_hours"`
	ExecutivePositions        []string      `mapstructure:"executive_positions"`
	FinancePositions          []string      `mapstructure:"finance_positions"`
	EscalationCronSpec        string        `mapstructure:"escalation_cron_spec"`
	EscalationBatchSize       int           `mapstructure:"escalation_batch_size"`
	EscalationScanTimeout     time.Duration `mapstructure:"escalation_scan_timeout"`
}

// NotifyConfig holds outbound notification configuration
type NotifyConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/approval.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Approval defaults
	viper.SetDefault("approval.supervisor_escalation_hours", 48)
	viper.SetDefault("approval.finance_escalation_hours", 72)
	viper.SetDefault("approval.executive_positions", []string{
		"executive", "director", "regional manager", "ceo", "cfo", "coo", "cto", "president",
	})
	viper.SetDefault("approval.finance_positions", []string{
		"finance", "controller", "accountant",
	})
	viper.SetDefault("approval.escalation_cron_spec", "@hourly")
	viper.SetDefault("approval.escalation_batch_size", 100)
	viper.SetDefault("approval.escalation_scan_timeout", 5*time.Minute)

	// Notify defaults
	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.timeout", 10*time.Second)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("notify.enabled", "NOTIFY_ENABLED")
	viper.BindEnv("notify.webhook_url", "NOTIFY_WEBHOOK_URL")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Approval.SupervisorEscalationHours <= 0 {
		return fmt.Errorf("approval.supervisor_escalation_hours must be positive")
	}
	if c.Approval.FinanceEscalationHours <= 0 {
		return fmt.Errorf("approval.finance_escalation_hours must be positive")
	}
	if c.Notify.Enabled && c.Notify.WebhookURL == "" {
		return fmt.Errorf("notify.webhook_url is required when notify.enabled is true")
	}
	return nil
}
