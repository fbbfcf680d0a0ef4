// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// DATABASE_POSTGRES_HOST overrides database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are conventionally provided through
// plain environment variables.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Integrations.SMTP.Password == "" {
		cfg.Integrations.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	}
	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = os.Getenv("AWS_REGION")
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "codavert-workers"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Lifecycle.LockBackend == "" {
		cfg.Lifecycle.LockBackend = "local"
	}
	if cfg.Lifecycle.LockTTL == 0 {
		cfg.Lifecycle.LockTTL = 15000
	}
	if cfg.Lifecycle.LockWait == 0 {
		cfg.Lifecycle.LockWait = 5000
	}

	// The default password is weak on purpose; accounts are flagged for
	// rotation on first login.
	if cfg.Provisioning.DefaultPassword == "" {
		cfg.Provisioning.DefaultPassword = "1234"
	}
	if cfg.Provisioning.BcryptCost == 0 {
		cfg.Provisioning.BcryptCost = 10
	}

	if cfg.Sequence.Backend == "" {
		cfg.Sequence.Backend = "postgres"
	}
	if cfg.Sequence.MaxRetries == 0 {
		cfg.Sequence.MaxRetries = 5
	}
	if cfg.Sequence.KeyPrefix == "" {
		cfg.Sequence.KeyPrefix = "sequence"
	}

	if cfg.Notifications.Transport == "" {
		cfg.Notifications.Transport = "log"
	}
	if cfg.Notifications.QueueSize == 0 {
		cfg.Notifications.QueueSize = 256
	}
	if cfg.Notifications.Workers == 0 {
		cfg.Notifications.Workers = 4
	}
	if cfg.Notifications.SendTimeout == 0 {
		cfg.Notifications.SendTimeout = 15000
	}
	if cfg.Notifications.CompanyName == "" {
		cfg.Notifications.CompanyName = "Codavert"
	}
	if cfg.Integrations.SMTP.Port == 0 {
		cfg.Integrations.SMTP.Port = 587
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	switch cfg.Lifecycle.LockBackend {
	case "local":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for lifecycle.lock_backend=redis")
		}
	default:
		return fmt.Errorf("lifecycle.lock_backend must be local or redis, got %q", cfg.Lifecycle.LockBackend)
	}

	switch cfg.Sequence.Backend {
	case "postgres", "memory":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for sequence.backend=redis")
		}
	default:
		return fmt.Errorf("sequence.backend must be postgres, redis or memory, got %q", cfg.Sequence.Backend)
	}

	if cfg.Notifications.Enabled {
		if cfg.Notifications.FromEmail == "" {
			return fmt.Errorf("notifications.from_email is required when notifications are enabled")
		}
		switch cfg.Notifications.Transport {
		case "log":
		case "ses":
			if cfg.Integrations.AWS.Region == "" {
				return fmt.Errorf("integrations.aws.region is required for the ses transport")
			}
		case "smtp":
			if cfg.Integrations.SMTP.Host == "" {
				return fmt.Errorf("integrations.smtp.host is required for the smtp transport")
			}
		default:
			return fmt.Errorf("notifications.transport must be ses, smtp or log, got %q", cfg.Notifications.Transport)
		}
	}

	if cfg.Notifications.SMS.Enabled && cfg.Integrations.AWS.Region == "" {
		return fmt.Errorf("integrations.aws.region is required when SMS is enabled")
	}

	if cfg.Provisioning.BcryptCost < 4 || cfg.Provisioning.BcryptCost > 31 {
		return fmt.Errorf("provisioning.bcrypt_cost must be between 4 and 31")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}
