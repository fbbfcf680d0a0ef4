// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Lifecycle     LifecycleConfig         `mapstructure:"lifecycle"`
	Provisioning  ProvisioningConfig      `mapstructure:"provisioning"`
	Sequence      SequenceConfig          `mapstructure:"sequence"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Domain Configuration ---

// LifecycleConfig controls how transitions on one application are serialized.
type LifecycleConfig struct {
	LockBackend string `mapstructure:"lock_backend"` // local | redis
	LockTTL     int    `mapstructure:"lock_ttl"`     // milliseconds
	LockWait    int    `mapstructure:"lock_wait"`    // milliseconds
	// ProtectProvisioned rejects deleting an application whose staff account
	// has already been created.
	ProtectProvisioned bool `mapstructure:"protect_provisioned"`
}

type ProvisioningConfig struct {
	DefaultPassword string `mapstructure:"default_password"`
	BcryptCost      int    `mapstructure:"bcrypt_cost"`
}

type SequenceConfig struct {
	Backend    string `mapstructure:"backend"` // postgres | redis | memory
	MaxRetries int    `mapstructure:"max_retries"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// NotificationConfig holds settings for the notification dispatcher.
type NotificationConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Transport   string `mapstructure:"transport"` // ses | smtp | log
	FromEmail   string `mapstructure:"from_email"`
	FromName    string `mapstructure:"from_name"`
	QueueSize   int    `mapstructure:"queue_size"`
	Workers     int    `mapstructure:"workers"`
	SendTimeout int    `mapstructure:"send_timeout"` // milliseconds
	CompanyName string `mapstructure:"company_name"`
	PortalURL   string `mapstructure:"portal_url"`
	SMS         struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
}

// IntegrationConfig holds settings for external services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`

	SMTP SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
