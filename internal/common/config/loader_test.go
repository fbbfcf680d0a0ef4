package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: codavert
    user: codavert
workers:
  submit-application:
    enabled: true
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "local", cfg.Lifecycle.LockBackend)
	assert.Equal(t, "postgres", cfg.Sequence.Backend)
	assert.Equal(t, "1234", cfg.Provisioning.DefaultPassword)
	assert.Equal(t, 10, cfg.Provisioning.BcryptCost)
	assert.Equal(t, 256, cfg.Notifications.QueueSize)
	assert.Equal(t, "log", cfg.Notifications.Transport)
	assert.Equal(t, ":8080", cfg.Server.Address)

	worker := cfg.Workers["submit-application"]
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 30000, worker.Timeout)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: codavert
    user: codavert
    password: ${TEST_PG_PASSWORD}
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "redis lock without redis",
			body:    minimalConfig + "lifecycle:\n  lock_backend: redis\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "unknown sequence backend",
			body:    minimalConfig + "sequence:\n  backend: etcd\n",
			wantErr: "sequence.backend",
		},
		{
			name:    "ses without region",
			body:    minimalConfig + "notifications:\n  enabled: true\n  from_email: hr@codavert.dev\n  transport: ses\n",
			wantErr: "integrations.aws.region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AWS_REGION", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "hr", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=hr sslmode=disable", p.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{}}
	wc := GetWorkerConfig(cfg, "allocate-document-number")
	assert.True(t, wc.Enabled)
	assert.Equal(t, 5, wc.MaxJobsActive)
}
