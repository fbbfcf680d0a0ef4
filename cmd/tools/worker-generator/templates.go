package main

var templates = map[string]string{
	"config.go":  configTemplate,
	"models.go":  modelsTemplate,
	"handler.go": handlerTemplate,
}

const configTemplate = `package {{ .PackageName }}

import (
	"fmt"
	"time"

	"codavert-workers/internal/common/config"
)

type Config struct {
	Enabled       bool          ` + "`mapstructure:\"enabled\"`" + `
	MaxJobsActive int           ` + "`mapstructure:\"max_jobs_active\"`" + `
	Timeout       time.Duration ` + "`mapstructure:\"timeout\"`" + `
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: {{ .MaxJobsActive }},
		Timeout:       {{ durationLiteral .Timeout }},
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}
	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	workerCfg := config.GetWorkerConfig(appConfig, WorkerName)
	cfg.Enabled = workerCfg.Enabled
	if workerCfg.MaxJobsActive > 0 {
		cfg.MaxJobsActive = workerCfg.MaxJobsActive
	}
	if workerCfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(workerCfg.Timeout)
	}
	return cfg
}
`

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .GoType }} {{ .JSONTag }}
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .Name }} {{ .GoType }} {{ .JSONTag }}
{{- end }}
}
`

const handlerTemplate = `// Package {{ .PackageName }} implements the {{ .Name }} worker.
// {{ .Description }}
package {{ .PackageName }}

import (
	"context"
	"fmt"

	"codavert-workers/internal/common/camunda"
	"codavert-workers/internal/common/config"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/observability"
	"codavert-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "{{ .TaskType }}"
	WorkerName = "{{ .WorkerName }}"
)

type Service interface {
	Execute(ctx context.Context, input *Input) (*Output, error)
}

type Handler struct {
	config   *Config
	logger   logger.Logger
	service  Service
	activity *registry.Activity
	runner   *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Service       Service
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("%s: service is required", WorkerName)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:   workerConfig,
		logger:   log,
		service:  opts.Service,
		activity: camunda.MustActivity(TaskType),
		runner:   camunda.NewRunner(TaskType, workerConfig.Timeout, log, opts.Observability),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, func(ctx context.Context) (interface{}, error) {
		input, err := h.parseInput(job)
		if err != nil {
			return nil, err
		}
		return h.Execute(ctx, input)
	})
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(job, h.activity, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) GetTaskType() string { return TaskType }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

func (h *Handler) GetConfig() *Config { return h.config }
`
