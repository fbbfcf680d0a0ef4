package deleteapplication

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
	TaskType   = "application.delete"
	WorkerName = "delete-application"
)

type Deleter interface {
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	config   *Config
	logger   logger.Logger
	engine   Deleter
	activity *registry.Activity
	runner   *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Engine        Deleter
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("%s: lifecycle engine is required", WorkerName)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:   workerConfig,
		logger:   log,
		engine:   opts.Engine,
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
	if err := h.engine.Delete(ctx, input.ApplicationID); err != nil {
		return nil, err
	}
	return &Output{ApplicationID: input.ApplicationID, Deleted: true}, nil
}

func (h *Handler) GetTaskType() string { return TaskType }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

func (h *Handler) GetConfig() *Config { return h.config }
