package allocatedocumentnumber

import (
	"context"
	"fmt"

	"codavert-workers/internal/common/camunda"
	"codavert-workers/internal/common/config"
	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/observability"
	"codavert-workers/internal/models"
	"codavert-workers/internal/sequence"
	"codavert-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "document.number.allocate"
	WorkerName = "allocate-document-number"
)

type Allocator interface {
	Next(ctx context.Context, kind models.DocumentKind, ownerID int64) (*sequence.Allocation, error)
	Seed(ctx context.Context, kind models.DocumentKind, ownerID int64, existing []string) (int64, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	allocator Allocator
	activity  *registry.Activity
	runner    *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Allocator     Allocator
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}
	if opts.Allocator == nil {
		return nil, fmt.Errorf("%s: sequence allocator is required", WorkerName)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:    workerConfig,
		logger:    log,
		allocator: opts.Allocator,
		activity:  camunda.MustActivity(TaskType),
		runner:    camunda.NewRunner(TaskType, workerConfig.Timeout, log, opts.Observability),
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
	kind, ok := models.ParseDocumentKind(input.DocumentKind)
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown document kind %q", input.DocumentKind))
	}

	if len(input.ExistingNumbers) > 0 {
		if _, err := h.allocator.Seed(ctx, kind, input.OwnerID, input.ExistingNumbers); err != nil {
			return nil, err
		}
	}

	alloc, err := h.allocator.Next(ctx, kind, input.OwnerID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Document number allocated", map[string]interface{}{
		"kind":           kind,
		"ownerId":        input.OwnerID,
		"documentNumber": alloc.Formatted,
	})

	return &Output{DocumentNumber: alloc.Formatted, Sequence: alloc.Value}, nil
}

func (h *Handler) GetTaskType() string { return TaskType }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

func (h *Handler) GetConfig() *Config { return h.config }
