package sendcandidateemail

import (
	"context"
	"encoding/base64"
	"fmt"

	"codavert-workers/internal/common/camunda"
	"codavert-workers/internal/common/config"
	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/observability"
	"codavert-workers/internal/models"
	"codavert-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "application.email.send"
	WorkerName = "send-candidate-email"
)

type EmailSender interface {
	SendOfferLetter(ctx context.Context, id int64, attachment *models.Attachment) (bool, error)
	SendInterviewInvitation(ctx context.Context, id int64, details models.InterviewDetails) (bool, error)
	SendRejection(ctx context.Context, id int64, notes string) (bool, error)
}

type Handler struct {
	config   *Config
	logger   logger.Logger
	engine   EmailSender
	activity *registry.Activity
	runner   *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Engine        EmailSender
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

// Execute queues the email. Delivery happens in the background, so a
// queued=false result means the notification queue was full or closed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var (
		queued bool
		err    error
	)
	switch input.EmailType {
	case EmailOfferLetter:
		var attachment *models.Attachment
		attachment, err = decodeAttachment(input.Attachment)
		if err != nil {
			return nil, err
		}
		queued, err = h.engine.SendOfferLetter(ctx, input.ApplicationID, attachment)
	case EmailInterviewInvitation:
		if input.Interview == nil {
			return nil, errors.NewValidationError("interview details are required")
		}
		queued, err = h.engine.SendInterviewInvitation(ctx, input.ApplicationID, *input.Interview)
	case EmailRejection:
		queued, err = h.engine.SendRejection(ctx, input.ApplicationID, input.Notes)
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown email type %q", input.EmailType))
	}
	if err != nil {
		return nil, err
	}

	if !queued {
		h.logger.Warn("Candidate email was not queued", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"emailType":     input.EmailType,
		})
	}
	return &Output{ApplicationID: input.ApplicationID, EmailType: input.EmailType, Queued: queued}, nil
}

func decodeAttachment(in *AttachmentInput) (*models.Attachment, error) {
	if in == nil {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(in.Data)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("attachment %q is not valid base64", in.Filename))
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &models.Attachment{Filename: in.Filename, ContentType: contentType, Data: data}, nil
}

func (h *Handler) GetTaskType() string { return TaskType }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

func (h *Handler) GetConfig() *Config { return h.config }
