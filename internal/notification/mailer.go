package notification

import (
	"context"

	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/models"
)

// Message is one outgoing email. Either body may be empty.
type Message struct {
	To         string
	From       string
	FromName   string
	Subject    string
	HTML       string
	Text       string
	Attachment *models.Attachment
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// SMSSender delivers a short text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// LogMailer only logs. It is the development transport.
type LogMailer struct {
	logger logger.Logger
}

func NewLogMailer(log logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	fields := map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML != "",
	}
	if msg.Attachment != nil {
		fields["attachment"] = msg.Attachment.Filename
		fields["attachmentBytes"] = len(msg.Attachment.Data)
	}
	m.logger.Info("Email (log transport)", fields)
	return nil
}

func (m *LogMailer) Name() string { return "log" }
