package notification

import (
	"context"
	"fmt"
	"net/mail"

	awsclient "codavert-workers/internal/common/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESMailer sends through Amazon SES. Messages with an attachment go out
// as raw MIME.
type SESMailer struct {
	client awsclient.SESAPI
}

func NewSESMailer(client awsclient.SESAPI) *SESMailer {
	return &SESMailer{client: client}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	if msg.Attachment != nil {
		return m.sendRaw(ctx, msg)
	}

	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(source(msg)),
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

func (m *SESMailer) sendRaw(ctx context.Context, msg Message) error {
	raw, err := buildMIME(msg)
	if err != nil {
		return fmt.Errorf("build mime message: %w", err)
	}
	_, err = m.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: raw},
		Destinations: []string{msg.To},
		Source:       aws.String(source(msg)),
	})
	if err != nil {
		return fmt.Errorf("ses send raw email: %w", err)
	}
	return nil
}

func (m *SESMailer) Name() string { return "ses" }

func source(msg Message) string {
	return (&mail.Address{Name: msg.FromName, Address: msg.From}).String()
}
