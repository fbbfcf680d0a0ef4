package notification

import (
	"context"
	"fmt"

	awsclient "codavert-workers/internal/common/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSSender publishes transactional SMS through Amazon SNS.
type SNSSender struct {
	client   awsclient.SNSAPI
	senderID string
}

func NewSNSSender(client awsclient.SNSAPI, senderID string) *SNSSender {
	return &SNSSender{client: client, senderID: senderID}
}

func (s *SNSSender) SendSMS(ctx context.Context, phone, text string) error {
	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(text),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
