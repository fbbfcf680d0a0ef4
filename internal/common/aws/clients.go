// Package aws builds the SES and SNS clients used for candidate notifications.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SESAPI is the subset of the SES client the mail transport uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SNSAPI is the subset of the SNS client used for SMS delivery.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Clients shares one resolved AWS config between the mail and SMS senders.
type Clients struct {
	cfg aws.Config
}

// Load resolves the default credential chain for region. Credentials are
// not fetched until the first request.
func Load(ctx context.Context, region string) (*Clients, error) {
	if region == "" {
		return nil, fmt.Errorf("aws region is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &Clients{cfg: cfg}, nil
}

func (c *Clients) Region() string { return c.cfg.Region }

func (c *Clients) SES() *ses.Client { return ses.NewFromConfig(c.cfg) }

func (c *Clients) SNS() *sns.Client { return sns.NewFromConfig(c.cfg) }
