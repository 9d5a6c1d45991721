// Package aws builds the SES and SNS clients used for outbound delivery.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Clients bundles the provider clients for the two delivery channels.
type Clients struct {
	SES *ses.Client
	SNS *sns.Client
}

// NewClients loads the default AWS credential chain for the given region and
// constructs both channel clients from the same config.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &Clients{
		SES: ses.NewFromConfig(cfg),
		SNS: sns.NewFromConfig(cfg),
	}, nil
}
