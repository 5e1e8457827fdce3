package awsconfig

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

type service struct{}

// Service loads AWS configuration for artifact publishing.
type Service interface {
	Load(ctx context.Context, region, profile string) (aws.Config, error)
}
