// Package awssts resolves the AWS identity behind the loaded credentials.
package awssts

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// NewService creates an STS-backed identity service.
func NewService(cfg aws.Config) Service {
	return &service{client: sts.NewFromConfig(cfg)}
}

func (s *service) CallerARN(ctx context.Context) (string, error) {
	out, err := s.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	if out.Arn == nil {
		return "", errors.New("get caller identity: empty ARN")
	}
	return aws.ToString(out.Arn), nil
}
