// Package awsconfig loads AWS credentials for publishing bundles, prompting
// for an MFA code when the selected profile assumes a role that requires one.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// loadSharedConfigProfile is a variable to allow mocking in tests.
var loadSharedConfigProfile = config.LoadSharedConfigProfile

// fallbackSTSRegion is used for AssumeRole when neither the flag nor the
// profile names a region.
const fallbackSTSRegion = "us-east-1"

// NewService creates an AWS configuration service.
func NewService() Service {
	return &service{}
}

func (s *service) Load(ctx context.Context, region, profile string) (aws.Config, error) {
	if profile != "" {
		shared, err := loadSharedConfigProfile(ctx, profile)
		if err == nil && shared.RoleARN != "" && shared.MFASerial != "" {
			return s.loadWithMFA(ctx, region, shared)
		}
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	opts = append(opts, config.WithAssumeRoleCredentialOptions(func(o *stscreds.AssumeRoleOptions) {
		o.TokenProvider = stscreds.StdinTokenProvider
	}))

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return cfg, retrieve(ctx, cfg)
}

// loadWithMFA assumes the profile's role with credentials from its source
// profile, since LoadDefaultConfig does not sign with the source credentials
// for MFA-protected roles.
func (s *service) loadWithMFA(ctx context.Context, region string, shared config.SharedConfig) (aws.Config, error) {
	source := shared.SourceProfileName
	if source == "" {
		source = "default"
	}
	stsRegion := region
	if stsRegion == "" {
		stsRegion = shared.Region
	}
	if stsRegion == "" {
		stsRegion = fallbackSTSRegion
	}

	base, err := config.LoadDefaultConfig(ctx, config.WithSharedConfigProfile(source), config.WithRegion(stsRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load source profile %s: %w", source, err)
	}

	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(base), shared.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.SerialNumber = aws.String(shared.MFASerial)
		o.TokenProvider = stscreds.StdinTokenProvider
	})

	opts := []func(*config.LoadOptions) error{config.WithCredentialsProvider(aws.NewCredentialsCache(provider))}
	if region == "" {
		region = shared.Region
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load config for role %s: %w", shared.RoleARN, err)
	}
	return cfg, retrieve(ctx, cfg)
}

// retrieve resolves credentials up front so an MFA prompt happens before the
// upload spinner starts.
func retrieve(ctx context.Context, cfg aws.Config) error {
	if cfg.Credentials == nil {
		return nil
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("failed to retrieve credentials: %w", err)
	}
	return nil
}
