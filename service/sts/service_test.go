package awssts

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSTS struct {
	out *sts.GetCallerIdentityOutput
	err error
}

func (m *mockSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.out, m.err
}

func TestCallerARN(t *testing.T) {
	svc := &service{client: &mockSTS{out: &sts.GetCallerIdentityOutput{Arn: aws.String("arn:aws:iam::111111111111:user/release-bot")}}}
	arn, err := svc.CallerARN(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::111111111111:user/release-bot", arn)

	svc = &service{client: &mockSTS{out: &sts.GetCallerIdentityOutput{}}}
	_, err = svc.CallerARN(context.Background())
	assert.Error(t, err)

	svc = &service{client: &mockSTS{err: errors.New("expired token")}}
	_, err = svc.CallerARN(context.Background())
	assert.ErrorContains(t, err, "expired token")
}
