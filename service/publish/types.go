package publish

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mmo-fsw/maxbuild/model"
	awssts "github.com/mmo-fsw/maxbuild/service/sts"
)

// ErrNoBundle is returned when a program has no dist bundles to upload.
var ErrNoBundle = errors.New("no dist bundle: run the dist target first")

// S3ClientAPI is the subset of the S3 client used for uploads.
type S3ClientAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options selects the upload destination.
type Options struct {
	Bucket string
	Prefix string
}

// Upload records one uploaded bundle.
type Upload struct {
	Program string `json:"program"`
	File    string `json:"file"`
	Key     string `json:"key"`
	Size    int64  `json:"size"`
	SHA256  string `json:"sha256"`
	ETag    string `json:"etag,omitempty"`
}

// Result is the outcome of a publish run.
type Result struct {
	Bucket   string   `json:"bucket"`
	Identity string   `json:"identity,omitempty"`
	Uploads  []Upload `json:"uploads"`
}

type service struct {
	client   S3ClientAPI
	identity awssts.Service
}

// Service uploads dist bundles to an S3 bucket.
type Service interface {
	Publish(ctx context.Context, project *model.Project, progs []model.Program, opts Options) (*Result, error)
}
