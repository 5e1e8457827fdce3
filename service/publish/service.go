// Package publish uploads dist bundles to S3 for fleet deployment.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/archive"
	awssts "github.com/mmo-fsw/maxbuild/service/sts"
)

const contentType = "application/x-xz"

// NewService creates a publish service from loaded AWS configuration.
func NewService(cfg aws.Config) Service {
	return &service{client: s3.NewFromConfig(cfg), identity: awssts.NewService(cfg)}
}

func (s *service) Publish(ctx context.Context, project *model.Project, progs []model.Program, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("bucket is required")
	}

	type pending struct {
		prog model.Program
		file string
	}
	var files []pending
	for _, prog := range progs {
		bundles, err := archive.LatestBundles(project, prog)
		if err != nil {
			return nil, err
		}
		if len(bundles) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoBundle, prog.Name)
		}
		for _, b := range bundles {
			files = append(files, pending{prog: prog, file: b})
		}
	}

	res := &Result{Bucket: opts.Bucket}
	if s.identity != nil {
		arn, err := s.identity.CallerARN(ctx)
		if err != nil {
			return nil, err
		}
		res.Identity = arn
	}

	for _, p := range files {
		up, err := s.upload(ctx, opts, p.prog, p.file)
		if err != nil {
			return res, err
		}
		res.Uploads = append(res.Uploads, *up)
	}
	return res, nil
}

// ObjectKey is <prefix>/<program>/<file>.
func ObjectKey(prefix, program, file string) string {
	return path.Join(strings.Trim(prefix, "/"), program, filepath.Base(file))
}

func (s *service) upload(ctx context.Context, opts Options, prog model.Program, file string) (*Upload, error) {
	size, sum, err := digest(file)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	key := ObjectKey(opts.Prefix, prog.Name, file)
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(opts.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"program": prog.Name,
			"sha256":  sum,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload s3://%s/%s: %w", opts.Bucket, key, err)
	}
	return &Upload{
		Program: prog.Name,
		File:    file,
		Key:     key,
		Size:    size,
		SHA256:  sum,
		ETag:    strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

func digest(file string) (int64, string, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
