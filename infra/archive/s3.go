// Package archive stores simulation results as JSON objects in S3 compatible
// object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kilianp07/fleetops/core/model"
)

// Config selects the bucket and key layout. Credentials come from the usual
// AWS environment variables and shared config files.
type Config struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	Region string `json:"region"`
	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint     string `json:"endpoint"`
	UsePathStyle bool   `json:"use_path_style"`
	Encrypt      bool   `json:"encrypt"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("archive: bucket required")
	}
	return nil
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes results to keys like
//
//	<prefix>/simulations/YYYY/MM/DD/<resultID>.json
type S3Archiver struct {
	bucket   string
	prefix   string
	encrypt  bool
	uploader uploader
}

// NewS3Archiver loads the default AWS configuration and creates an uploader.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Archiver(manager.NewUploader(client), cfg), nil
}

func newS3Archiver(up uploader, cfg Config) *S3Archiver {
	return &S3Archiver{bucket: cfg.Bucket, prefix: cfg.Prefix, encrypt: cfg.Encrypt, uploader: up}
}

func (s *S3Archiver) Name() string { return "s3" }

// ObjectKey returns the key a result is stored under, partitioned by its
// creation date in UTC.
func (s *S3Archiver) ObjectKey(res model.SimulationResult) string {
	ts := res.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	year, month, day := ts.UTC().Date()
	return path.Join(s.prefix, "simulations",
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		res.ID+".json",
	)
}

// Notify uploads the result JSON.
func (s *S3Archiver) Notify(ctx context.Context, res model.SimulationResult) error {
	if res.ID == "" {
		return fmt.Errorf("archive: result has no id")
	}
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(res)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}
	if s.encrypt {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	if _, err := s.uploader.Upload(ctx, in); err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}
