package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy"
)

// S3GetObjectAPI is the subset of the S3 client the source needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the grid from an S3 or S3-compatible object. The object
// ETag is the grid version and is sent back as IfNoneMatch.
type S3Source struct {
	cfg    config.S3PolicyConfig
	client S3GetObjectAPI

	mu   sync.Mutex
	etag string
}

// NewS3Source builds a client from the default AWS credential chain, with
// cfg.Region and cfg.Endpoint applied on top.
func NewS3Source(ctx context.Context, cfg config.S3PolicyConfig) (*S3Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3SourceWithClient(cfg, client), nil
}

// NewS3SourceWithClient creates a source over an existing client.
func NewS3SourceWithClient(cfg config.S3PolicyConfig, client S3GetObjectAPI) *S3Source {
	return &S3Source{cfg: cfg, client: client}
}

// Name implements Source.
func (s *S3Source) Name() string { return "s3" }

// Describe implements Source.
func (s *S3Source) Describe() string { return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, s.cfg.Key) }

// Reset implements Resetter.
func (s *S3Source) Reset() {
	s.mu.Lock()
	s.etag = ""
	s.mu.Unlock()
}

// Fetch implements Source.
func (s *S3Source) Fetch(ctx context.Context) (*Snapshot, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	}

	s.mu.Lock()
	if s.etag != "" {
		input.IfNoneMatch = aws.String(s.etag)
	}
	s.mu.Unlock()

	out, err := s.client.GetObject(ctx, input)
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotModified {
			return nil, ErrNotModified
		}
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("grid object %s does not exist: %w", s.Describe(), err)
		}
		return nil, fmt.Errorf("get grid object %s: %w", s.Describe(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxGridBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read grid object: %w", err)
	}
	if len(data) > maxGridBytes {
		return nil, fmt.Errorf("grid document exceeds %d bytes", maxGridBytes)
	}

	etag := aws.ToString(out.ETag)
	s.mu.Lock()
	s.etag = etag
	s.mu.Unlock()

	format := policy.FormatFromPath(s.cfg.Key)
	if ct := strings.ToLower(aws.ToString(out.ContentType)); strings.Contains(ct, "yaml") {
		format = policy.FormatYAML
	}

	return &Snapshot{
		Data:      data,
		Format:    format,
		Version:   strings.Trim(etag, `"`),
		FetchedAt: time.Now().UTC(),
	}, nil
}
