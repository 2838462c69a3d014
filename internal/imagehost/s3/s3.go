package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vbonduro/recipecam/internal/imagehost"
	"github.com/vbonduro/recipecam/internal/remote"
)

const keyPrefix = "captures"

type Options struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// Uploader writes captures to an S3-compatible bucket (AWS, R2, MinIO) and
// returns their public URL.
type Uploader struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewUploader(ctx context.Context, opts Options) (*Uploader, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
		// Retries are owned by the capture cycle.
		o.RetryMaxAttempts = 1
	})

	return &Uploader{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
	}, nil
}

func (u *Uploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	key := imagehost.ObjectKey(keyPrefix, mimeType)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object: %w", classify(err))
	}

	return u.baseURL + "/" + key, nil
}

// classify exposes the HTTP status of a failed S3 call as a remote.StatusError.
func classify(err error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return &remote.StatusError{Service: "s3", Code: respErr.HTTPStatusCode(), Body: respErr.Error()}
	}
	return err
}
