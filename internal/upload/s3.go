package upload

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds the configuration for the S3 staging provider.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	KeyPrefix       string // Optional: object key prefix, default "staging"
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Provider stages images as public-read objects in an S3 bucket.
// Objects are input staging for the generation backend, not persisted
// artifacts; bucket lifecycle rules are expected to expire them.
type S3Provider struct {
	client    *s3.Client
	bucket    string
	region    string
	keyPrefix string
}

// NewS3Provider creates an S3 staging provider.
func NewS3Provider(cfg S3Config) (*S3Provider, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("upload: load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "staging"
	}

	return &S3Provider{
		client:    s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		keyPrefix: keyPrefix,
	}, nil
}

// Name identifies the provider.
func (p *S3Provider) Name() string {
	return "s3"
}

// Enabled reports whether the provider has a target bucket.
func (p *S3Provider) Enabled() bool {
	return p.bucket != "" && p.region != ""
}

// Upload puts the image into the bucket and returns its public URL.
func (p *S3Provider) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".png"
	}
	key := fmt.Sprintf("%s/%s%s", p.keyPrefix, uuid.NewString(), ext)

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeForExt(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("upload: put object: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key), nil
}

// contentTypeForExt maps the common image extensions to MIME types.
func contentTypeForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// Compile-time check that S3Provider implements Provider.
var _ Provider = (*S3Provider)(nil)
