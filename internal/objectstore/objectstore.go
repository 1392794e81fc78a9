// Package objectstore uploads rendered proposals to an S3 compatible bucket
// (AWS S3, Cloudflare R2, MinIO).
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotConfigured is returned by New when no bucket is set.
var ErrNotConfigured = errors.New("object storage is not configured")

// Config describes the bucket.
type Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	Prefix          string
}

// putObjectAPI is the subset of the S3 client used here.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Uploader stores PDFs and returns their public URLs.
type Uploader struct {
	client putObjectAPI
	cfg    Config
}

// New builds an uploader from cfg. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Uploader{client: client, cfg: cfg}, nil
}

// Key returns the object key for a quote id.
func (u *Uploader) Key(quoteID string) string {
	name := path.Base("/" + quoteID)
	if name == "/" || name == "." {
		name = "proposta"
	}
	return path.Join(strings.Trim(u.cfg.Prefix, "/"), name+".pdf")
}

// PublicURL returns where key can be downloaded.
func (u *Uploader) PublicURL(key string) string {
	base := strings.TrimRight(u.cfg.PublicURL, "/")
	if base == "" {
		base = strings.TrimRight(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket
	}
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segments, "/")
}

// UploadPDF stores pdf for quoteID and returns its public URL.
func (u *Uploader) UploadPDF(ctx context.Context, quoteID string, pdf []byte) (string, error) {
	key := u.Key(quoteID)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return u.PublicURL(key), nil
}

// Delete removes the PDF stored for quoteID.
func (u *Uploader) Delete(ctx context.Context, quoteID string) error {
	key := u.Key(quoteID)
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
