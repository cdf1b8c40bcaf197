// Package s3 хранит фотографии подтверждений в бакете S3.
package s3

import (
	"bytes"
	"context"
	"fmt"

	appconfig "github.com/keeeeeey/DevDay/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type PhotoStore struct {
	client *s3.Client
	bucket string
	region string
}

func New(ctx context.Context, cfg *appconfig.Config) (*PhotoStore, error) {
	const op = "storage.s3.New"

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.S3.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKey,
			cfg.S3.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PhotoStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3.Bucket,
		region: cfg.S3.Region,
	}, nil
}

// * Upload кладет объект в бакет и возвращает публичный URL.
func (p *PhotoStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	const op = "storage.s3.Upload"

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key), nil
}
