package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// Config holds S3 archive configuration
type Config struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	Bucket             string
	Prefix             string

	// Endpoint overrides the S3 endpoint (MinIO, tests); path-style addressing is used when set
	Endpoint string
}

// Service archives documents in an S3 bucket
type Service struct {
	s3Client *s3.Client
	bucket   string
	prefix   string
}

// NewService creates an S3 archive service
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "contracts"
	}

	log.Printf("✅ S3 archive configured (bucket: %s, prefix: %s)", cfg.Bucket, prefix)
	return &Service{
		s3Client: s3Client,
		bucket:   cfg.Bucket,
		prefix:   prefix,
	}, nil
}

// ContractKey builds the object key for a contract PDF: {prefix}/{subscriptionID}/{uuid}.pdf
func (s *Service) ContractKey(subscriptionID int) string {
	return path.Join(s.prefix, fmt.Sprintf("%d", subscriptionID), uuid.NewString()+".pdf")
}

// Put uploads an object and returns its key
func (s *Service) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String(contentType),
		ContentLength:        aws.Int64(int64(len(body))),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

// Get downloads an object
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}
	return data, nil
}
