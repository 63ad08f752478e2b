package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3ReceiptStore keeps receipts in an S3 bucket under receipts/<order_id>/.
type S3ReceiptStore struct {
	client *s3.Client
	bucket string
}

func NewS3ReceiptStore(ctx context.Context, region, bucket string) (*S3ReceiptStore, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3ReceiptStore{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3ReceiptStore) Save(ctx context.Context, orderID, filename string, r io.Reader) (string, error) {
	ext, err := CheckExtension(filename)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("receipts/%s/%s%s", orderID, strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentTypeForExt(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put receipt: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Presign returns a time-limited download URL for a stored receipt key.
func (s *S3ReceiptStore) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	out, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign receipt: %w", err)
	}
	return out.URL, nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}
