package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config points the host at an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL prefixes object keys in returned URLs. Defaults to Endpoint/Bucket.
	PublicURL string
}

// S3Host stores media as objects in a single bucket; the object key is the public ID.
type S3Host struct {
	client    *s3.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

var _ Host = (*S3Host)(nil)

// NewS3Host builds an S3 client with static credentials and path-style addressing.
func NewS3Host(ctx context.Context, cfg S3Config) (*S3Host, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Host{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}, nil
}

// Upload puts the file under folder/yyyy/mm/<uuid><ext>.
func (h *S3Host) Upload(ctx context.Context, folder string, file *File) (*Asset, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, ErrEmptyFile
	}

	key := h.objectKey(folder, file.Filename)
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(file.Data))),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	asset := &Asset{URL: h.publicURL + "/" + key, PublicID: key}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}

// Delete removes an object. Deleting a missing key succeeds.
func (h *S3Host) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", publicID, err)
	}
	return nil
}

func (h *S3Host) objectKey(folder, filename string) string {
	d := h.now().UTC()
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "uploads"
	}
	return fmt.Sprintf("%s/%04d/%02d/%s%s", folder, d.Year(), int(d.Month()), uuid.New(), extension(filename))
}
