package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	cfg "postqueue/configs"
	"postqueue/internal/errdefs"
)

// StorageService uploads post media to the object store and returns the public
// reference URL that replaces the inline payload.
type StorageService interface {
	UploadMedia(ctx context.Context, postID int64, data []byte) (string, error)
}

const uploadTimeout = 120 * time.Second

type storageService struct {
	config cfg.Config
}

func NewStorageService(cfg cfg.Config) StorageService {
	return &storageService{config: cfg}
}

func (s *storageService) s3Client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.config.S3.AccessKey, s.config.S3.SecretKey, "")),
		config.WithRegion(s.config.S3.Region),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// UploadMedia puts the payload under temp/{postID}-{nanoid}.{ext} and returns
// the bucket's public URL for it. A timeout counts as an upload failure like
// any other.
func (s *storageService) UploadMedia(ctx context.Context, postID int64, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", errdefs.Upload(fmt.Errorf("unrecognized media payload"))
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", errdefs.Upload(err)
	}
	key := fmt.Sprintf("temp/%d-%s.%s", postID, id, kind.Extension)

	client, err := s.s3Client(ctx)
	if err != nil {
		return "", errdefs.Upload(err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(kind.MIME.Value),
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", errdefs.Upload(err)
	}

	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.S3.Bucket, s.config.S3.Region, key)
	return publicURL, nil
}
