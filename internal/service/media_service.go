package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/pkg/utils"
)

// MediaService uploads post media to Cloudflare R2 and returns the public
// URL a platform adapter can pull from.
type MediaService interface {
	Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (string, error)
}

type mediaService struct {
	cfg config.Config
}

func NewMediaService(cfg config.Config) MediaService {
	return &mediaService{cfg: cfg}
}

func (s *mediaService) client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.cfg.R2.AccessKey, s.cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.cfg.R2.AccountID))
	}), nil
}

func (s *mediaService) Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", errors.New("no file provided")
	}

	src, err := file.Open()
	if err != nil {
		slog.Info(err.Error())
		return "", errors.New("could not open uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		slog.Info(err.Error())
		return "", errors.New("could not read uploaded file")
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", errors.New("unsupported file type")
	}
	if !filetype.IsImage(data) && !filetype.IsVideo(data) {
		return "", errors.New("only image and video uploads are supported")
	}

	objectID, err := utils.GenerateObjectKey()
	if err != nil {
		slog.Info(err.Error())
		return "", errors.New("could not generate object key")
	}
	key := fmt.Sprintf("%d/%s.%s", userID, objectID, kind.Extension)

	r2Client, err := s.client(ctx)
	if err != nil {
		return "", errors.New("storage is unavailable")
	}

	_, err = r2Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(kind.MIME.Value),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", errors.New("could not upload file")
	}

	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s/%s", s.cfg.R2.AccountID, s.cfg.R2.BucketName, key), nil
}
