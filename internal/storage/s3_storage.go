package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ObjectPutter is the slice of the S3 client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImportArchive keeps a copy of every uploaded import file.
type ImportArchive struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

func NewS3Client(region, accessKeyID, secretAccessKey string) *s3.Client {
	var cfg aws.Config
	var err error

	// Static credentials when given, otherwise the default chain (env, shared config, IAM role).
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(region),
		)
		if err != nil {
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	return s3.NewFromConfig(cfg)
}

func NewImportArchive(client ObjectPutter, bucket, prefix string) *ImportArchive {
	return &ImportArchive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// Key builds imports/<kind>/<yyyy/mm/dd>/<uuid><ext>.
func (a *ImportArchive) Key(kind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	day := a.now().UTC().Format("2006/01/02")
	key := fmt.Sprintf("%s/%s/%s%s", kind, day, uuid.New().String(), ext)
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	return key
}

// Archive uploads the raw file and returns its object key.
func (a *ImportArchive) Archive(ctx context.Context, kind, filename string, data []byte) (string, error) {
	key := a.Key(kind, filename)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(filename)),
		Metadata: map[string]string{
			"original-filename": filepath.Base(filename),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", filename, err)
	}
	return key, nil
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
