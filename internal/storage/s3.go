package storage

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sdko-org/content-query/internal/config"
	"github.com/sirupsen/logrus"
)

// S3Media turns image storage keys into URLs on the media bucket. With a
// presign TTL it returns signed GET URLs, otherwise stable path-style URLs.
type S3Media struct {
	client     *s3.S3
	bucket     string
	endpoint   string
	region     string
	presignTTL time.Duration
	log        *logrus.Entry
}

func NewS3Media(logger *logrus.Logger, cfg *config.Config) (*S3Media, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.S3Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, "")
	}
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}

	return &S3Media{
		client:     s3.New(sess),
		bucket:     cfg.S3Bucket,
		endpoint:   strings.TrimRight(cfg.S3Endpoint, "/"),
		region:     cfg.S3Region,
		presignTTL: cfg.MediaPresignTTL,
		log:        logger.WithField("component", "s3_media"),
	}, nil
}

// URL implements content.URLResolver. Empty keys resolve to "".
func (m *S3Media) URL(key string) string {
	if key == "" {
		return ""
	}
	key = strings.TrimLeft(key, "/")

	if m.presignTTL > 0 {
		req, _ := m.client.GetObjectRequest(&s3.GetObjectInput{
			Bucket: aws.String(m.bucket),
			Key:    aws.String(key),
		})
		signed, err := req.Presign(m.presignTTL)
		if err == nil {
			return signed
		}
		m.log.WithError(err).WithField("key", key).Warn("Failed to presign media URL")
	}
	return m.publicURL(key)
}

func (m *S3Media) publicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if m.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", m.endpoint, m.bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", m.bucket, m.region, escaped)
}
