package storage

import (
	"testing"
	"time"

	"github.com/sdko-org/content-query/internal/config"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Media_PublicURLWithEndpoint(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m, err := NewS3Media(logger, &config.Config{
		S3Bucket:   "cms-media",
		S3Region:   "eu-west-1",
		S3Endpoint: "https://minio.internal/",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://minio.internal/cms-media/blogs/cover%201.jpg", m.URL("/blogs/cover 1.jpg"))
	assert.Equal(t, "", m.URL(""))
}

func TestS3Media_PublicURLWithoutEndpoint(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m, err := NewS3Media(logger, &config.Config{S3Bucket: "cms-media", S3Region: "eu-west-1"})
	require.NoError(t, err)

	assert.Equal(t, "https://cms-media.s3.eu-west-1.amazonaws.com/programs/1.jpg", m.URL("programs/1.jpg"))
}

func TestS3Media_PresignedURL(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m, err := NewS3Media(logger, &config.Config{
		S3Bucket:        "cms-media",
		S3Region:        "us-east-1",
		S3Endpoint:      "https://minio.internal",
		S3AccessKey:     "AKIDEXAMPLE",
		S3SecretKey:     "secret",
		MediaPresignTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	u := m.URL("blogs/1.jpg")

	assert.Contains(t, u, "https://minio.internal/cms-media/blogs/1.jpg?")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=900")
}
