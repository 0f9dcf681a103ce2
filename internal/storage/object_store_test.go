package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/config"
)

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.natours.io", PublicBaseURL("https://cdn.natours.io/", "minio:9000", false, "tours"))
	assert.Equal(t, "http://minio:9000/tours", PublicBaseURL("", "minio:9000", false, "tours"))
	assert.Equal(t, "https://s3.example.com/tours", PublicBaseURL("", "s3.example.com", true, "tours"))
}

func TestNewObjectStore_EndpointScheme(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:  "https://minio.example.com",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "natours-tours",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://minio.example.com/natours-tours", store.baseURL)
}
