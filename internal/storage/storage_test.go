package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emsdesk/apiserver/config"
)

type memoryBackend struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryBackend) EnsureBucket(ctx context.Context) error { return nil }

func (m *memoryBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryBackend) Open(ctx context.Context, key string) (*Object, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &Object{Body: io.NopCloser(bytes.NewReader(data)), ContentType: m.types[key], Size: int64(len(data))}, nil
}

func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Bucket() string { return "test" }

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(&memoryBackend{objects: map[string][]byte{}, types: map[string]string{}})

	require.NoError(t, s.Put(ctx, "content/logo.png", bytes.NewReader([]byte("png")), 3, "image/png"))

	obj, err := s.Open(ctx, "content/logo.png")
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "image/png", obj.ContentType)

	require.NoError(t, s.Delete(ctx, "content/logo.png"))
	_, err = s.Open(ctx, "content/logo.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, "test", s.Bucket())
}

func TestFromConfig(t *testing.T) {
	s, err := FromConfig(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = FromConfig(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)

	_, err = FromConfig(context.Background(), config.StorageConfig{Backend: config.StorageBackendMinio})
	assert.EqualError(t, err, "minio endpoint is required")
}
