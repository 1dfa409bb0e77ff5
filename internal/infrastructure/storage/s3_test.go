package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

// fakeS3 answers the path-style subset of the S3 API the Bucket uses
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
			}
		case http.MethodPut:
			f.buckets[bucket] = true
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	path := bucket + "/" + key
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		f.types[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
	case http.MethodHead:
		if _, ok := f.objects[path]; !ok {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodGet:
		data, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[path])
		_, _ = w.Write(data)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) object(path string) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[path]
	return data, f.types[path], ok
}

func (f *fakeS3) hasBucket(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[name]
}

func testStorageConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Endpoint:     endpoint,
		Bucket:       "storefront",
		AccessKey:    "access",
		SecretKey:    "secret",
		UsePathStyle: true,
	}
}

func TestNewBucket_Config(t *testing.T) {
	ctx := context.Background()

	_, err := NewBucket(ctx, nil)
	assert.ErrorContains(t, err, "missing configuration")

	_, err = NewBucket(ctx, &config.StorageConfig{})
	require.Error(t, err)
	for _, want := range []string{"bucket is required", "access key is required", "secret key is required"} {
		assert.ErrorContains(t, err, want)
	}

	b, err := NewBucket(ctx, testStorageConfig(""))
	require.NoError(t, err)
	assert.Equal(t, "storefront", b.Name())
	assert.Equal(t, defaultPresignTTL, b.presignTTL)

	cfg := testStorageConfig("")
	cfg.PresignExpiration = time.Hour
	b, err = NewBucket(ctx, cfg, WithPresignTTL(2*time.Hour), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, b.presignTTL)
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		ssl      bool
		want     string
		wantErr  bool
	}{
		{endpoint: "", want: defaultEndpoint},
		{endpoint: "minio:9000", want: "http://minio:9000"},
		{endpoint: "s3.example.com", ssl: true, want: "https://s3.example.com"},
		{endpoint: "https://s3.eu-west-1.amazonaws.com", want: "https://s3.eu-west-1.amazonaws.com"},
		{endpoint: "http://", wantErr: true},
	}
	for _, tt := range tests {
		got, err := endpointURL(&config.StorageConfig{Endpoint: tt.endpoint, UseSSL: tt.ssl})
		if tt.wantErr {
			assert.Error(t, err, tt.endpoint)
			continue
		}
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.want, got)
	}
}

func TestBucket_PresignedURLs(t *testing.T) {
	ctx := context.Background()
	b, err := NewBucket(ctx, testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)

	before := time.Now()
	upload, expires, err := b.GenerateUploadURL(ctx, "products/p1/front.jpg", "image/jpeg", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(defaultPresignTTL), expires, 5*time.Second)

	u, err := url.Parse(upload)
	require.NoError(t, err)
	assert.Equal(t, "/storefront/products/p1/front.jpg", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")

	download, _, err := b.GenerateDownloadURL(ctx, "products/p1/front.jpg", time.Minute)
	require.NoError(t, err)
	u, err = url.Parse(download)
	require.NoError(t, err)
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))

	_, _, err = b.GenerateUploadURL(ctx, "", "image/jpeg", 0)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestBucket_AgainstFakeS3(t *testing.T) {
	fake, srv := newFakeS3(t)
	ctx := context.Background()
	b, err := NewBucket(ctx, testStorageConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, b.EnsureBucket(ctx))
	assert.True(t, fake.hasBucket("storefront"))
	require.NoError(t, b.EnsureBucket(ctx))

	key := "invoices/ORD-20261017-0001/paid.pdf"
	_, err = b.Download(ctx, key)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	exists, err := b.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.Upload(ctx, key, []byte("%PDF-1.7"), "application/pdf"))
	_, contentType, _ := fake.object("storefront/" + key)
	assert.Equal(t, "application/pdf", contentType)

	got, err := b.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), got)

	exists, err = b.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, b.DeleteObject(ctx, key))
	_, _, stored := fake.object("storefront/" + key)
	assert.False(t, stored)
}

func TestBucket_AgainstMinIO(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MinIO container test in short mode")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			Cmd:          []string{"server", "/data"},
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "storefront",
				"MINIO_ROOT_PASSWORD": "storefront-secret",
			},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "http")
	require.NoError(t, err)

	cfg := testStorageConfig(endpoint)
	cfg.AccessKey, cfg.SecretKey = "storefront", "storefront-secret"
	b, err := NewBucket(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, b.EnsureBucket(ctx))

	key := "invoices/ORD-1/pending.pdf"
	require.NoError(t, b.Upload(ctx, key, []byte("%PDF-1.4"), "application/pdf"))
	got, err := b.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), got)

	require.NoError(t, b.DeleteObject(ctx, key))
	exists, err := b.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = b.Download(ctx, key)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
