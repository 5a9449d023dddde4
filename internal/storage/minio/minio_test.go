package minio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"natgas-forecast/internal/storage"
)

func setupTestStore(t *testing.T) (*ObjectStore, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "admin",
			"MINIO_ROOT_PASSWORD": "admin123",
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	store, err := NewObjectStore(ctx, Options{
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: "admin",
		SecretKey: "admin123",
		Bucket:    "natgas-raw",
	})
	require.NoError(t, err)

	return store, func() { _ = container.Terminate(ctx) }
}

func TestObjectStore_PutGetOverwrite(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "metadata", "metadata", []byte(`{"a":["2021-01-01"]}`)))
	require.NoError(t, store.Put(ctx, "metadata", "metadata", []byte(`{"a":["2021-01-05"]}`)))

	got, err := store.Get(ctx, "metadata", "metadata")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":["2021-01-05"]}`, string(got))
}

func TestObjectStore_GetMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "raw", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
