package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"natgas-forecast/internal/storage/memory"
)

func setupRedis(t *testing.T) (string, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port()), func() { _ = container.Terminate(ctx) }
}

func TestRedis_ReadThroughAndWriteThrough(t *testing.T) {
	addr, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	backing := &countingStore{ObjectStore: memory.NewObjectStore()}
	require.NoError(t, backing.ObjectStore.Put(ctx, "raw", "k", []byte("v")))

	r, err := NewRedis(ctx, backing, RedisOptions{Addr: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 2; i++ {
		got, err := r.Get(ctx, "raw", "k")
		require.NoError(t, err)
		assert.Equal(t, "v", string(got))
	}
	assert.Equal(t, 1, backing.gets)

	require.NoError(t, r.Put(ctx, "raw", "k", []byte("v2")))
	got, err := r.Get(ctx, "raw", "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
	assert.Equal(t, 1, backing.gets)
}

func TestRedis_PutEvictsWhenRefreshFails(t *testing.T) {
	addr, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	backing := &countingStore{ObjectStore: memory.NewObjectStore()}
	require.NoError(t, backing.ObjectStore.Put(ctx, "metadata", "watermarks", []byte("old")))

	r, err := NewRedis(ctx, backing, RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Get(ctx, "metadata", "watermarks")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	// With no memory left every SET is refused; DEL still goes through.
	admin := redis.NewClient(&redis.Options{Addr: addr})
	defer admin.Close()
	require.NoError(t, admin.ConfigSet(ctx, "maxmemory-policy", "noeviction").Err())
	require.NoError(t, admin.ConfigSet(ctx, "maxmemory", "1").Err())
	require.Error(t, admin.Set(ctx, "scratch", "x", 0).Err())

	require.NoError(t, r.Put(ctx, "metadata", "watermarks", []byte("new")))
	got, err = r.Get(ctx, "metadata", "watermarks")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	assert.Equal(t, 2, backing.gets)
}
