package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNewTransformJob(t *testing.T) {
	now := time.Date(2024, 11, 10, 8, 0, 0, 0, time.FixedZone("x", 3600))
	job := NewTransformJob([]Commit{{Dataset: "daily_weather", ObjectKey: "daily_weather_20241110", MaxDate: "2024-11-08", Records: 130}}, now)

	assert.Equal(t, "transform", job.Type)
	_, err := uuid.Parse(job.CorrID)
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, job.Created.Location())

	data, err := json.Marshal(job)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dataset":"daily_weather"`)
	assert.Contains(t, string(data), `"max_date":"2024-11-08"`)

	other := NewTransformJob(nil, now)
	assert.NotEqual(t, job.CorrID, other.CorrID)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	job := NewTransformJob(nil, time.Now())
	require.NoError(t, r.Publish(context.Background(), job))
	assert.Equal(t, []TransformJob{job}, r.Jobs())

	r.Err = errors.New("down")
	assert.Error(t, r.Publish(context.Background(), job))
	assert.Len(t, r.Jobs(), 1)
}

func TestAMQPPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)
	url := fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())

	pub, err := DialAMQP(ctx, url, "", 5, nil)
	require.NoError(t, err)
	defer pub.Close()

	job := NewTransformJob([]Commit{{Dataset: "natural_gas_spot_prices", Records: 3}}, time.Now())
	require.NoError(t, pub.Publish(ctx, job))

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	var msg amqp.Delivery
	require.Eventually(t, func() bool {
		var ok bool
		msg, ok, err = ch.Get(DefaultQueue, true)
		return err == nil && ok
	}, 10*time.Second, 100*time.Millisecond)

	assert.Equal(t, job.CorrID, msg.CorrelationId)
	var got TransformJob
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, job.Commits, got.Commits)
}
