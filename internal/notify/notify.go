// Package notify tells downstream transform workers that new raw data has
// been committed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"natgas-forecast/internal/observability"
)

// DefaultQueue is the durable queue transform jobs are published to.
const DefaultQueue = "transform"

// Commit describes one dataset committed by an extraction run.
type Commit struct {
	Dataset   string `json:"dataset"`
	ObjectKey string `json:"object_key"`
	MaxDate   string `json:"max_date"`
	Records   int    `json:"records"`
}

// TransformJob asks a worker to run the transform pipeline.
type TransformJob struct {
	Type    string    `json:"type"` // always "transform"
	CorrID  string    `json:"corr_id"`
	Created time.Time `json:"created"`
	Commits []Commit  `json:"commits"`
}

// NewTransformJob returns a job with a fresh correlation id.
func NewTransformJob(commits []Commit, now time.Time) TransformJob {
	return TransformJob{
		Type:    "transform",
		CorrID:  uuid.NewString(),
		Created: now.UTC(),
		Commits: commits,
	}
}

// Publisher sends transform jobs.
type Publisher interface {
	Publish(ctx context.Context, job TransformJob) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages to a durable queue.
type AMQPPublisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *zap.Logger
	mu     sync.Mutex
}

var _ Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects to url, retrying for up to attempts tries with a
// growing pause, and declares queue.
func DialAMQP(ctx context.Context, url, queue string, attempts int, logger *zap.Logger) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("amqp dial failed", zap.Int("attempt", i+1), zap.Error(err))
		if i == attempts-1 {
			return nil, fmt.Errorf("dial amqp: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second * time.Duration(1+i)):
		}
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, queue: queue, logger: logger}, nil
}

// Publish sends job to the queue.
func (p *AMQPPublisher) Publish(ctx context.Context, job TransformJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode transform job: %w", err)
	}

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: job.CorrID,
		Timestamp:     job.Created,
		Body:          body,
	})
	p.mu.Unlock()

	observability.RecordNotification(err)
	if err != nil {
		return fmt.Errorf("publish transform job: %w", err)
	}
	p.logger.Info("transform job published",
		zap.String("corr_id", job.CorrID),
		zap.Int("datasets", len(job.Commits)))
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	chErr := p.ch.Close()
	if err := p.conn.Close(); err != nil {
		return err
	}
	return chErr
}

// Recorder keeps published jobs in memory.
type Recorder struct {
	mu   sync.Mutex
	jobs []TransformJob
	Err  error // returned by Publish when set
}

var _ Publisher = (*Recorder)(nil)

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, job TransformJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	observability.RecordNotification(r.Err)
	if r.Err != nil {
		return r.Err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the published jobs.
func (r *Recorder) Jobs() []TransformJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TransformJob(nil), r.jobs...)
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }
