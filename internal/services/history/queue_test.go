package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phambaophuc/resizo/internal/models"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	published  []amqp.Publishing
	routingKey string
	publishErr error
	deliveries chan amqp.Delivery
}

func (c *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.routingKey = key
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error { return nil }

type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   bool
	nacked  bool
	requeue bool
	done    chan struct{}
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{done: make(chan struct{}, 1)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acked = true
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	a.nacked = true
	a.requeue = requeue
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type memoryRepository struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	err     error
}

func (r *memoryRepository) Create(ctx context.Context, entry *models.HistoryEntry) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.HistoryEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestQueueRecordPublishesEntry(t *testing.T) {
	ch := &fakeChannel{}
	q := newQueueService(ch, "resize_history", &memoryRepository{}, zap.NewNop())

	err := q.Record(context.Background(), models.HistoryEntry{UserID: "user-1", OriginalFilename: "cat.png"})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	assert.Equal(t, "resize_history", ch.routingKey)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)

	var entry models.HistoryEntry
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &entry))
	assert.Equal(t, "user-1", entry.UserID)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, entry.ID, ch.published[0].MessageId)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestQueueRecordPublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	q := newQueueService(ch, "resize_history", &memoryRepository{}, zap.NewNop())

	err := q.Record(context.Background(), models.HistoryEntry{UserID: "user-1"})
	assert.ErrorContains(t, err, "failed to publish history entry")
}

func TestWorkerStoresAndAcks(t *testing.T) {
	repo := &memoryRepository{}
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 1)}
	q := newQueueService(ch, "resize_history", repo, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.StartWorker(ctx, 1))

	body, _ := json.Marshal(models.HistoryEntry{ID: "e1", UserID: "user-1"})
	ack := newFakeAcknowledger()
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}

	select {
	case <-ack.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not acknowledge the delivery")
	}

	assert.True(t, ack.acked)
	entries, _ := repo.ListByUser(ctx, "user-1", 10)
	assert.Len(t, entries, 1)
}

func TestProcessMessageDropsMalformedBody(t *testing.T) {
	q := newQueueService(&fakeChannel{}, "resize_history", &memoryRepository{}, zap.NewNop())
	ack := newFakeAcknowledger()

	q.processMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")}, 1)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestProcessMessageRequeuesOnceOnStoreFailure(t *testing.T) {
	q := newQueueService(&fakeChannel{}, "resize_history", &memoryRepository{err: errors.New("db down")}, zap.NewNop())
	body, _ := json.Marshal(models.HistoryEntry{ID: "e1", UserID: "user-1"})

	first := newFakeAcknowledger()
	q.processMessage(context.Background(), amqp.Delivery{Acknowledger: first, Body: body}, 1)
	assert.True(t, first.nacked)
	assert.True(t, first.requeue)

	second := newFakeAcknowledger()
	q.processMessage(context.Background(), amqp.Delivery{Acknowledger: second, Body: body, Redelivered: true}, 1)
	assert.True(t, second.nacked)
	assert.False(t, second.requeue)
}

func TestDirectRecorderFillsIdentity(t *testing.T) {
	repo := &memoryRepository{}
	r := NewDirectRecorder(repo)

	require.NoError(t, r.Record(context.Background(), models.HistoryEntry{UserID: "user-1"}))
	require.Len(t, repo.entries, 1)
	assert.NotEmpty(t, repo.entries[0].ID)
	assert.False(t, repo.entries[0].CreatedAt.IsZero())
}

func TestNewEntryFromResult(t *testing.T) {
	entry := NewEntry("user-1",
		models.UploadedFile{Filename: "cat.png", Size: 5000},
		&models.TransformResult{
			Data: make([]byte, 1200), Width: 200, Height: 100, Format: models.FormatJPEG,
			SourceWidth: 400, SourceHeight: 200,
		})

	assert.Equal(t, "jpg", entry.OutputFormat)
	assert.Equal(t, int64(5000), entry.OriginalSizeBytes)
	assert.Equal(t, int64(1200), entry.ResizedSizeBytes)
	assert.Equal(t, 400, entry.OriginalWidth)
	assert.Equal(t, 100, entry.ResizedHeight)
}
