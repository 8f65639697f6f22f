package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phambaophuc/resizo/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Channel is the part of *amqp.Channel the queue service uses.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// QueueService ships history entries through RabbitMQ so the request path
// never waits on the database.
type QueueService struct {
	conn      *amqp.Connection
	channel   Channel
	logger    *zap.Logger
	queueName string
	repo      Repository
}

func NewQueueService(rabbitmqURL, queueName string, repo Repository, logger *zap.Logger) (*QueueService, error) {
	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	q := newQueueService(channel, queueName, repo, logger)
	q.conn = conn
	return q, nil
}

func newQueueService(channel Channel, queueName string, repo Repository, logger *zap.Logger) *QueueService {
	return &QueueService{
		channel:   channel,
		logger:    logger,
		queueName: queueName,
		repo:      repo,
	}
}

// Record publishes the entry; it implements Recorder.
func (q *QueueService) Record(ctx context.Context, entry models.HistoryEntry) error {
	prepare(&entry)

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	err = q.channel.Publish(
		"",          // exchange
		q.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    entry.ID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish history entry: %w", err)
	}

	q.logger.Debug("History entry published", zap.String("entry_id", entry.ID))
	return nil
}

// StartWorker consumes entries and writes them to the repository until ctx
// is cancelled.
func (q *QueueService) StartWorker(ctx context.Context, workerID int) error {
	msgs, err := q.channel.Consume(
		q.queueName,                        // queue
		fmt.Sprintf("worker-%d", workerID), // consumer
		false,                              // auto-ack
		false,                              // exclusive
		false,                              // no-local
		false,                              // no-wait
		nil,                                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.logger.Info("History worker started", zap.Int("worker_id", workerID))

	go func() {
		for {
			select {
			case <-ctx.Done():
				q.logger.Info("History worker stopping", zap.Int("worker_id", workerID))
				return
			case msg, ok := <-msgs:
				if !ok {
					q.logger.Warn("Message channel closed", zap.Int("worker_id", workerID))
					return
				}
				q.processMessage(ctx, msg, workerID)
			}
		}
	}()

	return nil
}

func (q *QueueService) processMessage(ctx context.Context, msg amqp.Delivery, workerID int) {
	var entry models.HistoryEntry
	if err := json.Unmarshal(msg.Body, &entry); err != nil {
		q.logger.Error("Failed to unmarshal history entry",
			zap.Error(err),
			zap.Int("worker_id", workerID))
		msg.Nack(false, false) // malformed, never requeue
		return
	}

	if err := q.repo.Create(ctx, &entry); err != nil {
		q.logger.Error("Failed to store history entry",
			zap.String("entry_id", entry.ID),
			zap.Bool("redelivered", msg.Redelivered),
			zap.Error(err))
		// Requeue once; a second failure drops the entry.
		msg.Nack(false, !msg.Redelivered)
		return
	}

	if err := msg.Ack(false); err != nil {
		q.logger.Error("Failed to ack message",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
	}
}

func (q *QueueService) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}

// HealthCheck checks if RabbitMQ is available
func (q *QueueService) HealthCheck() string {
	if q.conn != nil && q.conn.IsClosed() {
		return "unhealthy: connection closed"
	}
	if q.channel == nil {
		return "unhealthy: channel not available"
	}
	return models.StatusHealthy
}
