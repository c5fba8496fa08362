package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/services/store"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

const (
	DefaultBufferSize      = 1000
	DefaultBatchSize       = 100
	DefaultFlushInterval   = 100 * time.Millisecond
	DefaultDeliveryTimeout = 5 * time.Second
)

// Producer is the subset of *kafka.Producer the archiver uses.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Close()
}

type Config struct {
	Topic           string
	BatchSize       int
	FlushInterval   time.Duration
	BufferSize      int
	DeliveryTimeout time.Duration
}

// Archiver streams stored messages to a Kafka topic keyed by counterparty.
// Delivery is best effort: a message that cannot be queued or delivered is
// counted and dropped, and the in-memory store is unaffected.
type Archiver struct {
	producer Producer
	cfg      Config

	buffer       chan store.Message
	shutdownOnce sync.Once
	shutdownChan chan struct{}
	wg           sync.WaitGroup

	metrics struct {
		mu              sync.RWMutex
		messagesQueued  int64
		messagesSent    int64
		messagesFailed  int64
		messagesDropped int64
	}
}

// NewKafka connects a producer to addr and starts the archiver.
func NewKafka(addr string, cfg Config) (*Archiver, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": addr,
		"client.id":         "chatrelay",
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return New(p, cfg), nil
}

func New(p Producer, cfg Config) *Archiver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultDeliveryTimeout
	}

	a := &Archiver{
		producer:     p,
		cfg:          cfg,
		buffer:       make(chan store.Message, cfg.BufferSize),
		shutdownChan: make(chan struct{}),
	}

	a.wg.Add(1)
	go a.writer()

	return a
}

// Enqueue queues msg without blocking. It matches store.Observer.
func (a *Archiver) Enqueue(msg store.Message) {
	select {
	case <-a.shutdownChan:
		a.incrementMetric("dropped")
		return
	default:
	}

	select {
	case a.buffer <- msg:
		a.incrementMetric("queued")
	default:
		a.incrementMetric("dropped")
		logger.WithFields(map[string]any{
			"message_id":  msg.ID,
			"buffer_size": len(a.buffer),
		}).Warn("Archive buffer full, dropping message")
	}
}

func (a *Archiver) writer() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]store.Message, 0, a.cfg.BatchSize)

	for {
		select {
		case msg := <-a.buffer:
			batch = append(batch, msg)
			if len(batch) >= a.cfg.BatchSize {
				a.flushBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				a.flushBatch(batch)
				batch = batch[:0]
			}

		case <-a.shutdownChan:
			// drain what was queued before shutdown
			for {
				select {
				case msg := <-a.buffer:
					batch = append(batch, msg)
				default:
					if len(batch) > 0 {
						a.flushBatch(batch)
					}
					return
				}
			}
		}
	}
}

func (a *Archiver) flushBatch(batch []store.Message) {
	successCount := 0

	for _, msg := range batch {
		if err := a.send(msg); err != nil {
			logger.WithFields(map[string]any{
				"message_id": msg.ID,
				"error":      err.Error(),
			}).Error("Failed to archive message")
			a.incrementMetric("failed")
			continue
		}
		successCount++
		a.incrementMetric("sent")
	}

	metrics.RecordArchiveBatchSize(len(batch))
	logger.WithFields(map[string]any{
		"batch_size": len(batch),
		"success":    successCount,
		"failed":     len(batch) - successCount,
	}).Debug("Archive batch processed")
}

func (a *Archiver) send(msg store.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	topic := a.cfg.Topic
	deliveryChan := make(chan kafka.Event, 1)

	err = a.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(msg.Counterparty()),
		Value:          value,
	}, deliveryChan)
	if err != nil {
		return err
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", e)
		}
		return m.TopicPartition.Error
	case <-time.After(a.cfg.DeliveryTimeout):
		return errors.New("delivery timeout")
	}
}

func (a *Archiver) incrementMetric(name string) {
	a.metrics.mu.Lock()
	defer a.metrics.mu.Unlock()

	switch name {
	case "queued":
		a.metrics.messagesQueued++
	case "sent":
		a.metrics.messagesSent++
	case "failed":
		a.metrics.messagesFailed++
	case "dropped":
		a.metrics.messagesDropped++
	}
}

func (a *Archiver) GetMetrics() map[string]int64 {
	a.metrics.mu.RLock()
	defer a.metrics.mu.RUnlock()

	return map[string]int64{
		"queued":  a.metrics.messagesQueued,
		"sent":    a.metrics.messagesSent,
		"failed":  a.metrics.messagesFailed,
		"dropped": a.metrics.messagesDropped,
	}
}

// Close flushes queued messages and closes the producer.
func (a *Archiver) Close() error {
	a.shutdownOnce.Do(func() {
		close(a.shutdownChan)
		a.wg.Wait()
		a.producer.Close()
		logger.Info("Archive shutdown complete")
	})
	return nil
}
