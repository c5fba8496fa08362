package archive

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"chatrelay/services/store"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu       sync.Mutex
	messages []*kafka.Message
	failWith error
	closed   bool
}

func (p *fakeProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)

	report := *msg
	report.TopicPartition.Error = p.failWith
	deliveryChan <- &report
	return nil
}

func (p *fakeProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakeProducer) produced() []*kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*kafka.Message(nil), p.messages...)
}

func TestArchiverFlushesOnClose(t *testing.T) {
	p := &fakeProducer{}
	a := New(p, Config{Topic: "relay-history", BatchSize: 100, FlushInterval: time.Hour})

	s := store.New()
	s.Subscribe(a.Enqueue)
	s.Append(store.Draft{From: "A", To: "B", Body: "hi", Direction: store.Incoming})
	s.Append(store.Draft{From: "B", To: "A", Body: "hello", Direction: store.Outgoing})
	s.Append(store.Draft{From: "C", To: "B", Body: "yo", Direction: store.Incoming})

	require.NoError(t, a.Close())

	msgs := p.produced()
	require.Len(t, msgs, 3)
	assert.Equal(t, "relay-history", *msgs[0].TopicPartition.Topic)
	assert.Equal(t, "A", string(msgs[0].Key))
	assert.Equal(t, "A", string(msgs[1].Key))
	assert.Equal(t, "C", string(msgs[2].Key))

	var decoded store.Message
	require.NoError(t, json.Unmarshal(msgs[1].Value, &decoded))
	assert.Equal(t, "hello", decoded.Body)
	assert.Equal(t, store.Outgoing, decoded.Direction)

	assert.True(t, p.closed)
	m := a.GetMetrics()
	assert.Equal(t, int64(3), m["queued"])
	assert.Equal(t, int64(3), m["sent"])
}

func TestArchiverFlushesOnBatchSize(t *testing.T) {
	p := &fakeProducer{}
	a := New(p, Config{Topic: "t", BatchSize: 2, FlushInterval: time.Hour})
	defer a.Close()

	a.Enqueue(store.Message{ID: "1", From: "A", Direction: store.Incoming})
	a.Enqueue(store.Message{ID: "2", From: "A", Direction: store.Incoming})

	assert.Eventually(t, func() bool { return len(p.produced()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestArchiverFlushesOnInterval(t *testing.T) {
	p := &fakeProducer{}
	a := New(p, Config{Topic: "t", BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	defer a.Close()

	a.Enqueue(store.Message{ID: "1", From: "A", Direction: store.Incoming})

	assert.Eventually(t, func() bool { return len(p.produced()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestArchiverCountsDeliveryFailures(t *testing.T) {
	p := &fakeProducer{failWith: errors.New("broker unavailable")}
	a := New(p, Config{Topic: "t"})

	a.Enqueue(store.Message{ID: "1", From: "A", Direction: store.Incoming})
	require.NoError(t, a.Close())

	m := a.GetMetrics()
	assert.Equal(t, int64(1), m["failed"])
	assert.Equal(t, int64(0), m["sent"])
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	// no writer goroutine, so the buffer never drains
	a := &Archiver{
		buffer:       make(chan store.Message, 1),
		shutdownChan: make(chan struct{}),
	}

	a.Enqueue(store.Message{ID: "1"})
	a.Enqueue(store.Message{ID: "2"})

	m := a.GetMetrics()
	assert.Equal(t, int64(1), m["queued"])
	assert.Equal(t, int64(1), m["dropped"])
}

func TestEnqueueAfterCloseDrops(t *testing.T) {
	p := &fakeProducer{}
	a := New(p, Config{Topic: "t"})
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	a.Enqueue(store.Message{ID: "1"})

	assert.Equal(t, int64(1), a.GetMetrics()["dropped"])
	assert.Empty(t, p.produced())
}
