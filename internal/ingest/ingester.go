package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/mqtt"
	"github.com/armadillo-fleet/armadillo-core/internal/telemetry"
)

// defaultInsertTimeout bounds a single store write triggered by a message.
const defaultInsertTimeout = 5 * time.Second

// maxMessageSize is the largest telemetry message accepted from the broker.
const maxMessageSize = 64 << 10

// ErrInvalidMessage is returned for messages that cannot become a record:
// bad topic, malformed envelope or invalid payload.
var ErrInvalidMessage = errors.New("ingest: invalid message")

// Subscriber is the part of the MQTT client the ingester needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface used by the ingester.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Message is the JSON body devices publish. Timestamp defaults to the
// time of receipt when omitted.
type Message struct {
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Options configures an Ingester.
type Options struct {
	Store      telemetry.Store
	Subscriber Subscriber
	QoS        byte
	Logger     Logger

	// Now returns the receipt time. Defaults to time.Now.
	Now func() time.Time
}

// Stats counts messages by outcome since Start.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
	Failed   uint64 `json:"failed"`
}

// Ingester turns telemetry messages from the broker into stored records.
type Ingester struct {
	store  telemetry.Store
	sub    Subscriber
	qos    byte
	topic  string
	logger Logger
	now    func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	// mu guards stopped so no wg.Add can race the wg.Wait in Stop.
	mu      sync.Mutex
	stopped bool

	accepted atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64
}

// New creates an Ingester. Store and Subscriber are required.
func New(opts Options) (*Ingester, error) {
	if opts.Store == nil {
		return nil, errors.New("ingest: store is required")
	}
	if opts.Subscriber == nil {
		return nil, errors.New("ingest: subscriber is required")
	}

	i := &Ingester{
		store:  opts.Store,
		sub:    opts.Subscriber,
		qos:    opts.QoS,
		topic:  mqtt.Topics{}.AllTelemetry(),
		logger: opts.Logger,
		now:    opts.Now,
	}
	if i.logger == nil {
		i.logger = noopLogger{}
	}
	if i.now == nil {
		i.now = time.Now
	}
	return i, nil
}

// Start subscribes to all device telemetry. Inserts run under a context
// derived from ctx and are cancelled by Stop.
func (i *Ingester) Start(ctx context.Context) error {
	i.ctx, i.cancel = context.WithCancel(ctx)

	if err := i.sub.Subscribe(i.topic, i.qos, i.HandleMessage); err != nil {
		i.cancel()
		return fmt.Errorf("subscribe to telemetry: %w", err)
	}
	i.logger.Info("telemetry ingest started", "topic", i.topic)
	return nil
}

// Stop unsubscribes and waits for in-flight messages to finish.
func (i *Ingester) Stop() {
	i.stopOnce.Do(func() {
		if i.cancel == nil {
			return
		}
		if err := i.sub.Unsubscribe(i.topic); err != nil {
			i.logger.Warn("unsubscribe from telemetry failed", "error", err)
		}

		i.mu.Lock()
		i.stopped = true
		i.mu.Unlock()

		i.cancel()
		i.wg.Wait()
		i.logger.Info("telemetry ingest stopped", "stats", i.Stats())
	})
}

// Stats returns message counters.
func (i *Ingester) Stats() Stats {
	return Stats{
		Accepted: i.accepted.Load(),
		Rejected: i.rejected.Load(),
		Failed:   i.failed.Load(),
	}
}

// HandleMessage is the mqtt.MessageHandler for telemetry topics. Invalid
// messages are logged and dropped; the error is never returned to the
// MQTT client so it does not log them a second time. Messages that arrive
// once Stop has begun are dropped.
func (i *Ingester) HandleMessage(topic string, payload []byte) error {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		i.logger.Debug("ingester stopped, dropping telemetry message", "topic", topic)
		return nil
	}
	i.wg.Add(1)
	i.mu.Unlock()
	defer i.wg.Done()

	ctx := i.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, defaultInsertTimeout)
	defer cancel()

	addr, err := i.ingest(ctx, topic, payload)
	switch {
	case err == nil:
		i.accepted.Add(1)
		i.logger.Debug("telemetry ingested", "address", addr.String())
	case errors.Is(err, ErrInvalidMessage):
		i.rejected.Add(1)
		i.logger.Warn("dropping telemetry message", "topic", topic, "error", err)
	default:
		i.failed.Add(1)
		i.logger.Error("storing telemetry failed", "topic", topic, "error", err)
	}
	return nil
}

// ingest parses and stores one message. Errors wrap ErrInvalidMessage for
// anything the sender got wrong; store errors are passed through.
func (i *Ingester) ingest(ctx context.Context, topic string, body []byte) (telemetry.Address, error) {
	kind, id, err := mqtt.ParseTelemetryTopic(topic)
	if err != nil {
		return telemetry.Address{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	addr, err := telemetry.ParseAddress(kind, id)
	if err != nil {
		return telemetry.Address{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	msg, err := decodeMessage(body)
	if err != nil {
		return addr, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	p, err := telemetry.DecodePayload(addr.Kind(), msg.Payload)
	if err != nil {
		return addr, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	ts := i.now()
	if msg.Timestamp != nil {
		ts = *msg.Timestamp
	}

	if err := i.store.Insert(ctx, addr, ts, p); err != nil {
		if errors.Is(err, telemetry.ErrInvalidPayload) || errors.Is(err, telemetry.ErrInvalidAddress) {
			return addr, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		return addr, err
	}
	return addr, nil
}

func decodeMessage(body []byte) (Message, error) {
	var msg Message
	if len(body) > maxMessageSize {
		return msg, fmt.Errorf("message size %d exceeds %d bytes", len(body), maxMessageSize)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		return msg, fmt.Errorf("decoding message: %w", err)
	}
	if len(msg.Payload) == 0 || bytes.Equal(msg.Payload, []byte("null")) {
		return msg, errors.New("payload is required")
	}
	return msg, nil
}
