package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/safar/merch-store/internal/models"
	"github.com/segmentio/kafka-go"
)

var (
	ErrProducerClosed = errors.New("producer closed")
	ErrBufferFull     = errors.New("producer buffer full")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues events in memory and writes them from one goroutine, so
// publishing never blocks a request on the broker.
type Producer struct {
	w       messageWriter
	service string
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

func NewProducer(brokers []string, topic, service string, buf int, logger zerolog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newProducer(w, service, buf, logger)
}

func newProducer(w messageWriter, service string, buf int, logger zerolog.Logger) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w:       w,
		service: service,
		logger:  logger,
		inbox:   make(chan kafka.Message, buf),
		done:    make(chan struct{}),
	}
}

// Start runs the write loop until Close. ctx bounds each broker write.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if err := p.w.WriteMessages(writeCtx, m); err != nil {
				p.logger.Error().Err(err).Str("key", string(m.Key)).Msg("write order event")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("close kafka writer")
		}
	}()
}

// Close stops accepting events, flushes the queue and waits for the write loop.
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *Producer) publish(key []byte, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   key,
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *Producer) envelope(eventType string, orderID int64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.service,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       raw,
	}, nil
}

func (p *Producer) OrderCreated(_ context.Context, order *models.Order) error {
	env, err := p.envelope(EventOrderCreated, order.ID, newOrderCreatedPayload(order))
	if err != nil {
		return err
	}
	return p.publish(PartitionKey(order.ID), env)
}

func (p *Producer) OrderStatusChanged(_ context.Context, orderID int64, from, to models.OrderStatus) error {
	env, err := p.envelope(EventOrderStatusChanged, orderID, OrderStatusChangedPayload{
		OrderID: orderID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return err
	}
	return p.publish(PartitionKey(orderID), env)
}
