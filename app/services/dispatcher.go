package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
)

// Publisher delivers a serialized event to the outside world. Implementations
// are expected to be retried by the dispatcher, so a single call may fail.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange. Notification,
// receipt and anchoring consumers bind their own queues to it.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close implements Publisher.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

const (
	recordedRoutingKey = "payments.recorded"
	dispatchBuffer     = 256
	publishAttempts    = 3
)

// Dispatcher fans committed-payment facts out to downstream collaborators.
// Dispatch never blocks the caller: events go through a buffered channel
// consumed by one worker goroutine, and a full buffer drops to the log rather
// than stall a commit. Publish failures are retried with backoff, then
// dropped to the log; they never affect an already-committed payment.
type Dispatcher struct {
	publisher Publisher
	log       *zap.Logger
	events    chan ledger.PaymentRecordedEvent
	done      chan struct{}

	mu      sync.Mutex
	stopped bool
}

// NewDispatcher starts the worker goroutine. Call Stop to drain and shut
// down.
func NewDispatcher(publisher Publisher, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		publisher: publisher,
		log:       log,
		events:    make(chan ledger.PaymentRecordedEvent, dispatchBuffer),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch implements ledger.Dispatcher. An event arriving during or after
// shutdown is dropped to the log, never a panic on the closed intake.
func (d *Dispatcher) Dispatch(event ledger.PaymentRecordedEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.log.Warn("dispatcher stopped, dropping event",
			zap.String("payment_id", event.PaymentID))
		return
	}

	select {
	case d.events <- event:
	default:
		d.log.Error("dispatch buffer full, dropping event",
			zap.String("payment_id", event.PaymentID))
	}
}

// Stop closes the intake and waits for the worker to drain the buffer. Safe
// to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.events)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.events {
		d.publish(event)
	}
}

func (d *Dispatcher) publish(event ledger.PaymentRecordedEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		d.log.Error("failed to marshal event", zap.Error(err),
			zap.String("payment_id", event.PaymentID))
		return
	}

	for attempt := 0; attempt < publishAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt)) * 100 * time.Millisecond)
		}

		err = d.publisher.Publish(context.Background(), recordedRoutingKey, body)
		if err == nil {
			d.log.Debug("event published",
				zap.String("payment_id", event.PaymentID),
				zap.String("routing_key", recordedRoutingKey))
			return
		}

		d.log.Warn("event publish failed",
			zap.Error(err),
			zap.String("payment_id", event.PaymentID),
			zap.Int("attempt", attempt+1))
	}

	// Dropped after retries; consumers re-sync from the payments table.
	d.log.Error("event dropped after retries",
		zap.String("payment_id", event.PaymentID))
}
