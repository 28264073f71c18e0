// Package amqp broadcasts price table refresh events between the refresh
// worker and server instances over a RabbitMQ fanout exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
	maxBackoff  = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	// queueName is empty for a server-named, exclusive queue per consumer.
	queueName string
	logger    *slog.Logger

	onReconnect func(context.Context)

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

// NewClient connects to url and declares the fanout exchange.
func NewClient(url, exchangeName string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{url: url, exchangeName: exchangeName, logger: logger}
	if _, err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// ensureChannel returns an open channel, dialing again if the connection
// was lost.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp091.Dial(c.url)
		if err != nil {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		c.conn = conn
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	c.channel = ch
	return ch, nil
}

func (c *Client) resetConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// PublishPriceRefresh announces a new snapshot to every consumer.
func (c *Client) PublishPriceRefresh(ctx context.Context, msg *PriceTableRefreshedMessage) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish skipped: %w", ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key, ignored by fanout
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			MessageId:   msg.ID,
			Timestamp:   msg.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.log().InfoContext(ctx, "Published price refresh",
		"message_id", msg.ID,
		"snapshot_id", msg.SnapshotID,
		"source", msg.Source,
		"exchange", c.exchangeName)
	return nil
}

// OnReconnect registers fn to run each time the refresh consumer is bound
// again after losing the broker. Messages published while disconnected are
// not delivered to the exclusive queue, so fn should treat the cached table
// as stale. Call before ConsumePriceRefresh.
func (c *Client) OnReconnect(fn func(context.Context)) {
	c.onReconnect = fn
}

// consumerSession tracks reconnect attempts of one consume loop.
type consumerSession struct {
	attempt     int
	interrupted bool
	onReconnect func(context.Context)
}

// connected resets the backoff and fires the reconnect hook when a previous
// binding was lost.
func (s *consumerSession) connected(ctx context.Context) {
	s.attempt = 0
	if s.interrupted && s.onReconnect != nil {
		s.onReconnect(ctx)
	}
	s.interrupted = false
}

// failed records a lost binding and returns the delay before retrying.
func (s *consumerSession) failed() time.Duration {
	delay := exponentialBackoff(s.attempt)
	s.attempt++
	s.interrupted = true
	return delay
}

// ConsumePriceRefresh delivers refresh messages to handler until ctx is
// cancelled, reconnecting with exponential backoff when the broker goes
// away. Each consumer binds its own exclusive queue so every server
// instance receives every message.
func (c *Client) ConsumePriceRefresh(ctx context.Context, handler func(context.Context, *PriceTableRefreshedMessage) error) error {
	session := &consumerSession{onReconnect: c.onReconnect}
	for {
		err := c.consumeOnce(ctx, handler, func() { session.connected(ctx) })
		if ctx.Err() != nil {
			return nil
		}
		delay := session.failed()
		c.log().WarnContext(ctx, "Price refresh consumer interrupted, reconnecting",
			"error", err, "retry_in", delay)
		c.resetConnection()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *PriceTableRefreshedMessage) error, connected func()) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}
	q, err := ch.QueueDeclare(
		c.queueName,       // name
		c.queueName != "", // durable
		c.queueName == "", // delete when unused
		c.queueName == "", // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	c.log().InfoContext(ctx, "Consuming price refresh messages", "queue", q.Name, "exchange", c.exchangeName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *PriceTableRefreshedMessage) error) {
	msg, err := PriceTableRefreshedMessageFromJSON(d.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, msg); err != nil {
		c.log().ErrorContext(ctx, "Failed to handle price refresh",
			"error", err, "message_id", msg.ID, "snapshot_id", msg.SnapshotID)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
	c.log().DebugContext(ctx, "Handled price refresh", "message_id", msg.ID, "snapshot_id", msg.SnapshotID)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// isCircuitOpen reports whether calls should be refused. An open circuit
// moves to half-open once openTimeout has passed since the last failure.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
