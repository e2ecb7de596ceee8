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

	"akunting/internal/feed"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	prefetchCount  = 16
)

// Client publishes and consumes ledger change events on a fanout exchange.
//
// Every subscriber gets its own queue bound to the exchange. With an empty
// queue name the queue is exclusive and server-named, so each server
// instance sees every event. A named queue is durable and survives restarts.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex // guards conn and channel
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	cbMu         sync.Mutex
	lastFailure  time.Time
}

var (
	_ feed.Publisher  = (*Client)(nil)
	_ feed.Subscriber = (*Client)(nil)
)

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if _, err := c.publishChannel(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// publishChannel returns the shared publishing channel, dialing and
// declaring the exchange when needed.
func (c *Client) publishChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	conn, err := c.connectionLocked()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := c.declareExchange(ch); err != nil {
		ch.Close()
		return nil, err
	}
	c.channel = ch
	return ch, nil
}

func (c *Client) connection() (*amqp091.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionLocked()
}

func (c *Client) connectionLocked() (*amqp091.Connection, error) {
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn, nil
	}
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) declareExchange(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// Publish sends e to every bound queue.
func (c *Client) Publish(ctx context.Context, e feed.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s event: circuit breaker is open", e.Kind)
	}

	body, err := NewChangeMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.publishChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key, ignored by fanout
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetChannel()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published change event",
		"kind", e.Kind,
		"op", e.Op,
		"id", e.ID,
		"exchange", c.exchangeName)
	return nil
}

// Subscribe consumes events until ctx is done. The first bind happens
// synchronously so configuration errors surface to the caller; later
// connection losses are retried with backoff and followed by a resync event.
func (c *Client) Subscribe(ctx context.Context) (<-chan feed.Event, error) {
	ch, deliveries, err := c.consume()
	if err != nil {
		return nil, err
	}

	out := make(chan feed.Event, prefetchCount)
	go func() {
		defer close(out)
		attempt := 0
		for {
			if deliveries != nil {
				attempt = 0
				c.forward(ctx, deliveries, out)
				ch.Close()
				if ctx.Err() != nil {
					return
				}
				slog.WarnContext(ctx, "AMQP delivery channel closed, reconnecting", "queue", c.queueName)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(exponentialBackoff(attempt)):
			}

			ch, deliveries, err = c.consume()
			if err != nil {
				attempt++
				deliveries = nil
				slog.ErrorContext(ctx, "Failed to resume consuming", "error", err, "attempt", attempt)
				continue
			}
			select {
			case out <- feed.Event{Op: feed.OpResync, At: time.Now()}:
			case <-ctx.Done():
				ch.Close()
				return
			}
		}
	}()
	return out, nil
}

// consume opens a dedicated channel, declares and binds the queue, and
// starts a manual-ack consumer on it.
func (c *Client) consume() (*amqp091.Channel, <-chan amqp091.Delivery, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		if isConnectionError(err) {
			c.resetConnection()
		}
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(err error) (*amqp091.Channel, <-chan amqp091.Delivery, error) {
		ch.Close()
		return nil, nil, err
	}

	if err := c.declareExchange(ch); err != nil {
		return fail(err)
	}

	durable, autoDelete, exclusive := true, false, false
	if c.queueName == "" {
		durable, autoDelete, exclusive = false, true, true
	}
	q, err := ch.QueueDeclare(
		c.queueName, // name, empty for server-named
		durable,     // durable
		autoDelete,  // delete when unused
		exclusive,   // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fail(fmt.Errorf("declare queue: %w", err))
	}

	if err := ch.QueueBind(q.Name, "", c.exchangeName, false, nil); err != nil {
		return fail(fmt.Errorf("bind queue: %w", err))
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fail(fmt.Errorf("set qos: %w", err))
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack (we want manual ack)
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fail(fmt.Errorf("start consuming: %w", err))
	}

	slog.Info("Started consuming change events", "queue", q.Name, "exchange", c.exchangeName)
	return ch, deliveries, nil
}

// forward hands deliveries to out until ctx is done or deliveries closes.
// A message is acked once the reader has it; malformed ones are dropped.
func (c *Client) forward(ctx context.Context, deliveries <-chan amqp091.Delivery, out chan<- feed.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}

			msg, err := ChangeMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal change message", "error", err)
				_ = delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			select {
			case out <- msg.Event():
				_ = delivery.Ack(false)
			case <-ctx.Done():
				_ = delivery.Nack(false, true)
				return
			}
		}
	}
}

func (c *Client) resetChannel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
}

func (c *Client) resetConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.channel = nil
}

// isCircuitOpen reports whether publishing is suspended. An open circuit
// moves to half-open once openTimeout has passed since the last failure.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.cbMu.Lock()
	last := c.lastFailure
	c.cbMu.Unlock()
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
	c.cbMu.Lock()
	c.lastFailure = time.Now()
	c.cbMu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s doubled per attempt, capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return 30 * time.Second
	}
	d := time.Second << attempt
	if d > 30*time.Second {
		d = 30 * time.Second
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
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Ping reports whether the broker connection is open.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
