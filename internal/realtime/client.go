package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"swick/internal/logger"
	"swick/internal/messaging"
)

// Notifier is the realtime channel a session listens on
type Notifier interface {
	Subscribe(ctx context.Context, channel string) error
	Unsubscribe() error
	Bind(event string, h Handler)
}

// Client is a Notifier backed by an exclusive RabbitMQ queue per subscription
type Client struct {
	conn   *messaging.Connection
	logger *logger.Logger
	router *Router

	mu       sync.Mutex
	channel  string
	queue    string
	consumer *messaging.Consumer
	cancel   context.CancelFunc
}

// NewClient creates a realtime client. poster may be nil.
func NewClient(conn *messaging.Connection, poster Poster, log *logger.Logger) *Client {
	return &Client{
		conn:   conn,
		logger: log,
		router: NewRouter(poster),
	}
}

// Bind registers h for the named event on whichever channel is subscribed
func (c *Client) Bind(event string, h Handler) {
	c.router.Bind(event, h)
}

// Channel returns the subscribed channel, or "" when none
func (c *Client) Channel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Subscribe starts listening on channel, replacing any previous subscription.
// Consumption stops when ctx is done.
func (c *Client) Subscribe(ctx context.Context, channel string) error {
	if err := c.Unsubscribe(); err != nil {
		return err
	}

	queue, err := c.conn.DeclareChannelQueue(channel)
	if err != nil {
		return err
	}

	tag := "swick-" + uuid.NewString()
	consumer := messaging.NewConsumer(c.conn, c.logger, queue, tag, 10)
	consumeCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.channel = channel
	c.queue = queue
	c.consumer = consumer
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		err := consumer.StartConsuming(consumeCtx, c.handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("realtime_consume_failed", "Realtime consumer stopped", "", err, map[string]interface{}{
				"channel": channel,
			})
		}
	}()

	c.logger.Info("realtime_subscribed", fmt.Sprintf("Listening on %s", channel), "", map[string]interface{}{
		"channel": channel,
		"queue":   queue,
	})
	return nil
}

// Unsubscribe stops the current subscription. It does not wait for the consumer
// goroutine, so it is safe to call from an event handler.
func (c *Client) Unsubscribe() error {
	c.mu.Lock()
	consumer, cancel, queue, channel := c.consumer, c.cancel, c.queue, c.channel
	c.consumer, c.cancel, c.queue, c.channel = nil, nil, "", ""
	c.mu.Unlock()

	if consumer == nil {
		return nil
	}
	cancel()
	if err := consumer.Stop(); err != nil {
		return fmt.Errorf("failed to stop consumer for %s: %w", channel, err)
	}
	if err := c.conn.DeleteQueue(queue); err != nil {
		return fmt.Errorf("failed to delete queue for %s: %w", channel, err)
	}
	c.logger.Debug("realtime_unsubscribed", fmt.Sprintf("Left %s", channel), "", nil)
	return nil
}

func (c *Client) handle(_ context.Context, routingKey string, body []byte) error {
	ev, err := Decode(routingKey, body)
	if err != nil {
		return err
	}
	if n := c.router.Dispatch(ev); n == 0 {
		c.logger.Debug("realtime_unhandled", "No handler bound for event", "", map[string]interface{}{
			"event":   ev.Name,
			"channel": ev.Channel,
		})
	}
	return nil
}
