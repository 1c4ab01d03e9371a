package messaging

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"swick/internal/config"
	"swick/internal/logger"
)

// Connection wraps RabbitMQ connection with reconnection logic
type Connection struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	config   *config.Config
	logger   *logger.Logger
	url      string
	exchange string
}

// New creates a new RabbitMQ connection and declares the events exchange
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		config:   cfg,
		logger:   log,
		url:      cfg.RabbitMQURL(),
		exchange: cfg.RabbitMQ.Exchange,
	}

	if err := conn.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}

	return conn, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Connection) connect() error {
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if setupErr := c.setupTopology(); setupErr != nil {
					c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", setupErr, nil)
					c.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				c.conn.Close()
			}
		}

		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"startup", err, nil)
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// setupTopology declares the topic exchange that carries every realtime event.
// Routing keys are channel names, so one exchange serves all channels.
func (c *Connection) setupTopology() error {
	err := c.channel.ExchangeDeclare(
		c.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", c.exchange, err)
	}
	return nil
}

// DeclareChannelQueue creates an exclusive, server-named queue bound to one channel.
// The queue disappears with the connection, so a listener only sees events published
// while it is subscribed.
func (c *Connection) DeclareChannelQueue(channelName string) (string, error) {
	q, err := c.channel.QueueDeclare(
		"",    // name, server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", fmt.Errorf("failed to declare queue for %s: %w", channelName, err)
	}

	err = c.channel.QueueBind(
		q.Name,      // queue name
		channelName, // routing key
		c.exchange,  // exchange
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return "", fmt.Errorf("failed to bind queue to %s: %w", channelName, err)
	}
	return q.Name, nil
}

// DeleteQueue removes a queue declared by DeclareChannelQueue
func (c *Connection) DeleteQueue(name string) error {
	if c.IsClosed() {
		return nil
	}
	_, err := c.channel.QueueDelete(name, false, false, false)
	return err
}

// Exchange returns the name of the events exchange
func (c *Connection) Exchange() string {
	return c.exchange
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp091.Channel {
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsClosed checks if the connection is closed
func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect attempts to reconnect to RabbitMQ
func (c *Connection) Reconnect() error {
	c.close()
	return c.connect()
}
