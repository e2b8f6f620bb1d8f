package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSClient is a thin wrapper around a core NATS connection with the
// reconnect behavior and logging this service wants.
type NATSClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSClient connects to NATS and keeps reconnecting indefinitely.
func NewNATSClient(url string, logger *slog.Logger, clientName string) (*NATSClient, error) {
	log := logger.With("component", "nats_client")

	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	log.Info("Connected to NATS", "url", conn.ConnectedUrl())
	return &NATSClient{conn: conn, logger: log}, nil
}

// Publish sends one message on the subject.
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// QueueSubscribe subscribes with a queue group so only one instance of the
// service handles each message.
func (c *NATSClient) QueueSubscribe(subject, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.conn.QueueSubscribe(subject, queueGroup, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s (queue %s): %w", subject, queueGroup, err)
	}
	c.logger.Info("Subscribed", "subject", subject, "queue_group", queueGroup)
	return sub, nil
}

// Close drains in-flight messages and closes the connection.
func (c *NATSClient) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed, closing hard", "error", err)
		c.conn.Close()
	}
}
