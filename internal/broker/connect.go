// Package broker wraps the RabbitMQ connection lifecycle shared by every
// producer and consumer in the vehicle-authorization pipeline.  Each role
// acquires its own connection and channel; nothing is pooled or shared, so
// the broker's per-channel delivery accounting is the only concurrency
// control the pipeline relies on.
package broker

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/vehicle-access-control/internal/config"
)

// dialFunc opens a single AMQP connection.  It exists so tests can count
// and fail attempts without a live broker.
type dialFunc func(url string, cfg amqp.Config) (*amqp.Connection, error)

// Connector establishes broker connections with a bounded retry budget.
// The endpoint is injected at construction and never re-read from the
// environment.  A zero Connector is not usable; always go through
// NewConnector.
type Connector struct {
	cfg  config.Broker
	dial dialFunc
}

// NewConnector returns a Connector bound to the given endpoint.
func NewConnector(cfg config.Broker) *Connector {
	return &Connector{cfg: cfg, dial: amqp.DialConfig}
}

// URL renders the endpoint as an AMQP URI.  The default virtual host "/"
// maps to a bare trailing slash; any other vhost is path-escaped.
func URL(cfg config.Broker) string {
	vhost := "/"
	if cfg.VHost != "" && cfg.VHost != "/" {
		vhost = "/" + url.PathEscape(cfg.VHost)
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", cfg.User, cfg.Pass, cfg.Host, cfg.Port, vhost)
}

// Acquire connects to the broker and opens a channel with a prefetch limit
// of one, so a consumer must settle each delivery before the broker sends
// the next.  Connection attempts are retried up to cfg.RetryAttempts times
// with a fixed cfg.RetryDelay between attempts; the last error is returned
// once the budget is exhausted.  The returned connection carries a watchdog
// that closes it if the broker keeps it flow-blocked longer than
// cfg.BlockedTimeout, so a hung broker surfaces as a closed connection
// instead of a silent stall.
func (c *Connector) Acquire(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := c.dialWithRetry(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	// One unacknowledged message at a time per channel.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}
	go watchBlocked(conn, c.cfg.BlockedTimeout)
	return conn, ch, nil
}

// dialWithRetry performs the bounded connect loop.  Every failed attempt is
// logged with its ordinal so operators can see how far into the budget a
// stalled broker got.  A cancelled context aborts the loop between
// attempts.
func (c *Connector) dialWithRetry(ctx context.Context) (*amqp.Connection, error) {
	cfg := amqp.Config{
		Vhost:     c.cfg.VHost,
		Heartbeat: c.cfg.Heartbeat,
		FrameSize: c.cfg.FrameMax,
		Dial:      amqp.DefaultDial(c.cfg.DialTimeout),
	}
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		conn, err := c.dial(URL(c.cfg), cfg)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Printf("broker: attempt %d/%d: connect to %s failed: %v",
			attempt, c.cfg.RetryAttempts, c.cfg.Host, err)
		if attempt == c.cfg.RetryAttempts {
			break
		}
		select {
		case <-time.After(c.cfg.RetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("connect to broker after %d attempts: %w", c.cfg.RetryAttempts, lastErr)
}

// watchBlocked closes the connection when the broker keeps it in a
// flow-blocked state for longer than the tolerated window.  RabbitMQ blocks
// connections under memory or disk alarms; without a bound a publisher
// would hang forever inside a write.
func watchBlocked(conn *amqp.Connection, tolerance time.Duration) {
	blocked := conn.NotifyBlocked(make(chan amqp.Blocking, 1))
	var timer *time.Timer
	for b := range blocked {
		if b.Active {
			log.Printf("broker: connection blocked by broker: %s", b.Reason)
			if timer == nil {
				timer = time.AfterFunc(tolerance, func() {
					log.Printf("broker: connection blocked longer than %s, closing", tolerance)
					_ = conn.Close()
				})
			}
			continue
		}
		log.Printf("broker: connection unblocked")
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}
}

// declareDurable declares a queue idempotently with the durability flags the
// pipeline relies on: the queue definition and any persistent messages in it
// survive a broker restart.
func declareDurable(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}
