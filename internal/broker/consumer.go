package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes the body of one delivered message.  A nil return
// acknowledges the message; an error sends it back through the bounded
// redelivery path.  Handlers may be invoked more than once for the same
// message (at-least-once delivery) and must tolerate duplicates.
type Handler func(ctx context.Context, body []byte) error

// redeliveryHeader carries the number of times a message has already been
// handed back after a handler failure.  It travels in the message headers
// so the count survives competing consumers and broker restarts.
const redeliveryHeader = "x-redelivery-count"

// DefaultMaxRedeliveries is how often a message is retried before it is
// moved to the queue's dead-letter companion.
const DefaultMaxRedeliveries = 5

// Consumer subscribes to a durable queue and feeds deliveries to a Handler
// one at a time.  Run supervises the subscription: any connection or
// channel failure tears the whole thing down and rebuilds it from scratch
// after the endpoint's retry delay.  The broker owns all delivery state, so
// there is nothing to checkpoint across restarts.
type Consumer struct {
	connector       *Connector
	maxRedeliveries int
}

// NewConsumer returns a Consumer with the default redelivery bound.
func NewConsumer(connector *Connector) *Consumer {
	return &Consumer{connector: connector, maxRedeliveries: DefaultMaxRedeliveries}
}

// consumerTag builds a subscription tag unique across restarts and across
// competing consumer processes on the same queue.
func consumerTag(queue string) string {
	return fmt.Sprintf("%s_ctag_%d_%d", queue, time.Now().Unix(), os.Getpid())
}

// DeadLetterQueue names the dead-letter companion of a queue.
func DeadLetterQueue(queue string) string {
	return queue + ".dlq"
}

// Run consumes queue until ctx is cancelled.  It never returns an error:
// every failure inside the subscription is logged and answered by a full
// reconnect (fresh connection, fresh declare, fresh subscription) after the
// configured retry delay.
func (c *Consumer) Run(ctx context.Context, queue string, handler Handler) {
	for {
		err := c.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			log.Printf("consumer[%s]: stopped: %v", queue, ctx.Err())
			return
		}
		log.Printf("consumer[%s]: subscription ended: %v; reconnecting in %s",
			queue, err, c.connector.cfg.RetryDelay)
		select {
		case <-time.After(c.connector.cfg.RetryDelay):
		case <-ctx.Done():
			log.Printf("consumer[%s]: stopped: %v", queue, ctx.Err())
			return
		}
	}
}

// consumeOnce runs one full subscription: connect, declare the queue and
// its dead-letter companion, subscribe with a unique tag and process
// deliveries until the channel dies or ctx is cancelled.
func (c *Consumer) consumeOnce(ctx context.Context, queue string, handler Handler) error {
	conn, ch, err := c.connector.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = ch.Close() }()

	if err := declareDurable(ch, queue); err != nil {
		return err
	}
	if err := declareDurable(ch, DeadLetterQueue(queue)); err != nil {
		return err
	}

	tag := consumerTag(queue)
	deliveries, err := ch.Consume(
		queue, // queue
		tag,   // consumer tag
		false, // autoAck: settle explicitly
		false, // exclusive: competing consumers share the queue
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", queue, err)
	}
	log.Printf("consumer[%s]: waiting for messages (tag=%s)", queue, tag)

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handleDelivery(ctx, ch, queue, d, handler)
		case <-ctx.Done():
			// Cancel the subscription so the broker redelivers anything
			// still unsettled to another consumer.
			_ = ch.Cancel(tag, false)
			return ctx.Err()
		}
	}
}

// republisher is the slice of *amqp.Channel that handleDelivery needs to
// put a failed message back on a queue.
type republisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// handleDelivery settles exactly one delivery.  Success acknowledges.
// Failure republishes the message with an incremented redelivery count, or
// moves it to the dead-letter queue once the bound is reached; the original
// delivery is acknowledged either way so the broker-side copy does not loop
// forever.  Only when the republish itself fails does the message go back
// to the queue via nack/requeue, which preserves at-least-once delivery at
// the cost of not advancing the counter.
func (c *Consumer) handleDelivery(ctx context.Context, ch republisher, queue string, d amqp.Delivery, handler Handler) {
	err := handler(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Printf("consumer[%s]: ack failed: %v", queue, ackErr)
		}
		return
	}

	attempts := redeliveryCount(d.Headers) + 1
	if attempts >= c.maxRedeliveries {
		log.Printf("consumer[%s]: handler failed %d times, dead-lettering: %v", queue, attempts, err)
		if dlqErr := c.republish(ctx, ch, DeadLetterQueue(queue), d, attempts, err); dlqErr != nil {
			log.Printf("consumer[%s]: dead-letter publish failed: %v", queue, dlqErr)
			_ = d.Nack(false, true)
			return
		}
	} else {
		log.Printf("consumer[%s]: handler failed (attempt %d/%d), requeueing: %v",
			queue, attempts, c.maxRedeliveries, err)
		if reqErr := c.republish(ctx, ch, queue, d, attempts, err); reqErr != nil {
			log.Printf("consumer[%s]: requeue publish failed: %v", queue, reqErr)
			_ = d.Nack(false, true)
			return
		}
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Printf("consumer[%s]: ack after republish failed: %v", queue, ackErr)
	}
}

// republish writes the delivery body back onto target with the updated
// redelivery count and the last handler error in the headers.
func (c *Consumer) republish(ctx context.Context, ch republisher, target string, d amqp.Delivery, attempts int, cause error) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[redeliveryHeader] = int32(attempts)
	headers["x-last-error"] = cause.Error()
	return ch.PublishWithContext(ctx,
		"",     // default exchange
		target, // routing key = queue name
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
			Body:         d.Body,
		},
	)
}

// redeliveryCount reads the counter header, tolerating the integer widths
// different AMQP clients use when writing header tables.
func redeliveryCount(headers amqp.Table) int {
	v, ok := headers[redeliveryHeader]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
