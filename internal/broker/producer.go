package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer publishes JSON events onto named durable queues.  Every publish
// acquires its own short-lived connection, mirroring the short producer
// lifetime of the detection and review services: connect, publish, return.
// Errors are logged and returned; the publish itself is never retried, only
// the underlying connect (inside Connector.Acquire).
type Producer struct {
	connector *Connector
}

// NewProducer returns a Producer that connects through the given Connector.
func NewProducer(connector *Connector) *Producer {
	return &Producer{connector: connector}
}

// Publish marshals event to JSON and enqueues it on queue.  The queue is
// declared durable first (idempotent), the message is marked persistent and
// the channel runs in confirm mode: Publish does not return success until
// the broker has acknowledged receipt, so a nil return means the message is
// durably enqueued.
func (p *Producer) Publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("producer: marshal event for %s failed: %v", queue, err)
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, ch, err := p.connector.Acquire(ctx)
	if err != nil {
		log.Printf("producer: acquire connection failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = ch.Close() }()

	if err := declareDurable(ch, queue); err != nil {
		log.Printf("producer: %v", err)
		return err
	}
	if err := ch.Confirm(false); err != nil {
		log.Printf("producer: enable confirms failed: %v", err)
		return fmt.Errorf("enable confirms: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	)
	if err != nil {
		log.Printf("producer: publish to %s failed: %v", queue, err)
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	select {
	case <-confirm.Done():
		if !confirm.Acked() {
			log.Printf("producer: broker nacked publish to %s", queue)
			return fmt.Errorf("publish to %s: broker nacked message", queue)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
