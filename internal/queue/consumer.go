package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditQueue is the durable queue the audit consumer drains.
const AuditQueue = "office.audit"

// AuditLog appends one line per event to <Dir>/audit.log.
type AuditLog struct {
	Dir string
}

// Write formats ev and appends it to the audit file, creating the
// directory on first use.
func (a AuditLog) Write(ev Event) error {
	dir := a.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders ev as a single newline-terminated line.  Empty
// fields are omitted.
func FormatAuditLine(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | id=%s | actor=%s", ev.OccurredAt, ev.Type, ev.ID, ev.ActorID)
	for _, kv := range [][2]string{
		{"kind", ev.Kind},
		{"resource_id", ev.ResourceID},
		{"code", ev.Code},
		{"user_id", ev.UserID},
		{"status", ev.Status},
		{"period", ev.Period},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, " | %s=%q", kv[0], kv[1])
		}
	}
	b.WriteByte('\n')
	return b.String()
}

// HandleMessage decodes one delivery body and appends it to the audit log.
func (a AuditLog) HandleMessage(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	return a.Write(ev)
}

// StartAuditConsumer binds AuditQueue to every office event key on
// exchange (the one the publisher uses) and consumes until ctx is
// cancelled.  Broker outages are retried with
// exponential backoff capped at 30s; malformed messages are rejected
// without requeue so the server continues operating.
func StartAuditConsumer(ctx context.Context, url, exchange string, audit AuditLog) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, exchange, audit)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// topology is the part of *amqp.Channel used to declare the audit queue.
type topology interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// bindAudit declares exchange and the durable audit queue and binds the
// queue to every event key.  It returns the queue name.
func bindAudit(ch topology, exchange string) (string, error) {
	exchange = exchangeName(exchange)
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil)
	if err != nil {
		return "", fmt.Errorf("queue declare: %w", err)
	}
	for _, rk := range Keys {
		if err := ch.QueueBind(q.Name, rk, exchange, false, nil); err != nil {
			return "", fmt.Errorf("bind %s: %w", rk, err)
		}
	}
	return q.Name, nil
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, exchange string, audit AuditLog) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}
	qname, err := bindAudit(ch, exchange)
	if err != nil {
		return err
	}

	msgs, err := ch.ConsumeWithContext(ctx, qname, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for d := range msgs {
		if err := audit.HandleMessage(d.Body); err != nil {
			log.Printf("audit-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}
