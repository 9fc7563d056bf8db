package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestFormatAuditLine(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "booking",
			ev: Event{Type: BookingCreated, ID: "b1", ActorID: "u1", Kind: "desk", ResourceID: "r1",
				UserID: "u1", Status: "confirmed", Period: "2026-10-20", OccurredAt: "2026-10-17T09:00:00Z"},
			want: `[2026-10-17T09:00:00Z] booking.created | id=b1 | actor=u1 | kind="desk" | resource_id="r1" | user_id="u1" | status="confirmed" | period="2026-10-20"` + "\n",
		},
		{
			name: "empty fields omitted",
			ev:   Event{Type: ResourceDeleted, ID: "r9", ActorID: "admin", OccurredAt: "t"},
			want: "[t] resource.deleted | id=r9 | actor=admin\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAuditLine(tt.ev); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestAuditLogHandleMessage(t *testing.T) {
	dir := t.TempDir()
	a := AuditLog{Dir: filepath.Join(dir, "logs")}

	if err := a.HandleMessage([]byte(`{"type":"allocation.released","id":"a1","actor_id":"u2","occurred_at":"t"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := a.HandleMessage([]byte(`{"type":"booking.cancelled","id":"b2","actor_id":"u3","occurred_at":"t"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "logs", "audit.log"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[1], "booking.cancelled | id=b2") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestAuditLogRejectsMalformed(t *testing.T) {
	a := AuditLog{Dir: t.TempDir()}
	for _, body := range []string{"not json", `{"id":"x"}`} {
		if err := a.HandleMessage([]byte(body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

type binding struct{ queue, key, exchange string }

// fakeTopology records declarations made against a channel.
type fakeTopology struct {
	exchanges []string
	bindings  []binding
}

func (f *fakeTopology) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeTopology) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeTopology) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.bindings = append(f.bindings, binding{name, key, exchange})
	return nil
}

func TestBindAuditFollowsConfiguredExchange(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		want       string
	}{
		{"override", "corp.events", "corp.events"},
		{"default", "", Exchange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ch fakeTopology
			q, err := bindAudit(&ch, tt.configured)
			if err != nil {
				t.Fatal(err)
			}
			if q != AuditQueue {
				t.Fatalf("queue = %q", q)
			}
			if len(ch.exchanges) != 1 || ch.exchanges[0] != tt.want {
				t.Fatalf("declared %v, want [%s]", ch.exchanges, tt.want)
			}
			if len(ch.bindings) != len(Keys) {
				t.Fatalf("bound %d keys, want %d", len(ch.bindings), len(Keys))
			}
			for _, b := range ch.bindings {
				if b.exchange != tt.want || b.queue != AuditQueue {
					t.Fatalf("binding %+v not on %s", b, tt.want)
				}
			}
		})
	}
}

func TestPublisherAndConsumerShareExchangeName(t *testing.T) {
	for _, name := range []string{"", "corp.events"} {
		p := &Publisher{exchange: exchangeName(name)}
		var ch fakeTopology
		if _, err := bindAudit(&ch, name); err != nil {
			t.Fatal(err)
		}
		if ch.exchanges[0] != p.exchange {
			t.Fatalf("consumer declares %q, publisher uses %q", ch.exchanges[0], p.exchange)
		}
	}
}
