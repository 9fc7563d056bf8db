package service

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/office-resource-booking/internal/queue"
)

// Publisher delivers domain events.  *queue.Publisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// NopPublisher drops every event.  It is used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }

var tracer = otel.Tracer("github.com/iliyamo/office-resource-booking/internal/service")

// finish records err on span and ends it.
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// emit publishes ev after the write it describes has committed.  Broker
// failures are logged and never fail the request.
func emit(ctx context.Context, pub Publisher, ev queue.Event) {
	if pub == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	if err := pub.PublishJSON(ctx, ev.Type, ev); err != nil {
		log.Printf("publish %s %s: %v", ev.Type, ev.ID, err)
	}
}

// utcDay truncates t to midnight UTC.
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
