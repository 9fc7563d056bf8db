// Package queue contains the message payloads exchanged over RabbitMQ, the
// long-lived publisher used by the services and the background consumer
// that writes the audit log.
package queue

// Exchange is the default topic exchange for office events; AMQP_EXCHANGE
// overrides it for both the publisher and the audit consumer.
const Exchange = "office.events"

// exchangeName falls back to Exchange when no name is configured.
func exchangeName(name string) string {
	if name == "" {
		return Exchange
	}
	return name
}

// Routing keys.  Consumers bind with patterns such as "booking.*".
const (
	BookingCreated     = "booking.created"
	BookingCancelled   = "booking.cancelled"
	BookingApproved    = "booking.approved"
	BookingRejected    = "booking.rejected"
	AllocationCreated  = "allocation.created"
	AllocationReleased = "allocation.released"
	ResourceCreated    = "resource.created"
	ResourceDeleted    = "resource.deleted"
)

// Keys lists every routing key the service publishes.
var Keys = []string{
	BookingCreated, BookingCancelled, BookingApproved, BookingRejected,
	AllocationCreated, AllocationReleased, ResourceCreated, ResourceDeleted,
}

// Event is the payload of every message on the exchange.  It carries
// enough information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type Event struct {
	Type       string `json:"type"`                  // routing key
	ID         string `json:"id"`                    // booking, allocation or resource id
	Kind       string `json:"kind,omitempty"`        // resource kind
	ResourceID string `json:"resource_id,omitempty"` // booked resource or occupied slot
	Code       string `json:"code,omitempty"`        // resource code when known
	UserID     string `json:"user_id,omitempty"`     // owner of the booking/allocation
	ActorID    string `json:"actor_id"`              // principal that caused the event
	Status     string `json:"status,omitempty"`      // booking status after the change
	Period     string `json:"period,omitempty"`      // human readable booked period
	OccurredAt string `json:"occurred_at"`           // RFC3339 UTC
}
