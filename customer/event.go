package customer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a change to the customers table
type EventType string

// define constants
const (
	EventCreated EventType = "customer.created"
	EventUpdated EventType = "customer.updated"
	EventDeleted EventType = "customer.deleted"
)

// Event is published after a write that affected a row
type Event struct {
	ID         string
	Type       EventType
	CustomerID int
	Customer   *Customer // nil for EventDeleted
	OccurredAt time.Time
}

// NewEvent stamps a new Event with an id and the current time
func NewEvent(t EventType, id int, cust *Customer) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		CustomerID: id,
		Customer:   cust,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers change events to whoever is listening
type Publisher interface {
	PublishCustomerEvent(ctx context.Context, e Event) error
}
