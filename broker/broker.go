package broker

import (
	"context"
	"time"

	"github.com/zllovesuki/customers/customer"

	extErrors "github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ customer.Publisher = Nop{}

// Nop drops every event. It is used when no message broker is configured.
type Nop struct{}

func (Nop) PublishCustomerEvent(ctx context.Context, e customer.Event) error {
	return nil
}

func (Nop) Close() {}

// encodeEvent renders e as a protobuf Struct
func encodeEvent(e customer.Event) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"id":          e.ID,
		"type":        string(e.Type),
		"customer_id": e.CustomerID,
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
	}
	if e.Customer != nil {
		fields["customer"] = map[string]interface{}{
			"id":                   e.Customer.ID,
			"name":                 e.Customer.Name,
			"country_of_birth":     e.Customer.CountryOfBirth,
			"country_of_residence": e.Customer.CountryOfResidence,
			"segment":              e.Customer.Segment,
		}
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot encode customer event")
	}
	return s, nil
}

// decodeEvent is the inverse of encodeEvent
func decodeEvent(s *structpb.Struct) (customer.Event, error) {
	f := s.GetFields()
	occurredAt, err := time.Parse(time.RFC3339Nano, f["occurred_at"].GetStringValue())
	if err != nil {
		return customer.Event{}, extErrors.Wrap(err, "Invalid occurred_at")
	}
	e := customer.Event{
		ID:         f["id"].GetStringValue(),
		Type:       customer.EventType(f["type"].GetStringValue()),
		CustomerID: int(f["customer_id"].GetNumberValue()),
		OccurredAt: occurredAt,
	}
	if e.ID == "" || e.Type == "" {
		return customer.Event{}, extErrors.New("Event is missing id or type")
	}
	if c := f["customer"].GetStructValue(); c != nil {
		cf := c.GetFields()
		e.Customer = &customer.Customer{
			ID:                 int(cf["id"].GetNumberValue()),
			Name:               cf["name"].GetStringValue(),
			CountryOfBirth:     cf["country_of_birth"].GetStringValue(),
			CountryOfResidence: cf["country_of_residence"].GetStringValue(),
			Segment:            cf["segment"].GetStringValue(),
		}
	}
	return e, nil
}
