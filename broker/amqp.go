package broker

import (
	"context"

	"github.com/zllovesuki/customers/customer"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ customer.Publisher = &AMQPBroker{}

const (
	customerEventsExchange string = "customer_events"
	contentType                   = "application/x-protobuf"
)

// AMQPBroker publishes and consumes customer events via RabbitMQ
type AMQPBroker struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewAMQPBroker returns a Message Broker over RabbitMQ
func NewAMQPBroker(amqpURI string) (*AMQPBroker, error) {
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		amqpConn.Close()
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	broker := &AMQPBroker{
		connection: amqpConn,
		channel:    amqpChan,
	}
	if err := broker.setupEventExchange(); err != nil {
		broker.Close()
		return nil, extErrors.Wrap(err, "Cannot declare exchange for customer events")
	}

	return broker, nil
}

func (a *AMQPBroker) setupEventExchange() error {
	return a.channel.ExchangeDeclare(
		customerEventsExchange, // name
		"topic",                // type
		true,                   // durable
		false,                  // auto-deleted
		false,                  // internal
		false,                  // no-wait
		nil,                    // arguments
	)
}

// Close will close the channel and connection to release resources
func (a *AMQPBroker) Close() {
	a.channel.Close()
	a.connection.Close()
}

// PublishCustomerEvent sends e with its type as the routing key. Nothing is sent once ctx is done.
func (a *AMQPBroker) PublishCustomerEvent(ctx context.Context, e customer.Event) error {
	if err := ctx.Err(); err != nil {
		return extErrors.Wrap(err, "Cannot publish customer event")
	}
	s, err := encodeEvent(e)
	if err != nil {
		return err
	}
	protoBytes, err := proto.Marshal(s)
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode message into bytes")
	}
	if err := a.channel.Publish(
		customerEventsExchange,
		string(e.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.OccurredAt,
			Type:         string(e.Type),
			Body:         protoBytes,
		},
	); err != nil {
		return extErrors.Wrap(err, "Cannot publish customer event")
	}
	return nil
}

// ReceiveCustomerEvents binds a durable queue to every customer event and streams the decoded
// events until ctx is done. Messages that cannot be decoded are dropped.
func (a *AMQPBroker) ReceiveCustomerEvents(ctx context.Context, qName string) (<-chan customer.Event, error) {
	if _, err := a.channel.QueueDeclare(
		qName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup queue")
	}
	if err := a.channel.QueueBind(
		qName,
		"#",
		customerEventsExchange,
		false,
		nil,
	); err != nil {
		return nil, extErrors.Wrap(err, "Cannot bind queue")
	}
	msgChan, err := a.channel.Consume(
		qName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup consumer")
	}
	rChan := make(chan customer.Event)
	go func() {
		defer close(rChan)
		consumeEvents(ctx, msgChan, rChan)
	}()
	return rChan, nil
}

// consumeEvents decodes deliveries onto out until ctx is done or msgs is closed. A delivery is
// acked once handed over; undecodable ones are dropped, and one in flight at cancellation is requeued.
func consumeEvents(ctx context.Context, msgs <-chan amqp.Delivery, out chan<- customer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			var s structpb.Struct
			if err := proto.Unmarshal(d.Body, &s); err != nil {
				d.Nack(false, false)
				continue
			}
			e, err := decodeEvent(&s)
			if err != nil {
				d.Nack(false, false)
				continue
			}
			select {
			case out <- e:
				d.Ack(false)
			case <-ctx.Done():
				d.Nack(false, true)
				return
			}
		}
	}
}
