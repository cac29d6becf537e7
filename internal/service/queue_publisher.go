package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/wedding-planner/internal/metrics"
	"github.com/iliyamo/wedding-planner/internal/queue"
)

// EventPublisher hands planning events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.PlanningEvent) error
}

// AMQPPublisher publishes to the durable planning.events queue, dialling
// once per publish. Errors are logged and returned.
type AMQPPublisher struct {
	URL     string
	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

func NewAMQPPublisher(url string, log zerolog.Logger, m *metrics.Metrics) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Log: log, Metrics: m}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.PlanningEvent) (err error) {
	defer func() { p.Metrics.EventPublished(ev.Type, err) }()

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(2 * time.Second)})
	if err != nil {
		p.Log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err = ch.QueueDeclare(queue.PlanningQueue, true, false, false, false, nil); err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err = ch.PublishWithContext(ctx, "", queue.PlanningQueue, false, false, pub); err != nil {
		p.Log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// NopPublisher drops every event. Used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.PlanningEvent) error { return nil }
