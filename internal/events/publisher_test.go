package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	published  []amqp.Publishing
	keys       []string
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, exchange+":"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRabbitPublisherPublishesEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newRabbitPublisher(ch, nil)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, p.Publish(context.Background(), TypeVisitRecorded, VisitRecordedV1{VisitID: "v1", UrgencyLevel: "Urgent", Escalated: true}))

	assert.Equal(t, []string{"carefront.intake/topic"}, ch.declared)
	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"carefront.intake:intake.visit_recorded"}, ch.keys)

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	assert.Equal(t, msg.MessageId, env.ID)
	assert.Equal(t, TypeVisitRecorded, env.Type)
	assert.JSONEq(t, `{"visit_id":"v1","session_id":"","urgency_level":"Urgent","red_flag_count":0,"escalated":true,"persisted":false}`, string(env.Payload))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitPublisherHandleKeepsOutboxID(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newRabbitPublisher(ch, nil)
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, p.Handle(context.Background(), OutboxEntry{ID: id, Type: TypeAppointmentStatusChanged, Payload: json.RawMessage(`{}`), CreatedAt: time.Now()}))
	require.Len(t, ch.published, 1)
	assert.Equal(t, id.String(), ch.published[0].MessageId)
}

func TestRabbitPublisherErrors(t *testing.T) {
	_, err := newRabbitPublisher(&fakeChannel{declareErr: errors.New("access refused")}, nil)
	assert.ErrorContains(t, err, "declare exchange")

	p, err := newRabbitPublisher(&fakeChannel{publishErr: errors.New("channel closed")}, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, p.Publish(context.Background(), TypeAppointmentRequested, AppointmentRequestedV1{}), "channel closed")

	assert.Error(t, p.Publish(context.Background(), TypeAppointmentRequested, make(chan int)))
}
