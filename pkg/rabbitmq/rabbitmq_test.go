package rabbitmq

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"smooth/internal/models"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type acks struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *acks) Ack(tag uint64, multiple bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *acks) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *acks) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func delivery(t *testing.T, a *acks, tag uint64, event any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: a, DeliveryTag: tag, Body: body}
}

func TestDeliver(t *testing.T) {
	a := &acks{}
	event := models.RecordEvent{Entity: "product", Action: models.ActionCreated, Key: "k1", OccurredAt: time.Now().UTC()}

	var got models.RecordEvent
	deliver(delivery(t, a, 1, event), func(e models.RecordEvent) error { got = e; return nil }, zap.NewNop())
	assert.Equal(t, []uint64{1}, a.acked)
	assert.Equal(t, "product.created", got.RoutingKey())
	assert.Equal(t, "k1", got.Key)

	failing := func(models.RecordEvent) error { return errors.New("busy") }
	deliver(delivery(t, a, 2, event), failing, zap.NewNop())
	redelivered := delivery(t, a, 3, event)
	redelivered.Redelivered = true
	deliver(redelivered, failing, zap.NewNop())
	assert.Equal(t, []uint64{2, 3}, a.nacked)
	assert.Equal(t, []bool{true, false}, a.requeue)
}

func TestDeliver_DropsUndecodable(t *testing.T) {
	a := &acks{}
	called := false
	deliver(amqp.Delivery{Acknowledger: a, DeliveryTag: 9, Body: []byte("{")}, func(models.RecordEvent) error {
		called = true
		return nil
	}, zap.NewNop())
	assert.False(t, called)
	assert.Equal(t, []uint64{9}, a.nacked)
	assert.Equal(t, []bool{false}, a.requeue)
}

func TestLogRecordEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := LogRecordEvent(zap.New(core))

	require.NoError(t, handler(models.RecordEvent{Entity: "review", Action: models.ActionDeleted, Key: "r1"}))
	entries := logs.FilterField(zap.String("event", "review.deleted")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "record event", entries[0].Message)
}
