package broadcast

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscriber собирает доставленные сообщения и умеет имитировать
// мертвое подключение
type fakeSubscriber struct {
	payloads [][]byte
	sendErr  error
	closed   bool
}

func (f *fakeSubscriber) Send(payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeSubscriber) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSubscriber) envelopes(t *testing.T) []Envelope {
	t.Helper()
	envs := make([]Envelope, len(f.payloads))
	for i, payload := range f.payloads {
		require.NoError(t, json.Unmarshal(payload, &envs[i]))
	}
	return envs
}

func newTestBroadcaster() (*Broadcaster, *Registry) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	registry := NewRegistry()
	return NewBroadcaster(registry, logger), registry
}

func TestSubscribe_SendsConnectionAck(t *testing.T) {
	b, _ := newTestBroadcaster()
	sub := &fakeSubscriber{}

	b.Subscribe(sub, models.RoleDispatcher)

	envs := sub.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, MessageConnectionEstablished, envs[0].Type)
	assert.Contains(t, envs[0].Message, "dispatcher")
}

func TestPublish_DefaultsToDispatchers(t *testing.T) {
	b, _ := newTestBroadcaster()
	dispatcher := &fakeSubscriber{}
	responder := &fakeSubscriber{}
	b.Subscribe(dispatcher, models.RoleDispatcher)
	b.Subscribe(responder, models.RoleResponder)

	b.Publish(Envelope{Type: MessageIncidentUpdate, Timestamp: time.Now().UTC()})

	// Подтверждение подключения плюс само сообщение
	assert.Len(t, dispatcher.payloads, 2)
	// Ответчик получил только подтверждение
	assert.Len(t, responder.payloads, 1)
}

func TestPublishEvent_IncidentEventTargetsSupervisors(t *testing.T) {
	b, _ := newTestBroadcaster()
	dispatcher := &fakeSubscriber{}
	responder := &fakeSubscriber{}
	supervisor := &fakeSubscriber{}
	admin := &fakeSubscriber{}
	b.Subscribe(dispatcher, models.RoleDispatcher)
	b.Subscribe(responder, models.RoleResponder)
	b.Subscribe(supervisor, models.RoleSupervisor)
	b.Subscribe(admin, models.RoleAdmin)

	incidentID := uuid.New()
	b.PublishEvent(&models.Event{
		Type:       models.EventIncidentResolved,
		IncidentID: &incidentID,
		CreatedAt:  time.Now().UTC(),
	})

	assert.Len(t, dispatcher.payloads, 2)
	assert.Len(t, supervisor.payloads, 2)
	assert.Len(t, admin.payloads, 2)
	// События уровня инцидента ответчикам не рассылаются
	assert.Len(t, responder.payloads, 1)

	envs := dispatcher.envelopes(t)
	assert.Equal(t, MessageIncidentUpdate, envs[1].Type)
}

func TestPublishEvent_DispatchEventTargetsResponders(t *testing.T) {
	b, _ := newTestBroadcaster()
	responder := &fakeSubscriber{}
	supervisor := &fakeSubscriber{}
	b.Subscribe(responder, models.RoleResponder)
	b.Subscribe(supervisor, models.RoleSupervisor)

	incidentID := uuid.New()
	unitID := uuid.New()
	b.PublishEvent(&models.Event{
		Type:       models.EventUnitAssigned,
		IncidentID: &incidentID,
		UnitID:     &unitID,
		CreatedAt:  time.Now().UTC(),
	})

	require.Len(t, responder.payloads, 2)
	envs := responder.envelopes(t)
	assert.Equal(t, MessageDispatchUpdate, envs[1].Type)
	// События диспетчеризации супервизорам не рассылаются
	assert.Len(t, supervisor.payloads, 1)
}

func TestPublish_DropsDeadSubscriber(t *testing.T) {
	b, registry := newTestBroadcaster()
	healthy := &fakeSubscriber{}
	dead := &fakeSubscriber{sendErr: errors.New("broken pipe")}
	registry.Add(healthy, models.RoleDispatcher)
	registry.Add(dead, models.RoleDispatcher)

	b.Publish(Envelope{Type: MessageUnitUpdate, Timestamp: time.Now().UTC()})

	// Живой подписчик получил сообщение, мертвый отписан и закрыт
	assert.Len(t, healthy.payloads, 1)
	assert.True(t, dead.closed)
	assert.Equal(t, 1, registry.Counts()[models.RoleDispatcher])

	// Последующая рассылка мертвого уже не трогает
	b.Publish(Envelope{Type: MessageUnitUpdate, Timestamp: time.Now().UTC()})
	assert.Len(t, healthy.payloads, 2)
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	b, registry := newTestBroadcaster()
	sub := &fakeSubscriber{}
	b.Subscribe(sub, models.RoleAdmin)

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)

	assert.Equal(t, 0, registry.Counts()[models.RoleAdmin])
}

func TestConnectionCounts(t *testing.T) {
	b, _ := newTestBroadcaster()
	b.Subscribe(&fakeSubscriber{}, models.RoleDispatcher)
	b.Subscribe(&fakeSubscriber{}, models.RoleDispatcher)
	b.Subscribe(&fakeSubscriber{}, models.RoleResponder)

	counts := b.ConnectionCounts()
	assert.Equal(t, 2, counts[models.RoleDispatcher])
	assert.Equal(t, 1, counts[models.RoleResponder])
	assert.Equal(t, 0, counts[models.RoleSupervisor])
	assert.Equal(t, 0, counts[models.RoleAdmin])
}

func TestRegistryClose_DisconnectsEveryone(t *testing.T) {
	b, registry := newTestBroadcaster()
	first := &fakeSubscriber{}
	second := &fakeSubscriber{}
	b.Subscribe(first, models.RoleDispatcher)
	b.Subscribe(second, models.RoleSupervisor)

	registry.Close()

	assert.True(t, first.closed)
	assert.True(t, second.closed)
	for _, n := range registry.Counts() {
		assert.Zero(t, n)
	}
}
