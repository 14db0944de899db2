package broadcast

import (
	"encoding/json"
	"time"

	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/sirupsen/logrus"
)

// Типы серверных сообщений realtime-канала
const (
	MessageIncidentUpdate        = "incident_update"
	MessageUnitUpdate            = "unit_update"
	MessageDispatchUpdate        = "dispatch_update"
	MessageConnectionEstablished = "connection_established"
	MessageError                 = "error"
)

// Envelope - серверное сообщение realtime-канала
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster доставляет доменные события живым подписчикам по ролям.
// Доставка best-effort: сбой отправки одному хэндлу приводит к его
// отписке и не блокирует доставку остальным.
type Broadcaster struct {
	registry *Registry
	logger   *logrus.Logger
}

func NewBroadcaster(registry *Registry, logger *logrus.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger,
	}
}

// Subscribe регистрирует хэндл под ролью и отправляет подтверждение
// подключения
func (b *Broadcaster) Subscribe(sub Subscriber, role models.Role) {
	b.registry.Add(sub, role)
	b.send(sub, Envelope{
		Type:      MessageConnectionEstablished,
		Message:   "connected as " + string(role),
		Timestamp: time.Now().UTC(),
	})
	b.logger.WithField("role", role).Debug("Subscriber connected")
}

// Unsubscribe снимает регистрацию хэндла. Идемпотентна.
func (b *Broadcaster) Unsubscribe(sub Subscriber) {
	b.registry.Remove(sub)
}

// Publish доставляет сообщение всем живым подписчикам целевых ролей.
// Без явных ролей рассылка идет диспетчерам.
func (b *Broadcaster) Publish(env Envelope, roles ...models.Role) {
	if len(roles) == 0 {
		roles = []models.Role{models.RoleDispatcher}
	}

	payload, err := json.Marshal(env)
	if err != nil {
		b.logger.WithError(err).Error("Failed to marshal broadcast envelope")
		return
	}

	for _, sub := range b.registry.Members(roles...) {
		if err := sub.Send(payload); err != nil {
			// Мертвое или зависшее подключение: отписываем и продолжаем
			b.logger.WithError(err).Debug("Dropping subscriber after failed send")
			b.registry.Remove(sub)
			_ = sub.Close()
		}
	}
}

// PublishEvent отображает доменное событие в серверное сообщение и целевые
// роли. События уровня инцидента уходят диспетчерам и супервизорам, события
// уровня юнита - диспетчерам и ответчикам; админы получают все.
func (b *Broadcaster) PublishEvent(event *models.Event) {
	env := Envelope{
		Type:      messageType(event.Type),
		Data:      event,
		Timestamp: event.CreatedAt,
	}
	b.Publish(env, targetRoles(event.Type)...)
}

// ConnectionCounts возвращает срез числа подключений по ролям для
// диагностики
func (b *Broadcaster) ConnectionCounts() map[models.Role]int {
	return b.registry.Counts()
}

func (b *Broadcaster) send(sub Subscriber, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		b.logger.WithError(err).Error("Failed to marshal envelope")
		return
	}
	if err := sub.Send(payload); err != nil {
		b.logger.WithError(err).Debug("Dropping subscriber after failed send")
		b.registry.Remove(sub)
		_ = sub.Close()
	}
}

func messageType(eventType models.EventType) string {
	switch eventType {
	case models.EventIncidentCreated, models.EventIncidentUpdated, models.EventIncidentResolved:
		return MessageIncidentUpdate
	case models.EventUnitStatusChanged:
		return MessageUnitUpdate
	default:
		// unit_assigned, unit_arrived, unit_cleared, status_note_added
		return MessageDispatchUpdate
	}
}

func targetRoles(eventType models.EventType) []models.Role {
	switch eventType {
	case models.EventIncidentCreated, models.EventIncidentUpdated, models.EventIncidentResolved:
		return []models.Role{models.RoleDispatcher, models.RoleSupervisor, models.RoleAdmin}
	default:
		return []models.Role{models.RoleDispatcher, models.RoleResponder, models.RoleAdmin}
	}
}
