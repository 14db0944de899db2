package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/shenikar/dispatch_coordination_system/internal/service"
)

const auditQueueKey = "audit_events"

// RedisPublisher реализует service.AuditSink через очередь в Redis.
// События уже зафиксированы в журнале транзакцией команды; очередь
// служит для доставки во внешний коллектор аудита.
type RedisPublisher struct {
	redisClient *redis.Client
}

func NewRedisPublisher(client *redis.Client) service.AuditSink {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Record публикует доменное событие в очередь аудита
func (p *RedisPublisher) Record(ctx context.Context, event *models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	// LPUSH в левую часть списка, воркер читает BRPOP справа
	if err := p.redisClient.LPush(ctx, auditQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish audit event to Redis: %w", err)
	}
	return nil
}
