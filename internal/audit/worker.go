package audit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/dispatch_coordination_system/internal/config"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/sirupsen/logrus"
)

// Worker вычитывает очередь аудита и доставляет события во внешний
// коллектор
type Worker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	cfg         *config.Config
	httpClient  *http.Client
}

func NewWorker(redisClient *redis.Client, logger *logrus.Logger, cfg *config.Config) *Worker {
	return &Worker{
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: cfg.AuditTimeout,
		},
	}
}

// Start запускает горутину обработки очереди аудита
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting audit worker...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping audit worker.")
				return
			default:
				// BRPOP с нулевым таймаутом - бесконечное ожидание
				result, err := w.redisClient.BRPop(ctx, 0, auditQueueKey).Result()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						continue
					}
					w.logger.WithError(err).Error("Failed to pop audit event from Redis")
					time.Sleep(w.cfg.AuditTimeout)
					continue
				}

				// result[0] - ключ, result[1] - значение
				payload := result[1]
				var event models.Event
				if err := json.Unmarshal([]byte(payload), &event); err != nil {
					w.logger.WithError(err).Error("Failed to unmarshal audit event from Redis")
					continue
				}

				w.deliver(ctx, event, payload)
			}
		}
	}()
}

func (w *Worker) deliver(ctx context.Context, event models.Event, rawPayload string) {
	log := w.logger.WithField("event_type", event.Type).WithField("incident_id", event.IncidentID)
	log.Debug("Delivering audit event...")

	if w.cfg.AuditURL == "" {
		log.Warn("Audit collector URL is not configured. Skipping audit delivery.")
		return
	}

	maxRetries := w.cfg.AuditMaxRetries
	delay := w.cfg.AuditBaseDelay

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "POST", w.cfg.AuditURL, bytes.NewBufferString(rawPayload))
		if err != nil {
			log.WithError(err).Errorf("Failed to create audit request. Retries left: %d", maxRetries-1-i)
			continue
		}

		req.Header.Set("Content-Type", "application/json")

		// Подпись HMAC, если задан секрет коллектора
		if w.cfg.AuditSecret != "" {
			req.Header.Set("X-Audit-Signature", signPayload(rawPayload, w.cfg.AuditSecret))
		}

		resp, err := w.httpClient.Do(req)
		if err != nil {
			log.WithError(err).Warnf("Failed to send audit event. Retrying in %v. Retries left: %d", delay, maxRetries-1-i)
			time.Sleep(delay)
			delay *= 2
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			log.Debug("Audit event delivered successfully.")
			return
		}

		log.Warnf("Audit delivery failed with status code %d. Retrying in %v. Retries left: %d", resp.StatusCode, delay, maxRetries-1-i)
		time.Sleep(delay)
		delay *= 2
	}

	log.Errorf("Failed to deliver audit event after %d retries.", maxRetries)
}

// signPayload считает HMAC-SHA256 подпись тела запроса
func signPayload(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
