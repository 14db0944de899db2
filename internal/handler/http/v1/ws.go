package v1

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/dispatch_coordination_system/internal/broadcast"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"golang.org/x/net/websocket"
)

// Подключение с повторяющимся мусором в кадрах отключается
const maxDecodeErrorsPerConn = 3

// clientFrame - входящий кадр realtime-канала
type clientFrame struct {
	Type string `json:"type"`
}

// wsSubscriber оборачивает websocket-подключение в broadcast.Subscriber.
// Запись защищена мьютексом и ограничена дедлайном, чтобы зависший клиент
// не блокировал рассылку.
type wsSubscriber struct {
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

func (s *wsSubscriber) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	_, err := s.conn.Write(payload)
	return err
}

func (s *wsSubscriber) Close() error {
	return s.conn.Close()
}

// @Summary Subscribe to realtime events
// @Description Upgrade to a WebSocket subscription scoped by role. Authenticate with the api_key query parameter or the X-API-Key header.
// @Tags System
// @Param api_key query string false "API key"
// @Param role query string false "Subscriber role" default(dispatcher)
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} map[string]string "Unknown role"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /ws [get]
func (h *Handler) wsEndpoint(c *gin.Context) {
	apiKey := c.Query("api_key")
	if apiKey == "" {
		apiKey = c.GetHeader("X-API-Key")
	}
	if !validAPIKey(h.cfg, apiKey) {
		h.logger.Warn("WebSocket connection rejected: invalid API key")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	role, err := models.ParseRole(c.DefaultQuery("role", string(models.RoleDispatcher)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws := websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, role)
	})
	ws.ServeHTTP(c.Writer, c.Request)
}

// serveWS обслуживает одно подключение: регистрирует подписчика и читает
// клиентские кадры до разрыва
func (h *Handler) serveWS(conn *websocket.Conn, role models.Role) {
	sub := &wsSubscriber{conn: conn, timeout: h.cfg.WSSendTimeout}
	h.broadcaster.Subscribe(sub, role)
	defer func() {
		h.broadcaster.Unsubscribe(sub)
		_ = conn.Close()
	}()

	log := h.logger.WithField("role", role)
	decoder := json.NewDecoder(conn)
	decodeErrors := 0

	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				return
			}
			decodeErrors++
			log.WithError(err).Debug("Failed to decode client frame")
			if decodeErrors >= maxDecodeErrorsPerConn {
				log.Warn("Disconnecting client after repeated malformed frames")
				return
			}
			h.sendEnvelope(sub, broadcast.Envelope{
				Type:      broadcast.MessageError,
				Message:   "malformed frame",
				Timestamp: time.Now().UTC(),
			})
			// Декодер после синтаксической ошибки не восстанавливается
			decoder = json.NewDecoder(conn)
			continue
		}

		var frame clientFrame
		_ = json.Unmarshal(raw, &frame)

		switch frame.Type {
		case "ping":
			h.sendEnvelope(sub, broadcast.Envelope{
				Type:      "pong",
				Timestamp: time.Now().UTC(),
			})
		default:
			// Неизвестные кадры возвращаются эхом, как подтверждение приема
			h.sendEnvelope(sub, broadcast.Envelope{
				Type:      "echo",
				Data:      raw,
				Timestamp: time.Now().UTC(),
			})
		}
	}
}

func (h *Handler) sendEnvelope(sub *wsSubscriber, env broadcast.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal envelope")
		return
	}
	if err := sub.Send(payload); err != nil {
		h.logger.WithError(err).Debug("Failed to send envelope to client")
	}
}
