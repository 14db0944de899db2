package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shenikar/dispatch_coordination_system/internal/broadcast"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) broadcast.Envelope {
	t.Helper()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))
	var env broadcast.Envelope
	require.NoError(t, json.NewDecoder(conn).Decode(&env))
	return env
}

func TestWSEndpoint_PingPong(t *testing.T) {
	handler, _, router := newTestHandler(t)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	conn := dialWS(t, srv, "/api/v1/ws?api_key=test-api-key&role=responder")

	// Первым приходит подтверждение подключения
	ack := readEnvelope(t, conn)
	assert.Equal(t, broadcast.MessageConnectionEstablished, ack.Type)
	assert.Contains(t, ack.Message, "responder")

	require.Eventually(t, func() bool {
		return handler.broadcaster.ConnectionCounts()[models.RoleResponder] == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Ping возвращает pong
	require.NoError(t, json.NewEncoder(conn).Encode(map[string]string{"type": "ping"}))
	pong := readEnvelope(t, conn)
	assert.Equal(t, "pong", pong.Type)

	// Неизвестный кадр возвращается эхом
	require.NoError(t, json.NewEncoder(conn).Encode(map[string]string{"type": "whatever"}))
	echo := readEnvelope(t, conn)
	assert.Equal(t, "echo", echo.Type)
}

func TestWSEndpoint_ReceivesBroadcast(t *testing.T) {
	handler, _, router := newTestHandler(t)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	conn := dialWS(t, srv, "/api/v1/ws?api_key=test-api-key&role=dispatcher")
	ack := readEnvelope(t, conn)
	require.Equal(t, broadcast.MessageConnectionEstablished, ack.Type)

	require.Eventually(t, func() bool {
		return handler.broadcaster.ConnectionCounts()[models.RoleDispatcher] == 1
	}, 2*time.Second, 10*time.Millisecond)

	handler.broadcaster.PublishEvent(&models.Event{
		Type:      models.EventIncidentCreated,
		Message:   "Incident created",
		CreatedAt: time.Now().UTC(),
	})

	env := readEnvelope(t, conn)
	assert.Equal(t, broadcast.MessageIncidentUpdate, env.Type)
}

func TestWSEndpoint_RejectsInvalidKey(t *testing.T) {
	_, _, router := newTestHandler(t)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?api_key=wrong"
	_, err := websocket.Dial(wsURL, "", srv.URL)
	assert.Error(t, err)
}

func TestWSEndpoint_RejectsUnknownRole(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/ws?api_key=test-api-key&role=ghost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
