package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/broadcast"
	"github.com/shenikar/dispatch_coordination_system/internal/config"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/shenikar/dispatch_coordination_system/internal/service"
	"github.com/shenikar/dispatch_coordination_system/internal/service/mocks"
	"github.com/shenikar/dispatch_coordination_system/internal/statemachine"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestHandler создает новый экземпляр Handler с мокированным сервисом
func newTestHandler(t *testing.T) (*Handler, *mocks.MockDispatchService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockDispatchService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys:       []string{"test-api-key"},
		WSSendTimeout: 2 * time.Second,
	}

	broadcaster := broadcast.NewBroadcaster(broadcast.NewRegistry(), logger)
	handler := NewHandler(mockService, broadcaster, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, mockService, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func authHeader() map[string]string {
	return map[string]string{"X-API-Key": "test-api-key"}
}

func TestCreateIncident_HandlerSuccess(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := CreateIncidentRequest{
		Type:        "fire",
		Priority:    2,
		Address:     "ул. Ленина, 1",
		Description: "Возгорание на складе",
	}

	mockService.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			// Симулируем присвоение ID и статуса в хранилище
			inc.ID = incidentID
			inc.Status = models.IncidentStatusNew
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "new", resp.Status)
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{"type": "fire"`), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateIncident_ValidationError(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := CreateIncidentRequest{ // Недопустимый тип и приоритет
		Type:        "flood",
		Priority:    9,
		Address:     "ул. Ленина, 1",
		Description: "test",
	}

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIncident_Unauthorized(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{}`), map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetIncident_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(nil, fmt.Errorf("service: %w", service.ErrNotFound)).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/"+incidentID.String(), nil, authHeader())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetIncident_InvalidID(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents/not-a-uuid", nil, authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListIncidents_PassesFilters(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter service.IncidentFilter) ([]*models.Incident, int, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, models.IncidentStatusNew, *filter.Status)
			require.NotNil(t, filter.Priority)
			assert.Equal(t, 1, *filter.Priority)
			assert.Equal(t, 2, filter.Page)
			return []*models.Incident{}, 0, nil
		}).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?status=new&priority=1&page=2", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssign_HandlerSuccess(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()
	unitID := uuid.New()
	reqBody := AssignRequest{IncidentID: incidentID, UnitID: unitID}

	mockService.EXPECT().
		Assign(gomock.Any(), incidentID, unitID, "").
		Return(&models.Incident{ID: incidentID, Status: models.IncidentStatusDispatched}, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/dispatch", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dispatched", resp.Status)
}

func TestAssign_UnitUnavailableConflict(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := AssignRequest{IncidentID: uuid.New(), UnitID: uuid.New()}

	mockService.EXPECT().
		Assign(gomock.Any(), reqBody.IncidentID, reqBody.UnitID, "").
		Return(nil, fmt.Errorf("service: %w", service.ErrUnitUnavailable)).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/dispatch", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAssign_TerminalIncidentConflict(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := AssignRequest{IncidentID: uuid.New(), UnitID: uuid.New()}

	mockService.EXPECT().
		Assign(gomock.Any(), reqBody.IncidentID, reqBody.UnitID, "").
		Return(nil, fmt.Errorf("service: %w", statemachine.ErrIllegalTransition)).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/dispatch", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestArrive_HandlerSuccessWithoutBody(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	unitID := uuid.New()

	mockService.EXPECT().
		Arrive(gomock.Any(), unitID, "").
		Return(&models.Unit{ID: unitID, Status: models.UnitStatusOnScene}, nil).
		Times(1)

	w := makeRequest(router, "POST", "/api/v1/units/"+unitID.String()+"/arrive", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp UnitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "on_scene", resp.Status)
}

func TestClear_RequiresResolutionCode(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	unitID := uuid.New()

	mockService.EXPECT().Clear(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/units/"+unitID.String()+"/clear", bytes.NewBufferString(`{}`), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveIncident_HandlerSuccess(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()
	freedID := uuid.New()

	mockService.EXPECT().
		Resolve(gomock.Any(), incidentID, "ликвидировано").
		Return(
			&models.Incident{ID: incidentID, Status: models.IncidentStatusResolved},
			[]*models.Unit{{ID: freedID, Status: models.UnitStatusAvailable}},
			nil,
		).Times(1)

	bodyBytes, _ := json.Marshal(ResolveRequest{Summary: "ликвидировано"})
	w := makeRequest(router, "POST", "/api/v1/incidents/"+incidentID.String()+"/resolve", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "resolved", resp.Incident.Status)
	require.Len(t, resp.FreedUnits, 1)
	assert.Equal(t, freedID, resp.FreedUnits[0].ID)
}

func TestSetUnitStatus_AttachedConflict(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	unitID := uuid.New()

	mockService.EXPECT().
		SetUnitStatus(gomock.Any(), unitID, models.UnitStatusUnavailable).
		Return(nil, fmt.Errorf("service: %w", service.ErrAlreadyAssigned)).
		Times(1)

	bodyBytes, _ := json.Marshal(UnitStatusRequest{Status: "unavailable"})
	w := makeRequest(router, "POST", "/api/v1/units/"+unitID.String()+"/status", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetUnitStatus_RejectsDispatchStatus(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	unitID := uuid.New()

	mockService.EXPECT().SetUnitStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(UnitStatusRequest{Status: "en_route"})
	w := makeRequest(router, "POST", "/api/v1/units/"+unitID.String()+"/status", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateUnit_HandlerSuccess(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	unitID := uuid.New()
	reqBody := CreateUnitRequest{Name: "Расчет 101", Type: "fire"}

	mockService.EXPECT().
		CreateUnit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, unit *models.Unit) error {
			unit.ID = unitID
			unit.Status = models.UnitStatusAvailable
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/units", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp UnitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, unitID, resp.ID)
	assert.Equal(t, "available", resp.Status)
}

func TestCreateUnit_DuplicateNameConflict(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := CreateUnitRequest{Name: "Расчет 101", Type: "fire"}

	mockService.EXPECT().
		CreateUnit(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("service: %w", service.ErrConflict)).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/units", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListAvailableUnits_ForcesAvailableFilter(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		ListUnits(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter service.UnitFilter) ([]*models.Unit, int, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, models.UnitStatusAvailable, *filter.Status)
			return []*models.Unit{}, 0, nil
		}).Times(1)

	w := makeRequest(router, "GET", "/api/v1/units/available", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWSStatus_ReturnsCounts(t *testing.T) {
	handler, _, router := newTestHandler(t)

	// Регистрируем подписчиков напрямую через broadcaster
	handler.broadcaster.Subscribe(&nopSubscriber{}, models.RoleDispatcher)
	handler.broadcaster.Subscribe(&nopSubscriber{}, models.RoleResponder)

	w := makeRequest(router, "GET", "/api/v1/ws/status", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ConnectionStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalConnections)
	assert.Equal(t, 1, resp.Connections[models.RoleDispatcher])
}

func TestHealthCheck_NoAuthRequired(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

// nopSubscriber - заглушка подписчика для проверки счетчиков подключений
type nopSubscriber struct{}

func (n *nopSubscriber) Send([]byte) error { return nil }
func (n *nopSubscriber) Close() error      { return nil }
