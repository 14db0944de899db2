package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/broadcast"
	"github.com/shenikar/dispatch_coordination_system/internal/config"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/shenikar/dispatch_coordination_system/internal/service"
	"github.com/shenikar/dispatch_coordination_system/internal/statemachine"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	dispatchService service.DispatchService
	broadcaster     *broadcast.Broadcaster
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(dispatchService service.DispatchService, broadcaster *broadcast.Broadcaster, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		dispatchService: dispatchService,
		broadcaster:     broadcaster,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondError отображает доменную таксономию ошибок в HTTP-статусы
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnitUnavailable),
		errors.Is(err, service.ErrAlreadyAssigned),
		errors.Is(err, service.ErrNotAssigned),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, statemachine.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Create a new incident
// @Description Register a new incident in the system. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input CreateIncidentRequest
	log := h.logger.WithField("method", "createIncident")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := DTOToIncidentModel(input)
	if err := h.dispatchService.CreateIncident(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to create incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(model))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of incidents with optional status/type/priority filters. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param priority query int false "Filter by priority"
// @Success 200 {object} IncidentListResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	filter := service.IncidentFilter{Page: page, PageSize: pageSize}
	if v := c.Query("status"); v != "" {
		status := models.IncidentStatus(v)
		filter.Status = &status
	}
	if v := c.Query("type"); v != "" {
		incidentType := models.IncidentType(v)
		filter.Type = &incidentType
	}
	if v := c.Query("priority"); v != "" {
		priority, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority filter"})
			return
		}
		filter.Priority = &priority
	}

	incidents, total, err := h.dispatchService.ListIncidents(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, IncidentListResponse{
		Incidents: ModelsToIncidentResponses(incidents),
		Total:     total,
		Page:      page,
		Size:      pageSize,
	})
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.dispatchService.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Get incident event log
// @Description Get the event log of an incident, newest first. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param limit query int false "Maximum number of events" default(100)
// @Success 200 {array} EventResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/events [get]
func (h *Handler) listIncidentEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "listIncidentEvents").WithField("id", id)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.dispatchService.ListIncidentEvents(c.Request.Context(), id, limit)
	if err != nil {
		log.WithError(err).Warn("Failed to list incident events from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToEventResponses(events))
}

// @Summary Get realtime connection status
// @Description Get counts of live subscriber connections by role. Requires API key.
// @Tags System
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} ConnectionStatusResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /ws/status [get]
func (h *Handler) wsStatus(c *gin.Context) {
	counts := h.broadcaster.ConnectionCounts()
	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, ConnectionStatusResponse{
		Connections:      counts,
		TotalConnections: total,
	})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
