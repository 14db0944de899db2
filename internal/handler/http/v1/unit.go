package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/shenikar/dispatch_coordination_system/internal/service"
)

// @Summary Create a new unit
// @Description Register a new responder unit. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param unit body CreateUnitRequest true "Unit creation request"
// @Success 201 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Unit name already exists"
// @Router /units [post]
func (h *Handler) createUnit(c *gin.Context) {
	var input CreateUnitRequest
	log := h.logger.WithField("method", "createUnit")

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

	model := DTOToUnitModel(input)
	if err := h.dispatchService.CreateUnit(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to create unit in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToUnitResponse(model))
}

// @Summary Get a list of units
// @Description Get a paginated list of units with optional status/type filters. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Success 200 {object} UnitListResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units [get]
func (h *Handler) listUnits(c *gin.Context) {
	log := h.logger.WithField("method", "listUnits")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	filter := service.UnitFilter{Page: page, PageSize: pageSize}
	if v := c.Query("status"); v != "" {
		status := models.UnitStatus(v)
		filter.Status = &status
	}
	if v := c.Query("type"); v != "" {
		unitType := models.UnitType(v)
		filter.Type = &unitType
	}

	units, total, err := h.dispatchService.ListUnits(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list units from service")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, UnitListResponse{
		Units: ModelsToUnitResponses(units),
		Total: total,
		Page:  page,
		Size:  pageSize,
	})
}

// @Summary Get available units
// @Description Get units that are available for dispatch. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param type query string false "Filter by type"
// @Success 200 {array} UnitResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /units/available [get]
func (h *Handler) listAvailableUnits(c *gin.Context) {
	log := h.logger.WithField("method", "listAvailableUnits")

	available := models.UnitStatusAvailable
	filter := service.UnitFilter{Status: &available, Page: 1, PageSize: 100}
	if v := c.Query("type"); v != "" {
		unitType := models.UnitType(v)
		filter.Type = &unitType
	}

	units, _, err := h.dispatchService.ListUnits(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list available units from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToUnitResponses(units))
}

// @Summary Get unit by ID
// @Description Get a single unit by its ID. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Router /units/{id} [get]
func (h *Handler) getUnit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "getUnit").WithField("id", id)

	unit, err := h.dispatchService.GetUnit(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get unit from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}

// @Summary Change unit availability
// @Description Take a unit out of service or return it to service. An attached unit must be cleared first. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Param status body UnitStatusRequest true "Availability request"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Failure 409 {object} map[string]string "Unit is attached to an incident"
// @Router /units/{id}/status [post]
func (h *Handler) setUnitStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "setUnitStatus").WithField("id", id)

	var input UnitStatusRequest
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

	unit, err := h.dispatchService.SetUnitStatus(c.Request.Context(), id, models.UnitStatus(input.Status))
	if err != nil {
		log.WithError(err).Warn("Failed to change unit availability in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}
