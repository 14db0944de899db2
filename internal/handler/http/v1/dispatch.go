package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// @Summary Assign a unit to an incident
// @Description Dispatch an available unit to an incident. The unit moves to en_route, the incident to dispatched. Requires API key.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param dispatch body AssignRequest true "Assignment request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident or unit not found"
// @Failure 409 {object} map[string]string "Unit unavailable or already assigned"
// @Router /dispatch [post]
func (h *Handler) assign(c *gin.Context) {
	var input AssignRequest
	log := h.logger.WithField("method", "assign")

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

	incident, err := h.dispatchService.Assign(c.Request.Context(), input.IncidentID, input.UnitID, input.Notes)
	if err != nil {
		log.WithError(err).Warn("Failed to assign unit in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Mark a unit arrived on scene
// @Description Mark the unit's arrival at its assigned incident. Idempotent for duplicate retries. Requires API key.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Param arrival body ArriveRequest false "Arrival notes"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Failure 409 {object} map[string]string "Unit is not assigned"
// @Router /units/{id}/arrive [post]
func (h *Handler) arrive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "arrive").WithField("id", id)

	var input ArriveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			log.WithError(err).Warn("Failed to bind JSON")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	unit, err := h.dispatchService.Arrive(c.Request.Context(), id, input.Notes)
	if err != nil {
		log.WithError(err).Warn("Failed to mark arrival in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}

// @Summary Clear a unit from its incident
// @Description Release the unit from its assigned incident and return it to available. Requires API key.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Param clearance body ClearRequest true "Clearance request"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Failure 409 {object} map[string]string "Unit is not assigned"
// @Router /units/{id}/clear [post]
func (h *Handler) clear(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "clear").WithField("id", id)

	var input ClearRequest
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

	unit, err := h.dispatchService.Clear(c.Request.Context(), id, input.ResolutionCode, input.Notes)
	if err != nil {
		log.WithError(err).Warn("Failed to clear unit in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}

// @Summary Resolve an incident
// @Description Close an incident and release every unit still attached to it. Requires API key.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param resolution body ResolveRequest true "Resolution summary"
// @Success 200 {object} ResolveResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/resolve [post]
func (h *Handler) resolveIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "resolveIncident").WithField("id", id)

	var input ResolveRequest
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

	incident, freed, err := h.dispatchService.Resolve(c.Request.Context(), id, input.Summary)
	if err != nil {
		log.WithError(err).Warn("Failed to resolve incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{
		Incident:   ModelToIncidentResponse(incident),
		FreedUnits: ModelsToUnitResponses(freed),
	})
}

// @Summary Cancel an incident
// @Description Cancel an incident and release every unit still attached to it. Requires API key.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} ResolveResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/cancel [post]
func (h *Handler) cancelIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "cancelIncident").WithField("id", id)

	incident, freed, err := h.dispatchService.CancelIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to cancel incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{
		Incident:   ModelToIncidentResponse(incident),
		FreedUnits: ModelsToUnitResponses(freed),
	})
}

// @Summary Cancel a unit's dispatch
// @Description Cancel the unit's current assignment and return it to available. The incident is not changed. Requires API key.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Failure 409 {object} map[string]string "Unit is not assigned"
// @Router /units/{id}/cancel [post]
func (h *Handler) cancelDispatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "cancelDispatch").WithField("id", id)

	unit, err := h.dispatchService.CancelDispatch(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to cancel dispatch in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}
