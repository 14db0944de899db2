package v1

import "github.com/shenikar/dispatch_coordination_system/internal/models"

// DTOToIncidentModel преобразует DTO регистрации в доменную модель
func DTOToIncidentModel(dto CreateIncidentRequest) *models.Incident {
	return &models.Incident{
		Type:        models.IncidentType(dto.Type),
		Priority:    dto.Priority,
		Address:     dto.Address,
		Description: dto.Description,
		CallerName:  dto.CallerName,
		CallerPhone: dto.CallerPhone,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
	}
}

// DTOToUnitModel преобразует DTO регистрации в доменную модель
func DTOToUnitModel(dto CreateUnitRequest) *models.Unit {
	return &models.Unit{
		Name:        dto.Name,
		Type:        models.UnitType(dto.Type),
		Description: dto.Description,
		ResponderID: dto.ResponderID,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:              model.ID,
		Type:            string(model.Type),
		Priority:        model.Priority,
		Status:          string(model.Status),
		Address:         model.Address,
		Latitude:        model.Latitude,
		Longitude:       model.Longitude,
		Description:     model.Description,
		CallerName:      model.CallerName,
		CallerPhone:     model.CallerPhone,
		ResolvedSummary: model.ResolvedSummary,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
		ResolvedAt:      model.ResolvedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(incidents []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(incidents))
	for i, incident := range incidents {
		responses[i] = ModelToIncidentResponse(incident)
	}
	return responses
}

// ModelToUnitResponse преобразует доменную модель в DTO для ответа
func ModelToUnitResponse(model *models.Unit) *UnitResponse {
	return &UnitResponse{
		ID:                model.ID,
		Name:              model.Name,
		Type:              string(model.Type),
		Status:            string(model.Status),
		ResponderID:       model.ResponderID,
		CurrentIncidentID: model.CurrentIncidentID,
		Description:       model.Description,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

// ModelsToUnitResponses преобразует слайс моделей в слайс DTO
func ModelsToUnitResponses(units []*models.Unit) []*UnitResponse {
	responses := make([]*UnitResponse, len(units))
	for i, unit := range units {
		responses[i] = ModelToUnitResponse(unit)
	}
	return responses
}

// ModelToEventResponse преобразует доменное событие в DTO для ответа
func ModelToEventResponse(model *models.Event) *EventResponse {
	return &EventResponse{
		ID:         model.ID,
		Type:       string(model.Type),
		IncidentID: model.IncidentID,
		UnitID:     model.UnitID,
		Message:    model.Message,
		Details:    model.Details,
		CreatedAt:  model.CreatedAt,
	}
}

// ModelsToEventResponses преобразует слайс событий в слайс DTO
func ModelsToEventResponses(events []*models.Event) []*EventResponse {
	responses := make([]*EventResponse, len(events))
	for i, event := range events {
		responses[i] = ModelToEventResponse(event)
	}
	return responses
}
