package service

import "errors"

// Таксономия ошибок ядра. Хэндлеры отображают их в HTTP-статусы через errors.Is.
var (
	// ErrNotFound - указанный инцидент или юнит не существует
	ErrNotFound = errors.New("not found")
	// ErrUnitUnavailable - юнит не в статусе available
	ErrUnitUnavailable = errors.New("unit is not available for dispatch")
	// ErrAlreadyAssigned - юнит уже привязан к инциденту
	ErrAlreadyAssigned = errors.New("unit is already assigned to an incident")
	// ErrNotAssigned - юнит не привязан ни к одному инциденту
	ErrNotAssigned = errors.New("unit is not assigned to any incident")
	// ErrConflict - нарушение уникальности (например, имя юнита занято)
	ErrConflict = errors.New("conflict")
	// ErrValidation - некорректные входные данные
	ErrValidation = errors.New("validation failed")
)
