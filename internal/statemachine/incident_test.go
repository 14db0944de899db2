package statemachine

import (
	"testing"

	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidentTransition_Forward(t *testing.T) {
	// Любое строго прямое движение по жизненному циклу разрешено
	testCases := []struct {
		name    string
		from    models.IncidentStatus
		to      models.IncidentStatus
		allowed bool
	}{
		{"new to dispatched", models.IncidentStatusNew, models.IncidentStatusDispatched, true},
		{"dispatched to on_scene", models.IncidentStatusDispatched, models.IncidentStatusOnScene, true},
		{"on_scene to resolved", models.IncidentStatusOnScene, models.IncidentStatusResolved, true},
		{"new to on_scene", models.IncidentStatusNew, models.IncidentStatusOnScene, true},
		{"new to resolved", models.IncidentStatusNew, models.IncidentStatusResolved, true},
		{"dispatched to resolved", models.IncidentStatusDispatched, models.IncidentStatusResolved, true},
		{"dispatched to new", models.IncidentStatusDispatched, models.IncidentStatusNew, false},
		{"on_scene to dispatched", models.IncidentStatusOnScene, models.IncidentStatusDispatched, false},
		{"new to new", models.IncidentStatusNew, models.IncidentStatusNew, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := IncidentTransition(tc.from, tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, next)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrIllegalTransition)
			}
		})
	}
}

func TestIncidentTransition_CancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []models.IncidentStatus{
		models.IncidentStatusNew,
		models.IncidentStatusDispatched,
		models.IncidentStatusOnScene,
	} {
		next, err := IncidentTransition(from, models.IncidentStatusCancelled)
		require.NoError(t, err, "cancel from %s", from)
		assert.Equal(t, models.IncidentStatusCancelled, next)
	}
}

func TestIncidentTransition_TerminalIsFinal(t *testing.T) {
	// Из терминального состояния выхода нет, включая повторную отмену
	for _, from := range []models.IncidentStatus{
		models.IncidentStatusResolved,
		models.IncidentStatusCancelled,
	} {
		for _, to := range []models.IncidentStatus{
			models.IncidentStatusNew,
			models.IncidentStatusDispatched,
			models.IncidentStatusOnScene,
			models.IncidentStatusResolved,
			models.IncidentStatusCancelled,
		} {
			_, err := IncidentTransition(from, to)
			assert.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", from, to)
		}
	}
}

func TestIncidentTransition_UnknownStatus(t *testing.T) {
	_, err := IncidentTransition(models.IncidentStatus("unknown"), models.IncidentStatusDispatched)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = IncidentTransition(models.IncidentStatusNew, models.IncidentStatus("unknown"))
	assert.ErrorIs(t, err, ErrIllegalTransition)
}
