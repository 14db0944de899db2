package statemachine

import (
	"testing"

	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitTransition(t *testing.T) {
	all := []models.UnitStatus{
		models.UnitStatusAvailable,
		models.UnitStatusEnRoute,
		models.UnitStatusOnScene,
		models.UnitStatusUnavailable,
	}

	// Полный перечень разрешенных переходов, все остальные пары запрещены
	allowed := map[models.UnitStatus][]models.UnitStatus{
		models.UnitStatusAvailable:   {models.UnitStatusEnRoute, models.UnitStatusUnavailable},
		models.UnitStatusEnRoute:     {models.UnitStatusOnScene, models.UnitStatusAvailable, models.UnitStatusUnavailable},
		models.UnitStatusOnScene:     {models.UnitStatusAvailable, models.UnitStatusUnavailable},
		models.UnitStatusUnavailable: {models.UnitStatusAvailable},
	}

	for _, from := range all {
		for _, to := range all {
			isAllowed := false
			for _, a := range allowed[from] {
				if a == to {
					isAllowed = true
					break
				}
			}

			next, err := UnitTransition(from, to)
			if isAllowed {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, next)
			} else {
				assert.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestUnitTransition_UnknownStatus(t *testing.T) {
	_, err := UnitTransition(models.UnitStatus("broken"), models.UnitStatusAvailable)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestAttachmentRequired(t *testing.T) {
	assert.True(t, AttachmentRequired(models.UnitStatusEnRoute))
	assert.True(t, AttachmentRequired(models.UnitStatusOnScene))
	assert.False(t, AttachmentRequired(models.UnitStatusAvailable))
	assert.False(t, AttachmentRequired(models.UnitStatusUnavailable))
}
