package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "hummingbird/pkg/errors"
)

func TestAlertLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	visits := 55
	nectar := 72.5
	alert, err := s.CreateAlert(ctx, &Alert{
		FeederID:    "feeder-1",
		AlertType:   "refill_needed",
		Title:       "Feeder feeder-1 needs a refill",
		Message:     "55 visits today",
		VisitCount:  &visits,
		NectarLevel: &nectar,
	})
	require.NoError(t, err)
	assert.NotZero(t, alert.ID)
	assert.True(t, alert.IsActive)
	assert.Equal(t, "medium", alert.Severity)

	exists, err := s.HasActiveAlert(ctx, "feeder-1", "refill_needed")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.HasActiveAlert(ctx, "feeder-2", "refill_needed")
	require.NoError(t, err)
	assert.False(t, exists)

	active, err := s.ActiveAlerts(ctx, "feeder-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "refill_needed", active[0].AlertType)
	require.NotNil(t, active[0].VisitCount)
	assert.Equal(t, 55, *active[0].VisitCount)
	require.NotNil(t, active[0].NectarLevel)
	assert.Equal(t, 72.5, *active[0].NectarLevel)

	require.NoError(t, s.AcknowledgeAlert(ctx, alert.ID, "keeper"))

	exists, err = s.HasActiveAlert(ctx, "feeder-1", "refill_needed")
	require.NoError(t, err)
	assert.False(t, exists)

	active, err = s.ActiveAlerts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestAcknowledgeMissingAlert(t *testing.T) {
	s := newTestStore(t)

	err := s.AcknowledgeAlert(context.Background(), 404, "keeper")
	assert.True(t, errors.Is(err, pkgerrors.ErrRecordNotFound))
}

func TestActiveAlertsAcrossFeeders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateAlert(ctx, &Alert{FeederID: "f1", AlertType: "refill_needed", Severity: "high"})
	require.NoError(t, err)
	_, err = s.CreateAlert(ctx, &Alert{FeederID: "f2", AlertType: "refill_needed"})
	require.NoError(t, err)

	all, err := s.ActiveAlerts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := s.ActiveAlerts(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "high", one[0].Severity)
}
