package geofence

import (
	"testing"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/stretchr/testify/require"
)

func sampleZones() []domain.Zone {
	return []domain.Zone{
		{ID: "living_room", Center: domain.Location{X: 1, Y: 1}, Radius: 2},
		{ID: "bedroom", Center: domain.Location{X: 2.5, Y: 3}, Radius: 1.5},
	}
}

func TestEvaluate_BoundaryDistanceEqualsRadiusIsInside(t *testing.T) {
	m := NewMonitor(NewTable(sampleZones()))
	// Exactly radius=2 away from living_room center (1,1): point (3,1).
	res := m.Evaluate(domain.Location{X: 3, Y: 1}, "normal")
	require.Equal(t, "living_room", res.ZoneID)
}

func TestEvaluate_OutsideAllZones(t *testing.T) {
	m := NewMonitor(NewTable(sampleZones()))
	res := m.Evaluate(domain.Location{X: -0.5, Y: -0.5}, "normal")
	require.Equal(t, outsideSafeZones, res.ZoneID)
	require.Equal(t, StatusViolation, res.Status)
	require.InDelta(t, 0.8, res.AnomalyScore, 1e-9)
}

func TestEvaluate_NormalContextLowAnomaly(t *testing.T) {
	m := NewMonitor(NewTable(sampleZones()))
	res := m.Evaluate(domain.Location{X: 1, Y: 1}, "normal behavior")
	require.Equal(t, StatusSafe, res.Status)
	require.InDelta(t, 0.1, res.AnomalyScore, 1e-9)
}

func TestEvaluate_AbnormalContextHigherAnomalyStillSafe(t *testing.T) {
	m := NewMonitor(NewTable(sampleZones()))
	res := m.Evaluate(domain.Location{X: 1, Y: 1}, "erratic pacing")
	require.Equal(t, StatusSafe, res.Status)
	require.InDelta(t, 0.3, res.AnomalyScore, 1e-9)
}

func TestReload_SwapsZonesAtomically(t *testing.T) {
	m := NewMonitor(NewTable(sampleZones()))
	m.Reload(NewTable([]domain.Zone{{ID: "kitchen", Center: domain.Location{X: 0, Y: 0}, Radius: 1}}))
	res := m.Evaluate(domain.Location{X: 0, Y: 0}, "normal")
	require.Equal(t, "kitchen", res.ZoneID)
}
