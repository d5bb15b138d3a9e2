// Package geofence implements C3: mapping a 2-D position to a named zone
// and scoring behavioral anomaly.
package geofence

import (
	"math"
	"strings"
	"sync/atomic"

	"github.com/eldercare/triage-core/internal/domain"
)

// Status values returned by Evaluate.
const (
	StatusSafe      = "safe"
	StatusWarning   = "warning"
	StatusEmergency = "emergency"
	StatusViolation = "violation"
)

const outsideSafeZones = "outside_safe_zones"

// Result is C3's output: the contained zone (or "outside_safe_zones"), the
// mapped status, and the anomaly score that produced it.
type Result struct {
	ZoneID       string
	Status       string
	AnomalyScore float64
}

// Table holds the static, read-only zone set. It is immutable once built —
// a reload signal constructs a new Table and atomically swaps the pointer
// held by a Monitor (§5 "the zone table is immutable after load; reloads
// atomically swap an immutable reference").
type Table struct {
	zones []domain.Zone
}

// NewTable builds an immutable zone table from the given zones.
func NewTable(zones []domain.Zone) *Table {
	cp := append([]domain.Zone(nil), zones...)
	return &Table{zones: cp}
}

// Monitor evaluates positions against an atomically-swappable Table.
type Monitor struct {
	table atomic.Pointer[Table]
}

// NewMonitor constructs a Monitor seeded with the given zone table.
func NewMonitor(initial *Table) *Monitor {
	m := &Monitor{}
	if initial == nil {
		initial = NewTable(nil)
	}
	m.table.Store(initial)
	return m
}

// Reload atomically swaps in a new zone table.
func (m *Monitor) Reload(t *Table) {
	if t == nil {
		t = NewTable(nil)
	}
	m.table.Store(t)
}

// Evaluate finds the first zone whose center-distance <= radius (inclusive
// boundary, §8), scores anomaly from the behavioral context string, and
// maps the score to a status per §4.3.
func (m *Monitor) Evaluate(pos domain.Location, behaviorContext string) Result {
	t := m.table.Load()

	zoneID := outsideSafeZones
	for _, z := range t.zones {
		if distance(pos, z.Center) <= z.Radius {
			zoneID = z.ID
			break
		}
	}

	if zoneID == outsideSafeZones {
		return Result{ZoneID: zoneID, Status: StatusViolation, AnomalyScore: 0.8}
	}

	anomaly := 0.3
	if strings.Contains(strings.ToLower(behaviorContext), "normal") {
		anomaly = 0.1
	}

	return Result{ZoneID: zoneID, Status: statusFor(anomaly), AnomalyScore: anomaly}
}

func statusFor(anomaly float64) string {
	switch {
	case anomaly > 0.7:
		return StatusEmergency
	case anomaly > 0.5:
		return StatusWarning
	default:
		return StatusSafe
	}
}

func distance(a, b domain.Location) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
