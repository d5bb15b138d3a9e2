package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRequestsTotal_IncrementsPerStatus(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("ok"))
	RequestsTotal.WithLabelValues("ok").Inc()
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("ok"))
	require.Equal(t, before+1, after)
}

func TestStageDuration_ObservesWithoutPanic(t *testing.T) {
	require.NotPanics(t, func() {
		StageDuration.WithLabelValues("rules_check").Observe(0.01)
	})
}
