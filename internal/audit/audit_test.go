package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestWrite_EmitsOneJSONLinePerRecord(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	trace := domain.PipelineTrace{RequestID: "req-1"}
	trace.Record(domain.StagePreprocessing, 0)

	l.Write(Record{RequestID: "req-1", InputText: "小伴，请帮我开客厅的灯", Verdict: "ok"})
	l.Write(Record{RequestID: "req-2", InputText: "救命", Verdict: "emergency_dispatched", Trace: trace})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "req-1", first["request_id"])
	require.Equal(t, "ok", first["verdict"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Equal(t, "emergency_dispatched", second["verdict"])
}

func TestWrite_NilLoggerIsNoOp(t *testing.T) {
	var l *Logger
	require.NotPanics(t, func() { l.Write(Record{RequestID: "req-1"}) })
}
