package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/eldercare/triage-core/internal/adapters"
	"github.com/eldercare/triage-core/internal/domain"
	"github.com/eldercare/triage-core/internal/intent"
	"github.com/eldercare/triage-core/internal/orchestrator"
	"github.com/eldercare/triage-core/internal/queue"
	"github.com/eldercare/triage-core/internal/segment"
)

type fakeIntentBackend struct{}

func (fakeIntentBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	return `{"intent":"social.chat","content_type":"conversation","mood":"friendly"}`, nil
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	orc := &orchestrator.Orchestrator{
		Intent:    &intent.Engine{Cloud: fakeIntentBackend{}, Backend: "cloud"},
		SmartHome: &adapters.FakeSmartHome{},
		SIP:       &adapters.FakeSIP{},
		Social:    &adapters.FakeSocial{},
		Context:   orchestrator.NewConversationContext(),
	}
	h := NewHandler(HandlerConfig{Orchestrator: orc, SegmentCfg: segment.DefaultConfig()})
	srv := httptest.NewServer(h)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestServeHTTP_AsrTextRoundTrip(t *testing.T) {
	srv, url := newTestServer(t)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(sessionMetadata{SampleRate: 16000, Channels: 1}))
	require.NoError(t, conn.WriteJSON(clientAction{Action: "asr_text", Text: "我想听一些怀旧的老歌"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp map[string]any
	require.NoError(t, conn.ReadJSON(&resp))
	require.Contains(t, resp, "status")
}

func TestRunQueueConsumer_DrainsPriorityLaneFirstAndPublishesSpeechSegment(t *testing.T) {
	q := queue.New(4)
	events := make(chan any, 4)
	send := func(ev any) { events <- ev }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runQueueConsumer(ctx, q, send)

	normal := domain.SpeechSegment{Samples: []float32{0.01, 0.02}, SampleRate: 16000}
	urgent := domain.SpeechSegment{Samples: []float32{0.9, -0.9}, SampleRate: 16000}

	require.False(t, queue.IsEmergencySuspect(normal))
	require.True(t, queue.IsEmergencySuspect(urgent))

	q.Push(queue.Item{Segment: normal})
	q.Push(queue.Item{Segment: urgent, Emergency: true})
	go runQueueConsumer(ctx, q, send)

	first := requireEvent(t, events)
	ev, ok := first.(segmentEvent)
	require.True(t, ok)
	require.Equal(t, "speech_segment", ev.Type)
	require.Equal(t, urgent.Samples, ev.Samples, "priority lane must drain before the normal lane")

	second := requireEvent(t, events)
	ev2 := second.(segmentEvent)
	require.Equal(t, normal.Samples, ev2.Samples)
}

func requireEvent(t *testing.T, events chan any) any {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queue consumer event")
		return nil
	}
}

func TestServeHTTP_NonAsrTextActionIsIgnored(t *testing.T) {
	srv, url := newTestServer(t)
	defer srv.Close()

	conn := dial(t, url)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(sessionMetadata{SampleRate: 16000, Channels: 1}))
	require.NoError(t, conn.WriteJSON(clientAction{Action: "noop"}))

	require.NoError(t, conn.WriteJSON(clientAction{Action: "asr_text", Text: "你好呀"}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp map[string]any
	require.NoError(t, conn.ReadJSON(&resp))
	require.Contains(t, resp, "status")
}
