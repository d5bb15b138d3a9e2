// Package ws implements the WebSocket boundary: an inbound-audio stream
// that feeds C1's segmenter, and an outbound processed-audio/segment-
// metadata topic plus direct ASR-text submission into the orchestrator —
// the streaming counterpart to the `/asr_text` HTTP endpoint in §6.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/eldercare/triage-core/internal/orchestrator"
	"github.com/eldercare/triage-core/internal/queue"
	"github.com/eldercare/triage-core/internal/segment"
	"github.com/eldercare/triage-core/internal/trace"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared, long-lived dependencies every call
// session is built from.
type HandlerConfig struct {
	Orchestrator *orchestrator.Orchestrator
	SegmentCfg   segment.Config
	QueueCap     int
	TraceStore   *trace.Store
}

// Handler manages WebSocket audio/text sessions.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler creates a WebSocket handler bound to the shared orchestrator.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// sessionMetadata is the first text frame sent by the client.
type sessionMetadata struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
}

// clientAction is a text frame sent during a session.
type clientAction struct {
	Action   string            `json:"action"`
	Text     string            `json:"text,omitempty"`
	Location *domain.Location  `json:"location,omitempty"`
	Emotion  *domain.EmotionSnapshot `json:"emotion,omitempty"`
}

// segmentEvent is the companion processed-audio/segment-boundary topic
// payload (§6): `{type:"speech_segment", samples, sr, duration_sec, ts}`.
type segmentEvent struct {
	Type        string    `json:"type"`
	Samples     []float32 `json:"samples"`
	SampleRate  int       `json:"sr"`
	DurationSec float64   `json:"duration_sec"`
	Ts          time.Time `json:"ts"`
}

// ServeHTTP upgrades the connection and runs the call session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.runSession(conn)
}

func (h *Handler) runSession(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := readMetadata(conn)
	if err != nil {
		slog.Error("read metadata", "error", err)
		return
	}
	if meta.Channels <= 0 {
		meta.Channels = 1
	}

	sessionID := uuid.NewString()
	slog.Info("session started", "session_id", sessionID, "sample_rate", meta.SampleRate, "channels", meta.Channels)
	defer slog.Info("session ended", "session_id", sessionID)

	var tracer *trace.Tracer
	if h.cfg.TraceStore != nil {
		_ = h.cfg.TraceStore.CreateSession(sessionID, "")
		tracer = trace.NewTracer(h.cfg.TraceStore, sessionID)
		defer func() {
			tracer.Close()
			_ = h.cfg.TraceStore.EndSession(sessionID)
		}()
	}

	seg := segment.New(h.cfg.SegmentCfg)
	q := queue.New(h.cfg.QueueCap)
	send := newEventSender(conn)

	go runQueueConsumer(ctx, q, send)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleOneMessage(ctx, msgType, data, meta, seg, q, send, tracer)
	}
}

func (h *Handler) handleOneMessage(ctx context.Context, msgType int, data []byte, meta *sessionMetadata, seg *segment.Segmenter, q *queue.Queue, send func(any), tracer *trace.Tracer) {
	if msgType == websocket.TextMessage {
		h.handleTextFrame(ctx, data, send, tracer)
		return
	}
	if msgType != websocket.BinaryMessage {
		return
	}

	segments := seg.PushPCM(data, meta.SampleRate, meta.Channels)
	for _, sp := range segments {
		q.Push(queue.Item{Segment: sp, Emergency: queue.IsEmergencySuspect(sp)})
	}
}

// runQueueConsumer drains q for the lifetime of the session, priority lane
// first (§9's emergency-skips-the-backlog guarantee), publishing each
// segment to the companion topic. It's the queue's only consumer: without
// it segments would only ever accumulate and drop-oldest, never reach the
// client.
func runQueueConsumer(ctx context.Context, q *queue.Queue, send func(any)) {
	for {
		item, ok := q.Pop()
		if !ok {
			if !q.Wait(ctx) {
				return
			}
			continue
		}
		sp := item.Segment
		send(segmentEvent{
			Type:        "speech_segment",
			Samples:     sp.Samples,
			SampleRate:  sp.SampleRate,
			DurationSec: float64(sp.DurationMs()) / 1000,
			Ts:          sp.EndedAt,
		})
	}
}

func (h *Handler) handleTextFrame(ctx context.Context, data []byte, send func(any), tracer *trace.Tracer) {
	var act clientAction
	if err := json.Unmarshal(data, &act); err != nil {
		return
	}
	if act.Action != "asr_text" || h.cfg.Orchestrator == nil {
		return
	}

	resp := h.cfg.Orchestrator.Handle(ctx, orchestrator.Request{
		Text:     act.Text,
		Location: act.Location,
		Emotion:  act.Emotion,
	})
	if tracer != nil {
		tracer.RecordPipelineTrace(resp.Trace, act.Text, resp.Status)
	}
	send(resp)
}

func newEventSender(conn *websocket.Conn) func(any) {
	var mu sync.Mutex
	return func(ev any) {
		mu.Lock()
		defer mu.Unlock()
		jsonBytes, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, jsonBytes); err != nil {
			slog.Error("write event", "error", err)
		}
	}
}

func readMetadata(conn *websocket.Conn) (*sessionMetadata, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var meta sessionMetadata
	if err = json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
