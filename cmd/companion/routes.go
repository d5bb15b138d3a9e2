package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/eldercare/triage-core/internal/geofence"
	"github.com/eldercare/triage-core/internal/intent"
	"github.com/eldercare/triage-core/internal/orchestrator"
)

// serviceName is reported by /health per §6's `{status:"healthy", service}`.
const serviceName = "triage-companion"

type deps struct {
	orc             *orchestrator.Orchestrator
	wsHandler       http.Handler
	maxTotalLatency time.Duration
}

// registerRoutes wires the full HTTP surface of §6 to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/call", d.wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /asr_text", d.handleASRText)
	mux.HandleFunc("POST /guard/check", d.handleGuardCheck)
	mux.HandleFunc("POST /parse_intent", d.handleParseIntent)
	mux.HandleFunc("POST /smart-home/cmd", d.handleSmartHomeCmd)
	mux.HandleFunc("POST /sip/call", d.handleSIPCall)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

type asrTextRequest struct {
	Text     string                  `json:"text"`
	Location *domain.Location        `json:"location,omitempty"`
	Emotion  *domain.EmotionSnapshot `json:"emotion,omitempty"`
	Behavior string                  `json:"behavior_context,omitempty"`
}

func (d deps) handleASRText(w http.ResponseWriter, r *http.Request) {
	var req asrTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "reason": "bad_input"})
		return
	}

	ctx := r.Context()
	if d.maxTotalLatency > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.maxTotalLatency)
		defer cancel()
	}

	resp := d.orc.Handle(ctx, orchestrator.Request{
		Text:            req.Text,
		Location:        req.Location,
		Emotion:         req.Emotion,
		BehaviorContext: req.Behavior,
	})
	writeJSON(w, http.StatusOK, resp)
}

type guardCheckRequest struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Intent   *domain.Intent   `json:"intent,omitempty"`
	Location *domain.Location `json:"location,omitempty"`
	Behavior string           `json:"behavior_context,omitempty"`
}

func (d deps) handleGuardCheck(w http.ResponseWriter, r *http.Request) {
	var req guardCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case "intent":
		if req.Intent == nil {
			http.Error(w, "missing intent", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, orchestrator.PostGuard(*req.Intent, false))

	case "asr":
		geo := geofence.Result{ZoneID: "unknown", Status: geofence.StatusSafe}
		if req.Location != nil {
			geo = d.orc.Zones.Evaluate(*req.Location, req.Behavior)
		}
		emotion := domain.EmotionSnapshot{}
		writeJSON(w, http.StatusOK, orchestrator.PreGuard(req.Text, emotion, geo))

	default:
		http.Error(w, `type must be "asr" or "intent"`, http.StatusBadRequest)
	}
}

type parseIntentRequest struct {
	Text    string `json:"text"`
	Context struct {
		AvailableDevices []string `json:"available_devices,omitempty"`
		LocationZone     string   `json:"location_zone,omitempty"`
	} `json:"context,omitempty"`
}

func (d deps) handleParseIntent(w http.ResponseWriter, r *http.Request) {
	var req parseIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	devices := req.Context.AvailableDevices
	if len(devices) == 0 {
		devices = d.orc.AvailableDevices
	}
	parsed := d.orc.Intent.Parse(r.Context(), req.Text, intent.Context{
		AvailableDevices: devices,
		LocationZone:     req.Context.LocationZone,
		RecentTopics:     d.orc.Context.RecentTopics(3),
	})
	writeJSON(w, http.StatusOK, parsed)
}

type smartHomeCmdRequest struct {
	Device string `json:"device"`
	Action string `json:"action"`
	Room   string `json:"room,omitempty"`
}

func (d deps) handleSmartHomeCmd(w http.ResponseWriter, r *http.Request) {
	var req smartHomeCmdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	echo, err := d.orc.SmartHome.Command(r.Context(), req.Device, req.Action, req.Room)
	if err != nil {
		slog.Error("smart-home adapter failed", "error", err, "device", req.Device)
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "reason": "adapter_unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "echo": echo})
}

type sipCallRequest struct {
	Callee string `json:"callee"`
	Reason string `json:"reason,omitempty"`
}

func (d deps) handleSIPCall(w http.ResponseWriter, r *http.Request) {
	var req sipCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := d.orc.SIP.Call(r.Context(), req.Callee, req.Reason); err != nil {
		slog.Error("sip adapter failed", "error", err, "callee", req.Callee)
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "reason": "adapter_unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dialing", "callee": req.Callee})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}
