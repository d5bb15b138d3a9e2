// Package orchestrator implements C5: the state machine that composes the
// rules engine (C2), the geofence monitor (C3), the LLM intent engine (C4),
// and the action adapters, including the emergency bypass path.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/eldercare/triage-core/internal/adapters"
	"github.com/eldercare/triage-core/internal/domain"
	"github.com/eldercare/triage-core/internal/geofence"
	"github.com/eldercare/triage-core/internal/intent"
	"github.com/eldercare/triage-core/internal/rules"
	"github.com/eldercare/triage-core/internal/telemetry"
	"github.com/google/uuid"
)

// Request is the orchestrator's canonical entry point payload (§4.5).
type Request struct {
	Text            string
	BehaviorContext string
	Location        *domain.Location
	Emotion         *domain.EmotionSnapshot
}

// Response is the orchestrator's canonical reply (§6 "Response status
// values"). Only the fields relevant to Status are populated.
type Response struct {
	Status  string          `json:"status"`
	Reason  string          `json:"reason,omitempty"`
	Prompt  string          `json:"prompt,omitempty"`
	Adapter string          `json:"adapter,omitempty"`
	Callee  string          `json:"callee,omitempty"`
	Intent   *domain.Intent      `json:"intent,omitempty"`
	Echo     map[string]any      `json:"echo,omitempty"`
	Confirm  bool                `json:"confirm,omitempty"`
	Wakeword *domain.WakewordHit `json:"wakeword,omitempty"`

	Trace        domain.PipelineTrace `json:"-"`
	DispatchErr  string               `json:"-"`
}

// AuditRecord is the exactly-one-per-request observable side effect
// mandated by §4.5 "Observable side effects" / §6 "Persisted state."
type AuditRecord struct {
	RequestID   string
	InputText   string
	Trace       domain.PipelineTrace
	Verdict     string
	AdapterEcho map[string]any
	DispatchErr string
}

// AuditSink receives exactly one AuditRecord per request.
type AuditSink func(AuditRecord)

// Orchestrator wires C2-C4 and the adapters together. It is safe for
// concurrent use: ConversationContext is internally mutex-guarded and the
// zone table is an atomically-swapped immutable reference (§5).
type Orchestrator struct {
	Zones  *geofence.Monitor
	Intent *intent.Engine

	SmartHome adapters.SmartHome
	SIP       adapters.SIPCaller
	Social    adapters.Social

	Context *ConversationContext

	AvailableDevices []string
	BypassCallee     string // default "120"
	Audit            AuditSink
}

func (o *Orchestrator) bypassCallee() string {
	if o.BypassCallee == "" {
		return "120"
	}
	return o.BypassCallee
}

func stage(trace *domain.PipelineTrace, name string, fn func()) {
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	trace.Record(name, elapsed)
	telemetry.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// Handle runs one request through the full C5 state machine and returns
// its response and trace. It never panics across a stage boundary —
// adapter/backend failures are converted to a Failed/error response.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (resp Response) {
	trace := domain.PipelineTrace{RequestID: uuid.NewString()}

	var wakeHitFound bool
	var wakeHit domain.WakewordHit

	defer func() {
		if r := recover(); r != nil {
			trace.Record(domain.StageFailed, 0)
			resp = Response{Status: "error", Reason: "internal_error", Trace: trace}
		}
		if wakeHitFound {
			hit := wakeHit
			resp.Wakeword = &hit
		}
		resp.Trace = trace
		telemetry.RequestsTotal.WithLabelValues(resp.Status).Inc()
		o.emitAudit(req.Text, resp)
	}()

	emotion := domain.EmotionSnapshot{}
	if req.Emotion != nil {
		emotion = *req.Emotion
	}

	stage(&trace, domain.StagePreprocessing, func() {
		o.Context.Append(req.Text, emotion, "", time.Now())
	})

	var (
		sosHit         domain.SOSHit
		sosOK          bool
		geoResult      geofence.Result
		candidate      domain.Intent
		candidateFound bool
		topic          string
	)

	stage(&trace, domain.StageRulesCheck, func() {
		wakeHit, wakeHitFound = rules.DetectWakeword(req.Text, emotion)
		if wakeHitFound {
			telemetry.WakewordDetections.WithLabelValues(wakeHit.Type).Inc()
		}
		sosHit, sosOK = rules.DetectSOS(req.Text, emotion)

		if req.Location != nil {
			geoResult = o.Zones.Evaluate(*req.Location, req.BehaviorContext)
		} else {
			geoResult = geofence.Result{ZoneID: "unknown", Status: geofence.StatusSafe}
		}

		if sh, ok := rules.ExtractSmartHome(req.Text); ok {
			candidate, candidateFound, topic = sh, true, sh.Tag
			return
		}
		if res, ok := rules.RecognizeImplicit(req.Text, emotion, o.Context.Boost); ok {
			candidate, candidateFound, topic = implicitToIntent(res), true, res.CommandType
		}
	})

	bypass := (sosOK && sosHit.Urgency >= 3) || geoResult.Status == geofence.StatusEmergency
	if sosOK {
		label := "false"
		if bypass {
			label = "true"
		}
		telemetry.SOSDetections.WithLabelValues(sosHit.Category, label).Inc()
	}
	if bypass {
		topic = "emergency"
		o.Context.SetLastTopic(topic)
		telemetry.EmergencyDispatches.Inc()
		return o.emergencyBypass(ctx, &trace, sosHit)
	}

	if candidateFound {
		stage(&trace, domain.StageRulesExtraction, func() {})
		o.Context.SetLastTopic(topic)
		return o.postGuardAndExecute(ctx, &trace, candidate, false)
	}

	stage(&trace, domain.StageRequiresLLM, func() {})

	var parsed domain.Intent
	stage(&trace, domain.StageLLMParse, func() {
		parsed = o.Intent.Parse(ctx, req.Text, intent.Context{
			AvailableDevices: o.AvailableDevices,
			LocationZone:     geoResult.ZoneID,
			RecentTopics:     o.Context.RecentTopics(3),
		})
	})
	o.Context.SetLastTopic(parsed.Tag)

	if parsed.IsClarify() {
		reason := parsed.Need
		if len(parsed.MissingFields) > 0 {
			reason = parsed.MissingFields[0]
		}
		return Response{
			Status: "need_confirm",
			Reason: reason,
			Prompt: parsed.ClarifyPrompt,
			Intent: &parsed,
		}
	}

	return o.postGuardAndExecute(ctx, &trace, parsed, false)
}

func (o *Orchestrator) emergencyBypass(ctx context.Context, trace *domain.PipelineTrace, sos domain.SOSHit) Response {
	var dispatchErr string
	stage(trace, domain.StageEmergencyBypass, func() {
		reason := sos.Category
		if reason == "" {
			reason = "geofence_emergency"
		}
		if err := o.SIP.Call(ctx, o.bypassCallee(), reason); err != nil {
			// Elderly-safety principle (§7): the user-visible path never
			// hides that help was attempted, even if the dial itself failed.
			dispatchErr = sanitize(err)
			slog.Error("emergency dispatch failed", "error", err)
		}
	})
	return Response{
		Status:      "emergency_dispatched",
		Adapter:     "sip",
		Callee:      o.bypassCallee(),
		DispatchErr: dispatchErr,
	}
}

func (o *Orchestrator) postGuardAndExecute(ctx context.Context, trace *domain.PipelineTrace, candidate domain.Intent, bypassed bool) Response {
	var decision domain.GuardDecision
	stage(trace, domain.StagePostGuard, func() {
		decision = PostGuard(candidate, bypassed)
	})
	telemetry.GuardDecisions.WithLabelValues(decision.Verdict, decision.Reason).Inc()

	switch decision.Verdict {
	case domain.VerdictNeedConfirm:
		return Response{Status: "need_confirm", Reason: decision.Reason, Prompt: decision.Prompt, Intent: &candidate}

	case domain.VerdictDeny:
		return Response{Status: "denied", Reason: decision.Reason, Intent: &candidate}

	case domain.VerdictDispatchEmergency:
		var dispatchErr string
		stage(trace, domain.StageExecute, func() {
			callee := candidate.Callee
			if callee == "" {
				callee = o.bypassCallee()
			}
			if err := o.SIP.Call(ctx, callee, candidate.Reason); err != nil {
				dispatchErr = sanitize(err)
				slog.Error("emergency dispatch failed", "error", err)
			}
		})
		telemetry.EmergencyDispatches.Inc()
		return Response{Status: "emergency_dispatched", Adapter: "sip", Callee: candidate.Callee, DispatchErr: dispatchErr}

	default: // allow
		return o.execute(ctx, trace, candidate)
	}
}

func (o *Orchestrator) execute(ctx context.Context, trace *domain.PipelineTrace, candidate domain.Intent) (resp Response) {
	var execErr error
	var echo map[string]any
	var adapterName string

	stage(trace, domain.StageExecute, func() {
		switch candidate.Tag {
		case domain.IntentSmartHome:
			adapterName = "smart-home"
			echo, execErr = o.SmartHome.Command(ctx, candidate.Device, candidate.Action, candidate.Room)
		case domain.IntentSocialChat:
			adapterName = "social"
			var reply string
			reply, execErr = o.Social.Chat(ctx, candidate.ContentType, candidate.Mood)
			echo = map[string]any{"reply": reply}
		case domain.IntentAssistMove:
			adapterName = "locomotion"
			echo = map[string]any{"target": candidate.Target, "speed": candidate.Speed}
		default:
			adapterName = "none"
		}
	})

	if execErr != nil {
		trace.Record(domain.StageFailed, 0)
		telemetry.AdapterErrors.WithLabelValues(adapterName).Inc()
		return Response{Status: "error", Adapter: adapterName, Reason: sanitize(execErr), Intent: &candidate}
	}

	return Response{
		Status:  "ok",
		Adapter: adapterName,
		Echo:    echo,
		Confirm: candidate.Confirm,
		Intent:  &candidate,
	}
}

func (o *Orchestrator) emitAudit(inputText string, resp Response) {
	if o.Audit == nil {
		return
	}
	o.Audit(AuditRecord{
		RequestID:   resp.Trace.RequestID,
		InputText:   inputText,
		Trace:       resp.Trace,
		Verdict:     resp.Status,
		AdapterEcho: resp.Echo,
		DispatchErr: resp.DispatchErr,
	})
}

// sanitize strips a raw Go error down to a short, adapter-safe reason
// string — §7 "Adapter failure: error with adapter and sanitized reason."
func sanitize(err error) string {
	if err == nil {
		return ""
	}
	return "adapter_unreachable"
}

func implicitToIntent(res rules.ImplicitResult) domain.Intent {
	switch res.CommandType {
	case "temperature_control":
		return domain.Intent{Tag: domain.IntentSmartHome, Device: "bedroom_hvac", Action: "on", Confirm: res.RequiresConfirmation}
	case "lighting_control":
		return domain.Intent{Tag: domain.IntentSmartHome, Device: "bedroom_light", Action: "on", Confirm: res.RequiresConfirmation}
	case "assistance_request":
		return domain.Intent{Tag: domain.IntentCallEmergency, Callee: "family", Reason: "assistance_request", Confirm: res.RequiresConfirmation}
	default: // social_interaction
		return domain.Intent{Tag: domain.IntentSocialChat, ContentType: "conversation", Mood: "friendly", Confirm: res.RequiresConfirmation}
	}
}
