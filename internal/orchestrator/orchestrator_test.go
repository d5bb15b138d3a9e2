package orchestrator

import (
	"context"
	"testing"

	"github.com/eldercare/triage-core/internal/adapters"
	"github.com/eldercare/triage-core/internal/domain"
	"github.com/eldercare/triage-core/internal/geofence"
	"github.com/eldercare/triage-core/internal/intent"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator() (*Orchestrator, *adapters.FakeSmartHome, *adapters.FakeSIP, *adapters.FakeSocial) {
	sh := &adapters.FakeSmartHome{}
	sip := &adapters.FakeSIP{}
	social := &adapters.FakeSocial{}

	o := &Orchestrator{
		Zones:     geofence.NewMonitor(geofence.NewTable([]domain.Zone{{ID: "living_room", Center: domain.Location{X: 0, Y: 0}, Radius: 5}})),
		Intent:    &intent.Engine{Backend: "cloud"},
		SmartHome: sh,
		SIP:       sip,
		Social:    social,
		Context:   NewConversationContext(),
	}
	return o, sh, sip, social
}

// Scenario 1 (§8): wakeword + direct smart-home extraction, no LLM call.
func TestHandle_DirectSmartHomeExtraction(t *testing.T) {
	o, sh, _, _ := newTestOrchestrator()
	resp := o.Handle(context.Background(), Request{
		Text:     "小伴，请帮我开客厅的灯",
		Location: &domain.Location{X: 1, Y: 1},
	})

	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "smart-home", resp.Adapter)
	require.Len(t, sh.Calls, 1)
	require.Equal(t, "living_room_light", sh.Calls[0].Device)
	require.False(t, resp.Trace.Contains(domain.StageLLMParse))
}

// Scenario 2 (§8): explicit SOS, urgency >= 3, emergency bypass — no LLM call.
func TestHandle_SOSEmergencyBypass(t *testing.T) {
	o, _, sip, _ := newTestOrchestrator()
	resp := o.Handle(context.Background(), Request{
		Text:    "救命啊，我摔倒了站不起来",
		Emotion: &domain.EmotionSnapshot{Stress: 0.9, PrimaryEmotion: domain.EmotionPain},
	})

	require.Equal(t, "emergency_dispatched", resp.Status)
	require.Equal(t, "120", resp.Callee)
	require.Len(t, sip.Calls, 1)
	require.Equal(t, "120", sip.Calls[0].Callee)
	require.True(t, resp.Trace.Contains(domain.StageEmergencyBypass))
	require.False(t, resp.Trace.Contains(domain.StageLLMParse))
}

// Geofence-driven emergency bypass: position outside every zone maps to
// "violation", not "emergency" — it must NOT trigger bypass by itself.
func TestHandle_OutsideZonesIsViolationNotBypass(t *testing.T) {
	o, _, sip, _ := newTestOrchestrator()
	resp := o.Handle(context.Background(), Request{
		Text:     "我想聊聊天",
		Location: &domain.Location{X: 100, Y: 100},
	})

	require.NotEqual(t, "emergency_dispatched", resp.Status)
	require.Empty(t, sip.Calls)
}

// Scenario 3 (§8): implicit lighting_control outside the safe zones still
// yields status "ok" with confirm true — the geofence "violation" status
// is informational and does not block or escalate an implicit command.
func TestHandle_ImplicitLightingControlWithGeofenceViolation(t *testing.T) {
	o, sh, _, _ := newTestOrchestrator()
	resp := o.Handle(context.Background(), Request{
		Text:     "这里太暗了，看不清楚",
		Location: &domain.Location{X: 100, Y: 100},
	})

	require.Equal(t, "ok", resp.Status)
	require.True(t, resp.Confirm)
	require.Len(t, sh.Calls, 1)
}

// Scenario 4 (§8): lock.unlock is always need_confirm with the exact prompt.
func TestHandle_LockUnlockAlwaysNeedsConfirm(t *testing.T) {
	o, sh, _, _ := newTestOrchestrator()
	o.Intent.Cloud = fakeIntentBackend{resp: `{"intent":"lock.unlock","target":"front_door"}`}

	resp := o.Handle(context.Background(), Request{Text: "请帮我打开前门锁"})

	require.Equal(t, "need_confirm", resp.Status)
	require.Contains(t, resp.Prompt, "确认开锁")
	require.Empty(t, sh.Calls)
}

// Scenario 5 (§8): ambiguous utterance, C4 returns unparsable prose, so the
// response is need_confirm with the "format" clarification.
func TestHandle_AmbiguousAsksForIntentType(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()
	o.Intent.Cloud = fakeIntentBackend{resp: "嗯，这个我不确定"}

	resp := o.Handle(context.Background(), Request{Text: "我要调节一下"})

	require.Equal(t, "need_confirm", resp.Status)
	require.Equal(t, "format", resp.Reason)
}

// Scenario 6 (§8): social chat routed through the LLM path, no rules match.
func TestHandle_SocialChatThroughLLM(t *testing.T) {
	o, _, _, social := newTestOrchestrator()
	social.Reply = "好呀，我们聊聊吧。"
	o.Intent.Cloud = fakeIntentBackend{resp: `{"intent":"social.chat","content_type":"conversation","mood":"friendly"}`}

	resp := o.Handle(context.Background(), Request{Text: "你今天过得怎么样呀"})

	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "social", resp.Adapter)
	require.Equal(t, "好呀，我们聊聊吧。", resp.Echo["reply"])
}

func TestHandle_AssistMoveFastAlwaysDenied(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()
	o.Intent.Cloud = fakeIntentBackend{resp: `{"intent":"assist.move","target":"kitchen","speed":"fast"}`}

	resp := o.Handle(context.Background(), Request{Text: "快点带我去厨房"})

	require.Equal(t, "denied", resp.Status)
	require.Equal(t, reasonSpeedPolicy, resp.Reason)
}

func TestHandle_CallEmergencyNonBypassDispatches(t *testing.T) {
	o, _, sip, _ := newTestOrchestrator()
	o.Intent.Cloud = fakeIntentBackend{resp: `{"intent":"call.emergency","callee":"doctor","reason":"checkup"}`}

	resp := o.Handle(context.Background(), Request{Text: "帮我联系一下医生"})

	require.Equal(t, "emergency_dispatched", resp.Status)
	require.Len(t, sip.Calls, 1)
	require.Equal(t, "doctor", sip.Calls[0].Callee)
}

func TestHandle_HighRiskDeviceNeedsConfirm(t *testing.T) {
	o, sh, _, _ := newTestOrchestrator()
	o.Intent.Cloud = fakeIntentBackend{resp: `{"intent":"smart.home","device":"security_system","action":"off"}`}

	resp := o.Handle(context.Background(), Request{Text: "把安防系统关掉"})

	require.Equal(t, "need_confirm", resp.Status)
	require.Empty(t, sh.Calls)
}

// Idempotence: lock.unlock is deterministic regardless of conversation
// history, so repeating the same request without confirmation yields the
// same response every time (§7 "Idempotent" / §8 invariant).
func TestHandle_RepeatedLockUnlockIsIdempotent(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()
	o.Intent.Cloud = fakeIntentBackend{resp: `{"intent":"lock.unlock","target":"front_door"}`}

	first := o.Handle(context.Background(), Request{Text: "请帮我打开前门锁"})
	second := o.Handle(context.Background(), Request{Text: "请帮我打开前门锁"})

	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.Prompt, second.Prompt)
	require.Equal(t, first.Reason, second.Reason)
}

func TestHandle_AdapterFailureSanitized(t *testing.T) {
	o, sh, _, _ := newTestOrchestrator()
	sh.Err = context.DeadlineExceeded

	resp := o.Handle(context.Background(), Request{Text: "小伴，请帮我开客厅的灯", Location: &domain.Location{X: 1, Y: 1}})

	require.Equal(t, "error", resp.Status)
	require.Equal(t, "adapter_unreachable", resp.Reason)
}

func TestHandle_AlwaysEmitsTrace(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()
	resp := o.Handle(context.Background(), Request{Text: "你好呀"})
	require.NotEmpty(t, resp.Trace.RequestID)
	require.True(t, resp.Trace.Contains(domain.StagePreprocessing))
}

type fakeIntentBackend struct {
	resp string
	err  error
}

func (f fakeIntentBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	return f.resp, f.err
}
