package orchestrator

import (
	"fmt"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/eldercare/triage-core/internal/geofence"
	"github.com/eldercare/triage-core/internal/rules"
)

// Canonical decision reasons and prompts, adopted verbatim from the
// reference Guard service's literal strings (guard_service.py) where
// spec.md names the rule but not always the exact wording.
const (
	reasonSOSKeyword    = "sos_keyword"
	reasonSpeedPolicy   = "speed_policy"
	reasonUnsafeDevice  = "unsafe_device"
	reasonPolicy        = "policy"

	unlockPrompt = `需要打开门锁吗？请说"确认开锁"或"取消"。`
)

// sipRoute is the escalation route attached to every dispatch_emergency
// decision, adopted from guard_service.py's route array.
var sipRoute = []string{"sip", "family", "doctor"}

func deviceConfirmPrompt(device string) string {
	return fmt.Sprintf("即将操作高风险设备 %s，是否确认？", device)
}

func calleeConfirmPrompt(callee string) string {
	return fmt.Sprintf("即将联系 %s，是否确认？", callee)
}

// PostGuard applies the policy rules of §4.5 step 6 to a candidate intent
// produced either by rules-extraction or by C4, returning the verdict that
// determines Execute vs. need_confirm vs. deny.
func PostGuard(candidate domain.Intent, bypassed bool) domain.GuardDecision {
	switch candidate.Tag {
	case domain.IntentLockUnlock:
		return domain.GuardDecision{
			Verdict:   domain.VerdictNeedConfirm,
			Reason:    "unlock requires consent",
			RiskLevel: domain.RiskHigh,
			Prompt:    unlockPrompt,
		}

	case domain.IntentAssistMove:
		if candidate.Speed == "fast" {
			return domain.GuardDecision{
				Verdict:   domain.VerdictDeny,
				Reason:    reasonSpeedPolicy,
				RiskLevel: domain.RiskHigh,
			}
		}

	case domain.IntentCallEmergency:
		if !bypassed {
			return domain.GuardDecision{
				Verdict:   domain.VerdictDispatchEmergency,
				Reason:    reasonPolicy,
				RiskLevel: domain.RiskHigh,
				Route:     sipRoute,
			}
		}

	case domain.IntentSmartHome:
		if rules.HighRiskDevices[candidate.Device] {
			return domain.GuardDecision{
				Verdict:   domain.VerdictNeedConfirm,
				Reason:    reasonUnsafeDevice,
				RiskLevel: domain.RiskHigh,
				Prompt:    deviceConfirmPrompt(candidate.Device),
			}
		}
	}

	return domain.GuardDecision{Verdict: domain.VerdictAllow, RiskLevel: domain.RiskLow}
}

// PreGuard answers POST /guard/check for `type:"asr"`: a standalone check of
// raw ASR text against the same bypass conditions Handle evaluates at the
// top of its own pipeline (§4.5 step 2), without running rules-extraction,
// C4, or execution. It lets a caller probe a transcript for an emergency or
// wakeword condition before deciding whether to submit it to /asr_text.
func PreGuard(text string, emo domain.EmotionSnapshot, geo geofence.Result) domain.GuardDecision {
	sosHit, sosOK := rules.DetectSOS(text, emo)
	bypass := (sosOK && sosHit.Urgency >= 3) || geo.Status == geofence.StatusEmergency
	if bypass {
		reason := reasonSOSKeyword
		if !sosOK {
			reason = "geofence_emergency"
		}
		return domain.GuardDecision{Verdict: domain.VerdictDispatchEmergency, Reason: reason, RiskLevel: domain.RiskHigh, Route: sipRoute}
	}

	if hit, ok := rules.DetectWakeword(text, emo); ok {
		return domain.GuardDecision{Verdict: domain.VerdictWake, Reason: hit.Type, RiskLevel: domain.RiskLow}
	}

	return domain.GuardDecision{Verdict: domain.VerdictPassText, RiskLevel: domain.RiskLow}
}
