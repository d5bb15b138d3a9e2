// Package domain holds the wire and in-process data model shared by every
// stage of the triage pipeline: C1's SpeechSegment, C2/C3's hit types,
// C4/C5's Intent and GuardDecision, and the PipelineTrace carried alongside
// a request end to end.
package domain

import "time"

// AudioFrame is a non-owning view into the segmenter's ring buffer: mono
// 32-bit float PCM at a declared sample rate, produced in fixed-duration
// hops. Callers must not retain Samples past the call that produced it.
type AudioFrame struct {
	Samples    []float32
	SampleRate int
	HopMs      int
}

// SpeechSegment is an owned, contiguous run of voiced audio emitted by C1.
type SpeechSegment struct {
	Samples    []float32
	SampleRate int
	StartedAt  time.Time
	EndedAt    time.Time
}

// DurationMs reports the segment's duration rounded down to the millisecond.
func (s SpeechSegment) DurationMs() int64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return int64(len(s.Samples)) * 1000 / int64(s.SampleRate)
}

// Language tags recognized by Transcript.
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

// Transcript is the ASR boundary's reply: text recognized from a
// SpeechSegment, never produced by this module itself.
type Transcript struct {
	Text       string
	Language   string
	Confidence float64
	Segment    SpeechSegment
}

// Primary emotions recognized by EmotionSnapshot.
const (
	EmotionNeutral     = "neutral"
	EmotionHappy       = "happy"
	EmotionSad         = "sad"
	EmotionFear        = "fear"
	EmotionPain        = "pain"
	EmotionAnger       = "anger"
	EmotionFrustrated  = "frustrated"
	EmotionUncomfortable = "uncomfortable"
	EmotionLonely      = "lonely"
	EmotionConfused    = "confused"
)

// EmotionSnapshot is a point-in-time read of the speaker's affect, produced
// externally (e.g. by a voice-emotion classifier) and consumed by C2/C5.
type EmotionSnapshot struct {
	PrimaryEmotion string
	Stress         float64
	Arousal        float64
	Valence        float64
	VoiceQuality   float64
}

// EmotionReference maps a primary emotion label to its reference
// valence/arousal coordinates, used by test fakes to synthesize a plausible
// EmotionSnapshot from just a label.
var EmotionReference = map[string]struct {
	Valence float64
	Arousal float64
}{
	EmotionHappy:         {0.8, 0.6},
	EmotionSad:           {-0.6, 0.3},
	EmotionAnger:         {-0.7, 0.8},
	EmotionFear:          {-0.8, 0.7},
	"concerned":          {-0.4, 0.6},
	"surprised":          {0.1, 0.8},
	EmotionNeutral:       {0.0, 0.3},
	EmotionUncomfortable: {-0.6, 0.5},
	EmotionLonely:        {-0.7, 0.2},
	EmotionConfused:      {-0.3, 0.4},
	EmotionFrustrated:    {-0.5, 0.7},
}

// SnapshotFromEmotion builds a plausible EmotionSnapshot from just a primary
// emotion label plus stress/voice-quality readings, looking up valence and
// arousal from EmotionReference. Unrecognized labels fall back to the
// neutral coordinates. Intended for tests and fixtures that don't want to
// hand-fill every EmotionSnapshot field.
func SnapshotFromEmotion(primary string, stress, voiceQuality float64) EmotionSnapshot {
	ref, ok := EmotionReference[primary]
	if !ok {
		ref = EmotionReference[EmotionNeutral]
	}
	return EmotionSnapshot{
		PrimaryEmotion: primary,
		Stress:         stress,
		VoiceQuality:   voiceQuality,
		Valence:        ref.Valence,
		Arousal:        ref.Arousal,
	}
}

// Location is a 2-D point in room-frame meters.
type Location struct {
	X, Y float64
}

// Zone is a circular safe region; the zone set is static at runtime and
// swapped atomically on reload (see internal/geofence).
type Zone struct {
	ID     string
	Center Location
	Radius float64
}

// Wakeword categories, scanned in priority order emergency > primary > attention.
const (
	WakewordPrimary   = "primary"
	WakewordEmergency = "emergency"
	WakewordAttention = "attention"
)

// WakewordHit is a detected wakeword utterance.
type WakewordHit struct {
	Type       string
	Keyword    string
	Confidence float64
}

// SOS categories, scanned in priority order explicit > medical > fall > confusion > emotional.
const (
	SOSExplicit  = "explicit"
	SOSMedical   = "medical"
	SOSFall      = "fall"
	SOSConfusion = "confusion"
	SOSEmotional = "emotional"
)

// SOSHit is a detected emergency utterance.
type SOSHit struct {
	Category   string
	Keywords   []string
	Urgency    int
	Confidence float64
}

// Intent tags, matching the canonical wire schema keys in §6.
const (
	IntentSmartHome        = "smart.home"
	IntentCallEmergency    = "call.emergency"
	IntentSocialChat       = "social.chat"
	IntentAssistMove       = "assist.move"
	IntentLockUnlock       = "lock.unlock"
	IntentAskClarification = "ask.clarification"
	IntentUnknown          = "unknown"
)

// Intent is the tagged variant produced by C2 (direct extraction) or C4
// (LLM parse). Only the fields relevant to Tag are populated; the others are
// left at their zero value. This mirrors a discriminated union the way Go's
// encoding/json naturally expresses one: a single struct with an explicit
// discriminator field.
type Intent struct {
	Tag string `json:"intent"`

	// smart.home
	Device  string `json:"device,omitempty"`
	Action  string `json:"action,omitempty"`
	Room    string `json:"room,omitempty"`
	Confirm bool   `json:"confirm,omitempty"`

	// call.emergency
	Callee string `json:"callee,omitempty"`
	Reason string `json:"reason,omitempty"`

	// social.chat
	ContentType string `json:"content_type,omitempty"`
	Mood        string `json:"mood,omitempty"`

	// assist.move
	Target string `json:"target,omitempty"`
	Speed  string `json:"speed,omitempty"`

	// lock.unlock reuses Target above.

	// ask.clarification
	Need           string   `json:"need,omitempty"`
	MissingFields  []string `json:"missing_fields,omitempty"`
	ClarifyPrompt  string   `json:"clarify_prompt,omitempty"`
}

// IsClarify reports whether the intent is the terminal Clarify variant.
func (i Intent) IsClarify() bool { return i.Tag == IntentAskClarification }

// Clarify builds the ask.clarification Intent variant.
func Clarify(missing []string, prompt string) Intent {
	return Intent{
		Tag:           IntentAskClarification,
		Need:          "format",
		MissingFields: missing,
		ClarifyPrompt: prompt,
	}
}

// GuardDecision verdicts.
const (
	VerdictAllow             = "allow"
	VerdictNeedConfirm       = "need_confirm"
	VerdictDeny              = "deny"
	VerdictDispatchEmergency = "dispatch_emergency"
	VerdictPassText          = "pass_text"
	VerdictWake              = "wake"
)

// Risk levels used by GuardDecision.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// GuardDecision is the outcome of a Guard pass (pre- or post-).
type GuardDecision struct {
	Verdict   string
	Reason    string
	RiskLevel string
	Prompt    string
	Route     []string
}

// PipelineSpan is one named, timed stage a request passed through.
type PipelineSpan struct {
	Name       string
	ElapsedMs  int64
}

// PipelineTrace is the ordered list of stages a request passed through,
// always produced even on failure.
type PipelineTrace struct {
	RequestID string
	Spans     []PipelineSpan
}

// Record appends a stage name with its elapsed duration.
func (t *PipelineTrace) Record(name string, elapsed time.Duration) {
	t.Spans = append(t.Spans, PipelineSpan{Name: name, ElapsedMs: elapsed.Milliseconds()})
}

// Contains reports whether the named stage appears anywhere in the trace.
func (t PipelineTrace) Contains(name string) bool {
	for _, s := range t.Spans {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Canonical PipelineTrace stage-name vocabulary, adopted from the
// industrial rules-first demo this spec was distilled from.
const (
	StagePreprocessing   = "preprocessing"
	StageRulesCheck      = "rules_check"
	StageIndustrialKWS   = "industrial_kws"
	StageRulesExtraction = "rules_extraction"
	StageRequiresLLM     = "requires_llm"
	StageEmergencyBypass = "emergency_bypass"
	StageLLMParse        = "llm_parse"
	StagePostGuard       = "post_guard"
	StageExecute         = "execute"
	StageCanceled        = "canceled"
	StageFailed          = "failed"
)

// ConversationEntry is one turn in the rolling ConversationContext window.
type ConversationEntry struct {
	Text      string
	Emotion   EmotionSnapshot
	Topic     string
	Timestamp time.Time
}
