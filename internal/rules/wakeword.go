package rules

import "github.com/eldercare/triage-core/internal/domain"

// DetectWakeword scans categories in priority order emergency > primary >
// attention and returns the first matched pattern, per §4.2.
func DetectWakeword(text string, emo domain.EmotionSnapshot) (domain.WakewordHit, bool) {
	for _, typ := range wakewordPriority {
		keyword, ok := anyMatch(text, wakewordPatterns[typ])
		if !ok {
			continue
		}
		confidence := 0.8
		if emo.VoiceQuality < 0.7 {
			confidence += 0.15
		}
		if emo.Stress > 0.6 {
			confidence += 0.10
		}
		if confidence > 1.0 {
			confidence = 1.0
		}
		return domain.WakewordHit{Type: typ, Keyword: keyword, Confidence: confidence}, true
	}
	return domain.WakewordHit{}, false
}
