package rules

import "github.com/eldercare/triage-core/internal/domain"

// ContextBoost reinforces implicit-command confidence from recent
// conversation topics; see §4.5 "Context-boost for C2". The orchestrator
// supplies this as a read-only accessor over ConversationContext — rules
// never holds a reference to the orchestrator itself.
type ContextBoost func(commandType string) float64

// ImplicitResult is an emitted implicit-command classification.
type ImplicitResult struct {
	CommandType          string
	Confidence           float64
	RequiresConfirmation bool
}

// RecognizeImplicit scores every implicit command type and emits the
// highest-confidence one if, after boosts, its confidence strictly exceeds
// 0.6 (§4.2, boundary case in §8: confidence == 0.6 is NOT emitted).
func RecognizeImplicit(text string, emo domain.EmotionSnapshot, boost ContextBoost) (ImplicitResult, bool) {
	if boost == nil {
		boost = func(string) float64 { return 0 }
	}

	var best ImplicitResult
	found := false

	for _, typ := range implicitTypes {
		hits := matchPatterns(text, implicitPatterns[typ])
		if len(hits) == 0 {
			continue
		}
		confidence := 0.4 + 0.3*float64(len(hits)) + boost(typ)
		if typ == "social_interaction" && emo.Valence < -0.3 {
			confidence += 0.2
		}
		if confidence <= 0.6 {
			continue
		}
		if !found || confidence > best.Confidence {
			best = ImplicitResult{
				CommandType:          typ,
				Confidence:           confidence,
				RequiresConfirmation: confidence < 0.8,
			}
			found = true
		}
	}

	return best, found
}
