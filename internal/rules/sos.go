package rules

import "github.com/eldercare/triage-core/internal/domain"

// DetectSOS scans all five SOS categories, combining keywords from every
// matched category but keeping the highest-urgency category as the
// reported Category, per §4.2 "Multiple matches combine keywords but keep
// the highest-urgency category."
func DetectSOS(text string, emo domain.EmotionSnapshot) (domain.SOSHit, bool) {
	var matchedCategories []string
	var allKeywords []string

	for _, cat := range sosPriority {
		hits := matchPatterns(text, sosPatterns[cat])
		if len(hits) == 0 {
			continue
		}
		matchedCategories = append(matchedCategories, cat)
		allKeywords = append(allKeywords, hits...)
	}

	if len(matchedCategories) == 0 {
		return domain.SOSHit{}, false
	}

	best := matchedCategories[0]
	for _, cat := range matchedCategories[1:] {
		if sosUrgency[cat] > sosUrgency[best] {
			best = cat
		} else if sosUrgency[cat] == sosUrgency[best] && priorityRank(cat) < priorityRank(best) {
			best = cat
		}
	}

	confidence := 0.7
	if emo.Stress > 0.7 {
		confidence += 0.2
	}
	switch emo.PrimaryEmotion {
	case domain.EmotionFear, domain.EmotionPain, "distress":
		confidence += 0.15
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	urgency := sosUrgency[best]
	if emo.Stress > 0.8 {
		urgency++
	}
	if urgency > 4 {
		urgency = 4
	}

	return domain.SOSHit{
		Category:   best,
		Keywords:   dedupe(allKeywords),
		Urgency:    urgency,
		Confidence: confidence,
	}, true
}

func priorityRank(cat string) int {
	for i, c := range sosPriority {
		if c == cat {
			return i
		}
	}
	return len(sosPriority)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
