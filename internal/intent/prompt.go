package intent

import "github.com/eldercare/triage-core/internal/prompts"

// RenderSystemPrompt composes the fixed JSON-only system prompt with the
// request-scoped Context (§4.4 "Input: {text, context}").
func RenderSystemPrompt(base string, rc Context) string {
	return prompts.RenderContext(prompts.ForSession(base), rc.AvailableDevices, rc.LocationZone, rc.RecentTopics)
}
