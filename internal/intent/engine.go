package intent

import (
	"context"
	"time"

	"github.com/eldercare/triage-core/internal/domain"
)

// Backend is the capability interface C4 depends on — a single blocking
// structured-completion call. Cloud and Edge each implement it; tests use
// an in-memory fake.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Context carries the request-scoped information the system prompt needs:
// which devices exist, the caller's current zone, and recent topics (§4.4).
type Context struct {
	AvailableDevices []string
	LocationZone     string
	RecentTopics     []string
}

const defaultClarifyPrompt = "请再说一遍，或更具体一点"

// Engine selects between the cloud and edge backends, enforces the latency
// budget, and guarantees the contract of §4.4: exactly one Intent or
// Clarify, never a raw error.
type Engine struct {
	Cloud          Backend
	Edge           Backend
	Backend        string // "cloud" | "edge"
	SystemPrompt   string
	CloudTimeout   time.Duration
	EdgeTimeout    time.Duration
}

// DefaultCloudTimeout and DefaultEdgeTimeout are the §4.4 "Timing" defaults.
const (
	DefaultCloudTimeout = 1500 * time.Millisecond
	DefaultEdgeTimeout  = 3000 * time.Millisecond
)

// Parse runs one LLM call and returns a schema-valid Intent or a Clarify.
// It never returns a Go error: every failure mode (unreachable backend,
// timeout, unparsable output, disallowed tag) resolves to Clarify per §4.4
// and §7.
func (e *Engine) Parse(ctx context.Context, text string, rc Context) domain.Intent {
	backend, timeout := e.resolveBackend()
	if backend == nil {
		return domain.Clarify([]string{"intent_type"}, defaultClarifyPrompt)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := backend.Complete(callCtx, e.renderSystemPrompt(rc), text)
	if err != nil {
		// Unreachable or timed out: §4.4 "Fallback mode."
		return domain.Clarify([]string{"intent_type"}, defaultClarifyPrompt)
	}

	parsed, perr := ParseIntent(raw)
	if perr != nil {
		// Unparsable output or disallowed tag: §4.4 "Schema enforcement."
		return domain.Clarify([]string{"format"}, defaultClarifyPrompt)
	}
	return parsed
}

func (e *Engine) resolveBackend() (Backend, time.Duration) {
	switch e.Backend {
	case "edge":
		t := e.EdgeTimeout
		if t == 0 {
			t = DefaultEdgeTimeout
		}
		return e.Edge, t
	default:
		t := e.CloudTimeout
		if t == 0 {
			t = DefaultCloudTimeout
		}
		return e.Cloud, t
	}
}

func (e *Engine) renderSystemPrompt(rc Context) string {
	return RenderSystemPrompt(e.SystemPrompt, rc)
}
