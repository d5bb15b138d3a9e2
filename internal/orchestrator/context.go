package orchestrator

import (
	"strings"
	"sync"
	"time"

	"github.com/eldercare/triage-core/internal/domain"
)

const conversationWindow = 10
const boostLookback = 3
const boostPerMatch = 0.1

// ConversationContext is a mutex-guarded ring of the last N conversation
// turns, single-writer from within the orchestrator loop (§3, §5). It is
// the orchestrator's only piece of shared mutable state besides the zone
// table, and is never exposed by reference — callers only get read copies
// or a narrow boost accessor.
type ConversationContext struct {
	mu      sync.Mutex
	entries []domain.ConversationEntry
}

// NewConversationContext constructs an empty context.
func NewConversationContext() *ConversationContext {
	return &ConversationContext{entries: make([]domain.ConversationEntry, 0, conversationWindow)}
}

// Append records one turn, evicting the oldest entry once the window is full.
func (c *ConversationContext) Append(text string, emotion domain.EmotionSnapshot, topic string, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, domain.ConversationEntry{
		Text:      text,
		Emotion:   emotion,
		Topic:     topic,
		Timestamp: ts,
	})
	if len(c.entries) > conversationWindow {
		c.entries = c.entries[len(c.entries)-conversationWindow:]
	}
}

// Snapshot returns a read-copy of the current window, safe to range over
// without holding the lock.
func (c *ConversationContext) Snapshot() []domain.ConversationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ConversationEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// SetLastTopic patches the topic of the most recently appended entry. The
// topic is not known until after RulesCheck/LLMParse has classified the
// turn, so Preprocessing appends with an empty topic and the orchestrator
// back-fills it once classification completes (§4.5 steps 1 and 3-5).
func (c *ConversationContext) SetLastTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return
	}
	c.entries[len(c.entries)-1].Topic = topic
}

// RecentTopics returns up to the last n topics, most recent last.
func (c *ConversationContext) RecentTopics(n int) []string {
	snap := c.Snapshot()
	if len(snap) > n {
		snap = snap[len(snap)-n:]
	}
	topics := make([]string, 0, len(snap))
	for _, e := range snap {
		if e.Topic != "" {
			topics = append(topics, e.Topic)
		}
	}
	return topics
}

// Boost implements the C2 context-boost accessor from §4.5:
// boost(command_type) = 0.1 × (# of last 3 entries whose topic contains
// command_type).
func (c *ConversationContext) Boost(commandType string) float64 {
	snap := c.Snapshot()
	if len(snap) > boostLookback {
		snap = snap[len(snap)-boostLookback:]
	}
	count := 0
	for _, e := range snap {
		if strings.Contains(e.Topic, commandType) {
			count++
		}
	}
	return boostPerMatch * float64(count)
}
