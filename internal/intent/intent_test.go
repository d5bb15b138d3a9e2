package intent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject_FindsFirstBalancedObject(t *testing.T) {
	raw := "here you go: {\"intent\":\"social.chat\",\"content_type\":\"music\"} thanks"
	obj, ok := ExtractJSONObject(raw)
	require.True(t, ok)
	require.JSONEq(t, `{"intent":"social.chat","content_type":"music"}`, obj)
}

func TestExtractJSONObject_NestedBraces(t *testing.T) {
	raw := `{"intent":"smart.home","device":"light","meta":{"nested":true}}`
	obj, ok := ExtractJSONObject(raw)
	require.True(t, ok)
	require.Equal(t, raw, obj)
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	_, ok := ExtractJSONObject("no braces here")
	require.False(t, ok)
}

func TestParseIntent_RoundTrip(t *testing.T) {
	raw := `{"intent":"smart.home","device":"living_room_light","action":"on","confirm":false}`
	parsed, err := ParseIntent(raw)
	require.NoError(t, err)

	reencoded, err := json.Marshal(parsed)
	require.NoError(t, err)

	var candidate domain.Intent
	require.NoError(t, json.Unmarshal([]byte(raw), &candidate))
	reencodedCandidate, err := json.Marshal(candidate)
	require.NoError(t, err)

	require.JSONEq(t, string(reencodedCandidate), string(reencoded))
}

func TestParseIntent_DisallowedTagCoercedToUnknown(t *testing.T) {
	got, err := ParseIntent(`{"intent":"launch.missiles"}`)
	require.ErrorIs(t, err, ErrDisallowedTag)
	require.Equal(t, domain.IntentUnknown, got.Tag)
}

func TestParseIntent_Unparsable(t *testing.T) {
	_, err := ParseIntent("not json at all")
	require.ErrorIs(t, err, ErrNoJSONObject)
}

type fakeBackend struct {
	resp string
	err  error
	wait time.Duration
}

func (f fakeBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	if f.wait > 0 {
		select {
		case <-time.After(f.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.resp, f.err
}

func TestEngine_Parse_HappyPath(t *testing.T) {
	e := &Engine{
		Cloud:   fakeBackend{resp: `{"intent":"social.chat","content_type":"music","mood":"nostalgic"}`},
		Backend: "cloud",
	}
	got := e.Parse(context.Background(), "我想听老歌", Context{})
	require.Equal(t, domain.IntentSocialChat, got.Tag)
}

func TestEngine_Parse_UnreachableFallsBackToClarify(t *testing.T) {
	e := &Engine{
		Cloud:   fakeBackend{err: errors.New("connection refused")},
		Backend: "cloud",
	}
	got := e.Parse(context.Background(), "随便说点什么", Context{})
	require.True(t, got.IsClarify())
	require.Equal(t, []string{"intent_type"}, got.MissingFields)
}

func TestEngine_Parse_TimeoutFallsBackToClarify(t *testing.T) {
	e := &Engine{
		Cloud:        fakeBackend{wait: 50 * time.Millisecond, resp: `{"intent":"social.chat"}`},
		Backend:      "cloud",
		CloudTimeout: 5 * time.Millisecond,
	}
	got := e.Parse(context.Background(), "随便说点什么", Context{})
	require.True(t, got.IsClarify())
}

func TestEngine_Parse_UnparsableFallsBackToClarifyFormat(t *testing.T) {
	e := &Engine{
		Cloud:   fakeBackend{resp: "嗯... 我不太明白"},
		Backend: "cloud",
	}
	got := e.Parse(context.Background(), "我要调节一下", Context{})
	require.True(t, got.IsClarify())
	require.Equal(t, []string{"format"}, got.MissingFields)
}

func TestEngine_Parse_NoBackendConfigured(t *testing.T) {
	e := &Engine{Backend: "cloud"}
	got := e.Parse(context.Background(), "hello", Context{})
	require.True(t, got.IsClarify())
}
