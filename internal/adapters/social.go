package adapters

import "context"

// fixedReplies holds the small, closed set of mood-keyed canned responses
// social-chat execution may return — the Non-goal "no natural-language
// generation beyond fixed confirmation/clarification templates" applies
// here just as much as to PostGuard prompts.
var fixedReplies = map[string]string{
	"nostalgic": "好的，我给您放一些怀旧的老歌。",
	"friendly":  "好呀，我们聊聊吧。",
	"lonely":    "我在这里陪着您呢。",
}

const defaultSocialReply = "好的，我在听。"

// FixedTemplateSocial implements Social with the canned-reply table above,
// optionally speaking the reply through an injected TTS capability.
type FixedTemplateSocial struct {
	Speaker TTS
}

func (s *FixedTemplateSocial) Chat(ctx context.Context, contentType, mood string) (string, error) {
	reply, ok := fixedReplies[mood]
	if !ok {
		reply = defaultSocialReply
	}
	if s.Speaker != nil {
		if err := s.Speaker.Speak(ctx, reply); err != nil {
			return reply, err
		}
	}
	return reply, nil
}

// NoopTTS discards speech requests — used where no TTS capability is wired
// (TTS synthesis itself is out of scope per §1).
type NoopTTS struct{}

func (NoopTTS) Speak(context.Context, string) error { return nil }
