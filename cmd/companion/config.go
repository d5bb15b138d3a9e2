package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/eldercare/triage-core/internal/env"
	"github.com/eldercare/triage-core/internal/segment"
)

// config holds the audio/VAD, LLM and orchestrator knobs of the
// configuration surface (§6) plus the zone-file path, sourced from
// environment variables; the guard keyword, wakeword and high-risk-device
// lists are compiled into internal/rules instead. This follows the teacher's
// env.Str/Int/... idiom rather than a JSON tuning file, since this service
// carries no per-deployment tuning beyond what's listed there.
type config struct {
	Port string

	SampleRate int
	Channels   int
	QueueCap   int

	VADFrameMs      int
	VADHopMs        int
	VADThreshold    float64
	VADMinSpeechMs  int
	VADMaxSilenceMs int
	ResampleTo16k   bool

	ZonesPath string

	LLMBackend         string
	LLMCloudURL        string
	LLMCloudAPIKey     string
	LLMCloudModel      string
	LLMCloudMaxTokens  int
	LLMCloudTimeout    time.Duration
	LLMEdgeURL         string
	LLMEdgeMaxTokens   int
	LLMEdgeTimeout     time.Duration
	LLMSystemPromptPath string

	SmartHomeURL string
	SIPURL       string

	BypassCallee     string
	MaxTotalLatency  time.Duration

	PostgresURL  string
	AuditLogPath string
}

func loadConfig() config {
	return config{
		Port: env.Str("COMPANION_PORT", "8081"),

		SampleRate: env.Int("AUDIO_SAMPLE_RATE", 16000),
		Channels:   env.Int("AUDIO_CHANNELS", 1),
		QueueCap:   env.Int("QUEUE_CAPACITY", 16),

		VADFrameMs:      env.Int("VAD_FRAME_MS", 20),
		VADHopMs:        env.Int("VAD_HOP_MS", 10),
		VADThreshold:    env.Float("VAD_THRESHOLD", 0.015),
		VADMinSpeechMs:  env.Int("VAD_MIN_SPEECH_MS", 200),
		VADMaxSilenceMs: env.Int("VAD_MAX_SIL_MS", 300),
		ResampleTo16k:   env.Bool("RESAMPLE_TO_16K", true),

		ZonesPath: env.Str("ZONES_CONFIG", "configs/zones.yaml"),

		LLMBackend:          env.Str("LLM_BACKEND", "cloud"),
		LLMCloudURL:         env.Str("LLM_CLOUD_URL", "https://api.openai.com/v1/"),
		LLMCloudAPIKey:      env.Str("LLM_CLOUD_API_KEY", ""),
		LLMCloudModel:       env.Str("LLM_CLOUD_MODEL", "gpt-4.1-nano"),
		LLMCloudMaxTokens:   env.Int("LLM_CLOUD_MAX_TOKENS", 512),
		LLMCloudTimeout:     env.Duration("LLM_TIMEOUT_MS", 1500*time.Millisecond),
		LLMEdgeURL:          env.Str("LLM_EDGE_URL", "http://localhost:8080/completion"),
		LLMEdgeMaxTokens:    env.Int("LLM_EDGE_MAX_TOKENS", 256),
		LLMEdgeTimeout:      env.Duration("LLM_EDGE_TIMEOUT_MS", 3000*time.Millisecond),
		LLMSystemPromptPath: env.Str("LLM_SYSTEM_PROMPT_PATH", ""),

		SmartHomeURL: env.Str("SMART_HOME_URL", ""),
		SIPURL:       env.Str("SIP_URL", ""),

		BypassCallee:    env.Str("BYPASS_CALLEE", "120"),
		MaxTotalLatency: env.Duration("MAX_TOTAL_LATENCY_MS", 3000*time.Millisecond),

		PostgresURL:  env.Str("POSTGRES_URL", ""),
		AuditLogPath: env.Str("AUDIT_LOG_PATH", ""),
	}
}

// segmentConfig builds the C1 segmenter config from the VAD knobs of the
// configuration surface (§6); segment.New falls back to
// segment.DefaultConfig for any numeric field left at its zero value.
func (c config) segmentConfig() segment.Config {
	return segment.Config{
		SampleRate:      c.SampleRate,
		Channels:        c.Channels,
		FrameMs:         c.VADFrameMs,
		HopMs:           c.VADHopMs,
		EnergyThreshold: c.VADThreshold,
		MinSpeechMs:     c.VADMinSpeechMs,
		MaxSilenceMs:    c.VADMaxSilenceMs,
		ResampleTo16k:   c.ResampleTo16k,
	}
}

func (c config) loadSystemPrompt() string {
	if c.LLMSystemPromptPath == "" {
		return ""
	}
	data, err := os.ReadFile(c.LLMSystemPromptPath)
	if err != nil {
		return ""
	}
	return string(data)
}

type zonesFile struct {
	Zones []struct {
		ID     string  `yaml:"id"`
		X      float64 `yaml:"x"`
		Y      float64 `yaml:"y"`
		Radius float64 `yaml:"radius"`
	} `yaml:"zones"`
}

// loadZones reads the static zone table from path (§9 "the zone table is
// immutable after load"). A missing or unparsable file yields an empty
// table rather than failing startup — geofence.Evaluate treats every
// position as outside_safe_zones in that case, which is the safe default.
func loadZones(path string) []domain.Zone {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var f zonesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil
	}
	zones := make([]domain.Zone, 0, len(f.Zones))
	for _, z := range f.Zones {
		zones = append(zones, domain.Zone{ID: z.ID, Center: domain.Location{X: z.X, Y: z.Y}, Radius: z.Radius})
	}
	return zones
}
