package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eldercare/triage-core/internal/adapters"
	"github.com/eldercare/triage-core/internal/audit"
	"github.com/eldercare/triage-core/internal/geofence"
	"github.com/eldercare/triage-core/internal/intent"
	"github.com/eldercare/triage-core/internal/orchestrator"
	"github.com/eldercare/triage-core/internal/trace"
	"github.com/eldercare/triage-core/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	zones := geofence.NewTable(loadZones(cfg.ZonesPath))
	monitor := geofence.NewMonitor(zones)

	engine := &intent.Engine{
		Backend:      cfg.LLMBackend,
		SystemPrompt: cfg.loadSystemPrompt(),
		CloudTimeout: cfg.LLMCloudTimeout,
		EdgeTimeout:  cfg.LLMEdgeTimeout,
	}
	if cfg.LLMCloudAPIKey != "" {
		engine.Cloud = intent.NewCloudBackend(cfg.LLMCloudURL, cfg.LLMCloudAPIKey, cfg.LLMCloudModel, cfg.LLMCloudMaxTokens, true)
	}
	if cfg.LLMEdgeURL != "" {
		engine.Edge = intent.NewEdgeBackend(cfg.LLMEdgeURL, adapters.NewPooledHTTPClient(4, cfg.LLMEdgeTimeout), cfg.LLMEdgeMaxTokens)
	}

	adapterClient := adapters.NewPooledHTTPClient(8, adapters.DefaultTimeout)

	var smartHome adapters.SmartHome = &adapters.FakeSmartHome{}
	if cfg.SmartHomeURL != "" {
		smartHome = &adapters.HTTPSmartHome{URL: cfg.SmartHomeURL, Client: adapterClient}
	}
	var sip adapters.SIPCaller = &adapters.FakeSIP{}
	if cfg.SIPURL != "" {
		sip = &adapters.HTTPSIP{URL: cfg.SIPURL, Client: adapterClient}
	}
	var social adapters.Social = &adapters.FixedTemplateSocial{Speaker: adapters.NoopTTS{}}

	auditLogger := newAuditLogger(cfg.AuditLogPath)

	orc := &orchestrator.Orchestrator{
		Zones:        monitor,
		Intent:       engine,
		SmartHome:    smartHome,
		SIP:          sip,
		Social:       social,
		Context:      orchestrator.NewConversationContext(),
		BypassCallee: cfg.BypassCallee,
		Audit: func(rec orchestrator.AuditRecord) {
			auditLogger.Write(audit.Record{
				RequestID:   rec.RequestID,
				InputText:   rec.InputText,
				Verdict:     rec.Verdict,
				AdapterEcho: rec.AdapterEcho,
				DispatchErr: rec.DispatchErr,
				Trace:       rec.Trace,
			})
		},
	}

	var traceStore *trace.Store
	if cfg.PostgresURL != "" {
		var err error
		traceStore, err = trace.Open(cfg.PostgresURL)
		if err != nil {
			slog.Error("trace store open failed", "error", err)
		} else {
			slog.Info("trace store enabled", "postgres", cfg.PostgresURL)
		}
	}

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		Orchestrator: orc,
		SegmentCfg:   cfg.segmentConfig(),
		QueueCap:     cfg.QueueCap,
		TraceStore:   traceStore,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{orc: orc, wsHandler: wsHandler, maxTotalLatency: cfg.MaxTotalLatency})

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv, traceStore)

	slog.Info("companion starting", "addr", addr, "llm_backend", cfg.LLMBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("companion stopped")
}

func awaitShutdown(srv *http.Server, traceStore *trace.Store) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if traceStore != nil {
		if err := traceStore.Close(); err != nil {
			slog.Warn("trace store close", "error", err)
		}
	}
	srv.Shutdown(ctx)
}

// newAuditLogger opens the append-only audit sink named by path, falling
// back to stdout if path is empty — §6 "Persisted state" requires exactly
// one audit record per request regardless of deployment configuration.
func newAuditLogger(path string) *audit.Logger {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			slog.Error("audit log open failed, falling back to stdout", "error", err, "path", path)
		} else {
			w = f
		}
	}
	return audit.New(w)
}
