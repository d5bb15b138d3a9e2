package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultTimeout is the per-call adapter deadline from §5 "Timeouts" (5s
// default for adapters).
const DefaultTimeout = 5 * time.Second

// NewPooledHTTPClient returns an *http.Client tuned for many short-lived
// adapter calls, adapted from the teacher's internal/pipeline/httpclient.go
// pooled-transport idiom.
func NewPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	if poolSize < 1 {
		poolSize = 4
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize * 2,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: timeout,
			ForceAttemptHTTP2:     true,
		},
	}
}

// HTTPSmartHome posts {device, action, room} to a smart-home control
// service and returns its JSON echo, grounded on orchestrator.py's POST to
// SMART_URL.
type HTTPSmartHome struct {
	URL    string
	Client *http.Client
}

func (h *HTTPSmartHome) Command(ctx context.Context, device, action, room string) (map[string]any, error) {
	body, _ := json.Marshal(map[string]string{"device": device, "action": action, "room": room})
	raw, err := postJSON(ctx, h.client(), h.URL, body)
	if err != nil {
		return nil, fmt.Errorf("smart-home adapter: %w", err)
	}
	echo := map[string]any{
		"device": device,
		"action": action,
		"room":   room,
	}
	if v := gjson.GetBytes(raw, "echo"); v.Exists() {
		echo["upstream"] = v.Value()
	}
	return echo, nil
}

func (h *HTTPSmartHome) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

// HTTPSIP posts {callee, reason} to the SIP dialer, grounded on
// orchestrator.py's POST to SIP_URL for both the emergency-bypass dial and
// a post-Guard "call.emergency" dispatch.
type HTTPSIP struct {
	URL    string
	Client *http.Client
}

func (h *HTTPSIP) Call(ctx context.Context, callee, reason string) error {
	body, _ := json.Marshal(map[string]string{"callee": callee, "reason": reason})
	_, err := postJSON(ctx, h.client(), h.URL, body)
	if err != nil {
		return fmt.Errorf("sip adapter: %w", err)
	}
	return nil
}

func (h *HTTPSIP) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
