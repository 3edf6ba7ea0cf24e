// Package analysis talks to the remote screenshot analysis endpoint.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stockscan/cli/internal/scan"
	"github.com/tidwall/gjson"
)

const (
	// DefaultKeyHeader is the header the analysis service reads the pre-shared key from.
	DefaultKeyHeader = "X-Internal-Key"
	DefaultTimeout   = 60 * time.Second

	maxResponseBytes = 8 << 20
)

// Config configures a Client.
type Config struct {
	// Endpoint is the full URL of the analyze route.
	Endpoint string
	// KeyHeader and Key form the optional pre-shared key header. The header
	// is only sent when Key is non-empty.
	KeyHeader string
	Key       string
	Timeout   time.Duration
	UserAgent string

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client submits snapshots to the analysis endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	keyHeader  string
	key        string
	userAgent  string
	logger     *slog.Logger
}

var _ scan.Submitter = (*Client)(nil)

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	keyHeader := cfg.KeyHeader
	if keyHeader == "" {
		keyHeader = DefaultKeyHeader
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint,
		keyHeader:  keyHeader,
		key:        cfg.Key,
		userAgent:  cfg.UserAgent,
		logger:     logger.With("component", "analysis-client"),
	}
}

// Submit posts the snapshot and decodes the service reply. Transport
// failures and non-2xx statuses are scan.NetworkError; a body that is not a
// JSON object with a string "status" is scan.ProtocolError. An application
// level failure ("status" other than "success") is returned as a response,
// not an error.
func (c *Client) Submit(ctx context.Context, req scan.AnalysisRequest) (*scan.AnalysisResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, scan.ProtocolError("marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, scan.NetworkError(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if c.key != "" {
		httpReq.Header.Set(c.keyHeader, c.key)
	}

	c.logger.Debug("analysis: sending snapshot", "endpoint", c.endpoint, "body_bytes", len(body), "auth_header", c.key != "")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, scan.NetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, scan.NetworkError(fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("analysis: response received",
		"http_status", resp.StatusCode,
		"body_bytes", len(raw),
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(raw, "message").String(); msg != "" && gjson.ValidBytes(raw) {
			return nil, scan.NetworkError(fmt.Errorf("unexpected HTTP status %s: %s", resp.Status, msg))
		}
		return nil, scan.NetworkError(fmt.Errorf("unexpected HTTP status %s", resp.Status))
	}

	if len(raw) > maxResponseBytes {
		return nil, scan.ProtocolError("response body too large", nil)
	}

	return ParseResponse(raw)
}

// ParseResponse interprets an analysis reply. When "result" is absent the
// "data" field is used as the result.
func ParseResponse(raw []byte) (*scan.AnalysisResponse, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, scan.ProtocolError("empty response body", nil)
	}
	if !gjson.ValidBytes(raw) {
		return nil, scan.ProtocolError("response is not valid JSON", errors.New(snippet(raw)))
	}

	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, scan.ProtocolError("response is not a JSON object", nil)
	}

	status := root.Get("status")
	if status.Type != gjson.String {
		return nil, scan.ProtocolError(`response has no "status" field`, nil)
	}

	out := &scan.AnalysisResponse{
		Status:  status.Str,
		Message: root.Get("message").String(),
	}

	result := root.Get("result")
	if !result.Exists() {
		result = root.Get("data")
	}
	if result.Exists() {
		out.Result = json.RawMessage(result.Raw)
	}

	if count := root.Get("count"); count.Type == gjson.Number {
		n := count.Int()
		out.Count = &n
	}

	return out, nil
}

// Ping checks that the endpoint answers HTTP at all. Any response counts as
// reachable; the status code is returned for display.
func (c *Client) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}
