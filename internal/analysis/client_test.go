package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stockscan/cli/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSnapshot = scan.Snapshot("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00")))

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{Endpoint: "https://example.test/analyze"})
	assert.Equal(t, DefaultKeyHeader, c.keyHeader)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Empty(t, c.key)
}

func TestNewClient_CustomTimeout(t *testing.T) {
	c := NewClient(Config{Endpoint: "https://example.test/analyze", Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestSubmit_SendsImageAndHeaders(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret-key", r.Header.Get("X-Internal-Key"))
		assert.Equal(t, "stockscan/test", r.Header.Get("User-Agent"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, string(testSnapshot), body["image"])
		assert.Len(t, body, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","result":{"ticker":"ABC"}}`))
	})

	c := NewClient(Config{Endpoint: srv.URL + "/analyze", Key: "secret-key", UserAgent: "stockscan/test"})
	resp, err := c.Submit(context.Background(), scan.AnalysisRequest{Image: testSnapshot})

	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.JSONEq(t, `{"ticker":"ABC"}`, string(resp.Result))
}

func TestSubmit_OmitsKeyHeaderWhenUnset(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header[http.CanonicalHeaderKey(DefaultKeyHeader)]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	c := NewClient(Config{Endpoint: srv.URL})
	_, err := c.Submit(context.Background(), scan.AnalysisRequest{Image: testSnapshot})
	require.NoError(t, err)
}

func TestSubmit_CustomKeyHeader(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		assert.Empty(t, r.Header.Get(DefaultKeyHeader))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	c := NewClient(Config{Endpoint: srv.URL, KeyHeader: "X-Api-Key", Key: "k"})
	_, err := c.Submit(context.Background(), scan.AnalysisRequest{Image: testSnapshot})
	require.NoError(t, err)
}

func TestSubmit_ServerFailureIsAResponse(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"quota exceeded"}`))
	})

	c := NewClient(Config{Endpoint: srv.URL})
	resp, err := c.Submit(context.Background(), scan.AnalysisRequest{Image: testSnapshot})

	require.NoError(t, err)
	assert.False(t, resp.Succeeded())
	assert.Equal(t, "quota exceeded", resp.Message)
}

func TestSubmit_Non2xx(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"plain body", "internal error", "500 Internal Server Error"},
		{"json message", `{"status":"error","message":"model overloaded"}`, "model overloaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tt.body))
			})

			c := NewClient(Config{Endpoint: srv.URL})
			_, err := c.Submit(context.Background(), scan.AnalysisRequest{Image: testSnapshot})

			require.Error(t, err)
			assert.Equal(t, scan.KindNetwork, scan.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSubmit_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{Endpoint: url, Timeout: 2 * time.Second})
	_, err := c.Submit(context.Background(), scan.AnalysisRequest{Image: testSnapshot})

	require.Error(t, err)
	assert.Equal(t, scan.KindNetwork, scan.KindOf(err))
}

func TestSubmit_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := NewClient(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Submit(context.Background(), scan.AnalysisRequest{Image: testSnapshot})

	require.Error(t, err)
	assert.Equal(t, scan.KindNetwork, scan.KindOf(err))
}

func TestSubmit_OversizeBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","result":"`))
		_, _ = w.Write(bytes.Repeat([]byte("a"), maxResponseBytes+1))
		_, _ = w.Write([]byte(`"}`))
	})

	c := NewClient(Config{Endpoint: srv.URL})
	resp, err := c.Submit(context.Background(), scan.AnalysisRequest{Image: testSnapshot})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, scan.KindProtocol, scan.KindOf(err))
	assert.Contains(t, err.Error(), "too large")
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantKind   scan.Kind
		wantStatus string
		wantResult string
		wantCount  *int64
	}{
		{name: "success with result", body: `{"status":"success","result":[1,2]}`, wantStatus: "success", wantResult: `[1,2]`},
		{name: "data used when result missing", body: `{"status":"success","count":2,"data":[{"ticker":"NVDA"},{"ticker":"AAPL"}]}`, wantStatus: "success", wantResult: `[{"ticker":"NVDA"},{"ticker":"AAPL"}]`, wantCount: ptr(int64(2))},
		{name: "no result at all", body: `{"status":"success"}`, wantStatus: "success"},
		{name: "empty body", body: ``, wantKind: scan.KindProtocol},
		{name: "html error page", body: `<html>502</html>`, wantKind: scan.KindProtocol},
		{name: "truncated json", body: `{"status":"succ`, wantKind: scan.KindProtocol},
		{name: "array instead of object", body: `[{"status":"success"}]`, wantKind: scan.KindProtocol},
		{name: "missing status", body: `{"message":"hi"}`, wantKind: scan.KindProtocol},
		{name: "non-string status", body: `{"status":true}`, wantKind: scan.KindProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.body))
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, scan.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.Status)
			if tt.wantResult == "" {
				assert.Nil(t, resp.Result)
			} else {
				assert.JSONEq(t, tt.wantResult, string(resp.Result))
			}
			assert.Equal(t, tt.wantCount, resp.Count)
		})
	}
}

func TestPing(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	c := NewClient(Config{Endpoint: srv.URL})
	code, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

// The handler and the client together, against a stub analysis service.
func TestHandlerWithClient_EndToEnd(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantPhase scan.Phase
		wantText  string
	}{
		{
			name:      "success",
			reply:     `{"status":"success","result":{"ticker":"ABC"}}`,
			wantPhase: scan.PhaseSuccess,
			wantText:  scan.SuccessText,
		},
		{
			name:      "quota exceeded",
			reply:     `{"status":"error","message":"quota exceeded"}`,
			wantPhase: scan.PhaseFailure,
			wantText:  "quota exceeded",
		},
		{
			name:      "malformed json",
			reply:     `{"status":`,
			wantPhase: scan.PhaseFailure,
			wantText:  "not valid JSON",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				_, _ = w.Write([]byte(tt.reply))
			})

			var rendered []scan.StatusMessage
			h := scan.NewHandler(scan.Config{
				Capturer: capturerFunc(func(ctx context.Context) (scan.Snapshot, error) {
					return testSnapshot, nil
				}),
				Submitter: NewClient(Config{Endpoint: srv.URL}),
				Sink: scan.StatusSinkFunc(func(m scan.StatusMessage) {
					rendered = append(rendered, m)
				}),
			})

			h.Trigger(context.Background())

			assert.Equal(t, int32(1), hits.Load())
			require.Len(t, rendered, 2)
			assert.Equal(t, tt.wantPhase, rendered[1].Phase)
			assert.Contains(t, rendered[1].Text, tt.wantText)
		})
	}
}

type capturerFunc func(ctx context.Context) (scan.Snapshot, error)

func (f capturerFunc) Capture(ctx context.Context) (scan.Snapshot, error) { return f(ctx) }

func ptr[T any](v T) *T { return &v }
