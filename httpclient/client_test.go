package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/ISteamUser/GetPlayerSummaries/v0002/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("steamids"); got != "76561197960287930" {
			t.Errorf("expected steamids query, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("expected Accept header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"response": map[string]any{"players": []any{}}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Get(context.Background(), "/ISteamUser/GetPlayerSummaries/v0002/", map[string]string{
		"steamids": "76561197960287930",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := resp.DecodeJSON(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := payload["response"]; !ok {
		t.Errorf("expected response key, got %v", payload)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("expected flattened content type, got %v", resp.Headers)
	}
}

func TestClient_Headers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "steamlens/test" {
			t.Errorf("expected user agent, got %q", got)
		}
		if got := r.Header.Get("X-Default"); got != "overridden" {
			t.Errorf("expected request header to win, got %q", got)
		}
	}))
	defer srv.Close()

	c, _ := New(Config{
		BaseURL:   srv.URL,
		UserAgent: "steamlens/test",
		Headers:   map[string]string{"X-Default": "default"},
	})
	_, err := c.Do(context.Background(), Request{
		Path:    "/x",
		Headers: map[string]string{"X-Default": "overridden"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{304, ErrCodeUnexpectedStatus, false},
		{400, ErrCodeClient, false},
		{401, ErrCodeAuth, false},
		{403, ErrCodeAuth, false},
		{404, ErrCodeNotFound, false},
		{429, ErrCodeRateLimit, true},
		{500, ErrCodeServer, true},
		{503, ErrCodeServer, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"x"}`))
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			resp, err := c.Get(context.Background(), "/", nil)

			var he *Error
			if !errors.As(err, &he) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if he.Code != tt.code || he.Retryable != tt.retryable {
				t.Errorf("got code=%s retryable=%v", he.Code, he.Retryable)
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("expected response with status %d alongside the error", tt.status)
			}
			if StatusCode(err) != tt.status {
				t.Errorf("StatusCode() = %d", StatusCode(err))
			}
			if IsClientError(err) != (tt.status >= 400 && tt.status < 500 && tt.status != 429) {
				t.Errorf("IsClientError() = %v", IsClientError(err))
			}
			if IsDefinitive(err) != !tt.retryable {
				t.Errorf("IsDefinitive() = %v", IsDefinitive(err))
			}
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url})
	_, err := c.Get(context.Background(), "/", nil)
	if !IsRetryable(err) {
		t.Fatalf("expected retryable connection error, got %v", err)
	}
	if IsDefinitive(err) {
		t.Error("transport errors must not be definitive")
	}
	var he *Error
	if errors.As(err, &he) && he.Code != ErrCodeConnection {
		t.Errorf("expected connection code, got %s", he.Code)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Get(context.Background(), "/", nil)
	var he *Error
	if !errors.As(err, &he) || he.Code != ErrCodeTimeout || !he.Retryable {
		t.Fatalf("expected retryable timeout, got %v", err)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Get(ctx, "/", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("cancellation must not be retryable")
	}
}

func TestClient_FullURLIgnoresBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: "http://unused.invalid"})
	resp, err := c.Get(context.Background(), srv.URL+"/abs", nil)
	if err != nil || !resp.IsSuccess() {
		t.Fatalf("expected absolute URL to be used, got %v", err)
	}
}

func TestClient_MaxBodyBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, MaxBodyBytes: 10})
	resp, err := c.Get(context.Background(), "/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Body) != 10 {
		t.Errorf("expected body truncated to 10 bytes, got %d", len(resp.Body))
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected 10s default timeout, got %s", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := Config{Timeout: time.Second, BaseURL: "not-a-url"}
	if err := bad.Validate(); err == nil {
		t.Error("expected invalid base_url error")
	}
	if _, err := New(Config{BaseURL: "::bad"}); err == nil {
		t.Error("expected New to reject invalid config")
	}
}

func TestErrorCode_String(t *testing.T) {
	if ErrCodeRateLimit.String() != "rate_limit" || ErrorCode(99).String() != "unknown" {
		t.Error("unexpected code names")
	}
	e := ClassifyStatusCode(502, nil)
	if !strings.Contains(e.Error(), "HTTP 502") {
		t.Errorf("unexpected message %q", e.Error())
	}
	if ClassifyStatusCode(204, nil) != nil {
		t.Error("2xx must classify as nil")
	}
}
