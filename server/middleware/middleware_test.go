package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/steamlens/logger"
	"github.com/kbukum/steamlens/server/middleware"
)

func newEngine(log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(middleware.Recovery(log), middleware.RequestID(), middleware.RequestLogger(log))
	return e
}

func TestRecovery_Panic(t *testing.T) {
	e := newEngine(logger.NewNop())
	e.GET("/boom", func(*gin.Context) { panic("test panic") })

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("unexpected error code: %s", body.Error.Code)
	}
}

func TestRequestID(t *testing.T) {
	e := newEngine(logger.NewNop())
	var seen string
	e.GET("/", func(c *gin.Context) {
		seen = c.GetString(middleware.RequestIDKey)
		c.Status(http.StatusOK)
	})

	t.Run("generates", func(t *testing.T) {
		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		got := rr.Header().Get(middleware.RequestIDHeader)
		if got == "" || got != seen {
			t.Errorf("expected generated ID on response and context, got %q / %q", got, seen)
		}
	})

	t.Run("preserves existing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(middleware.RequestIDHeader, "req-123")
		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, req)
		if got := rr.Header().Get(middleware.RequestIDHeader); got != "req-123" {
			t.Errorf("expected req-123, got %q", got)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug")
	e := newEngine(log)
	e.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	e.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if buf.Len() != 0 {
		t.Fatalf("health check paths must not be logged, got %s", buf.String())
	}

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing?x=1", http.NoBody))
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" || entry["path"] != "/missing?x=1" || entry["status"] != float64(404) {
		t.Errorf("unexpected log entry %v", entry)
	}
	if entry["request_id"] == "" {
		t.Error("expected request_id in log entry")
	}
}
