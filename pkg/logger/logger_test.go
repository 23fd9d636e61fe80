package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)
	t.Cleanup(func() { Init("info") })
	return &buf
}

func TestGinLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected string
	}{
		{"ok", http.StatusOK, "info"},
		{"client error", http.StatusNotFound, "warn"},
		{"server error", http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)

			router := gin.New()
			router.Use(GinLogger())
			router.GET("/x", func(c *gin.Context) {
				c.Set("user_id", "u-1")
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/x?q=1", nil)
			router.ServeHTTP(w, req)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.expected {
				t.Errorf("level = %v, expected %q", entry["level"], tt.expected)
			}
			if entry["user_id"] != "u-1" {
				t.Errorf("user_id = %v, expected %q", entry["user_id"], "u-1")
			}
			if entry["path"] != "/x" {
				t.Errorf("path = %v, expected %q", entry["path"], "/x")
			}
		})
	}
}

func TestGinRecovery(t *testing.T) {
	buf := captureLogs(t)

	router := gin.New()
	router.Use(GinRecovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/panic", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	Init("not-a-level")
	defer Init("info")

	l := Get()
	if l.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, expected info", l.GetLevel())
	}
}
