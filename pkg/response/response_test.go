package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, "User retrieved successfully", map[string]string{"name": "test"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := parseResponse(t, w)
	if !resp.Success {
		t.Error("expected success to be true")
	}
	if resp.Message != "User retrieved successfully" {
		t.Errorf("expected message 'User retrieved successfully', got %q", resp.Message)
	}
	if resp.Data == nil {
		t.Error("expected data to be present")
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, "Team created successfully", map[string]int{"id": 1})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}

	resp := parseResponse(t, w)
	if !resp.Success {
		t.Error("expected success to be true")
	}
}

func TestBadRequest(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		BadRequest(c, "boom")
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Success {
		t.Error("expected success to be false")
	}
	if resp.Message != "boom" {
		t.Errorf("expected message 'boom', got %q", resp.Message)
	}
}

func TestError_WithAppError(t *testing.T) {
	tests := []struct {
		err      *AppError
		expected int
	}{
		{NewBadRequest("validation failed"), http.StatusBadRequest},
		{NewUnauthorized("Invalid credentials"), http.StatusUnauthorized},
		{NewForbidden("Forbidden resource"), http.StatusForbidden},
		{NewNotFound("Team with ID x not found"), http.StatusNotFound},
		{NewConflict("Email already registered"), http.StatusConflict},
	}

	for _, tt := range tests {
		w := performRequest(func(c *gin.Context) {
			Error(c, tt.err)
		})

		if w.Code != tt.expected {
			t.Errorf("%q: expected status %d, got %d", tt.err.Message, tt.expected, w.Code)
		}

		resp := parseResponse(t, w)
		if resp.Success {
			t.Errorf("%q: expected success to be false", tt.err.Message)
		}
		if resp.Message != tt.err.Message {
			t.Errorf("expected message %q, got %q", tt.err.Message, resp.Message)
		}
	}
}

func TestError_WrappedAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, fmt.Errorf("lookup: %w", NewNotFound("User with ID 1 not found")))
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestError_WithGenericError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("SELECT * FROM users failed: near syntax"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Message != "Internal server error" {
		t.Errorf("expected generic message, got %q", resp.Message)
	}
	if strings.Contains(w.Body.String(), "SELECT") {
		t.Error("internal error details must not leak into the response")
	}
}

func TestAbort(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)

	Abort(c, NewForbidden("Forbidden resource"))

	if !c.IsAborted() {
		t.Error("expected context to be aborted")
	}
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewConflict("dup"))
	if !IsKind(err, http.StatusConflict) {
		t.Error("expected wrapped conflict to be detected")
	}
	if IsKind(err, http.StatusNotFound) {
		t.Error("conflict should not match not found")
	}
	if IsKind(errors.New("plain"), http.StatusConflict) {
		t.Error("plain error should not match any kind")
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("user not found")
	if err.Error() != "user not found" {
		t.Errorf("expected 'user not found', got %q", err.Error())
	}
}
