package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/huangang/teamdesk/internal/services"
)

const maxAuditBody = 2000

var sensitiveKeys = []string{"password", "secret", "token", "access_token"}

// AuditLog records write operations (POST/PATCH/DELETE) to system_logs.
// It must run after AuthRequired so the actor is known.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPatch && method != http.MethodDelete {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = maskSensitiveFields(string(bodyBytes))
			bodySnippet = truncateBody(bodySnippet, maxAuditBody)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)
		message := formatAuditMessage(GetEmail(c), method, c.Request.URL.Path, status)

		var uid *string
		if userID := GetUserID(c); userID != "" {
			uid = &userID
		}

		write := services.LogInfo
		switch {
		case status >= http.StatusInternalServerError:
			write = services.LogError
		case status >= http.StatusBadRequest:
			write = services.LogWarning
		}
		write(module, action, message, uid, c.ClientIP(), c.Request.UserAgent(), map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   bodySnippet,
			"audit":  true,
		})
	}
}

// parseRouteInfo maps a route pattern and method to a module and action,
// e.g. "/api/teams/:id/members/:userId" + "POST" gives ("Teams", "Create").
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	module = strings.SplitN(path, "/", 2)[0]
	if module == "" {
		module = "unknown"
	}
	module = capitalizeWords(strings.ReplaceAll(module, "-", " "))

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPatch:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}
	return module, action
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatAuditMessage(email, method, path string, status int) string {
	var b strings.Builder
	b.WriteString("[Audit] ")
	if email == "" {
		email = "anonymous"
	}
	b.WriteString(email)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString(" → ")
	if status >= 200 && status < 300 {
		b.WriteString("OK")
	} else {
		b.WriteString("Failed")
	}
	return b.String()
}

// maskSensitiveFields replaces the string values of sensitive JSON keys.
func maskSensitiveFields(body string) string {
	for _, key := range sensitiveKeys {
		body = maskJSONValue(body, key)
	}
	return body
}

// maskJSONValue is a best-effort mask of every "key": "value" pair in body.
func maskJSONValue(body, key string) string {
	needle := "\"" + key + "\""
	from := 0
	for {
		idx := strings.Index(body[from:], needle)
		if idx == -1 {
			return body
		}
		pos := from + idx + len(needle)

		for pos < len(body) && (body[pos] == ' ' || body[pos] == '\t') {
			pos++
		}
		if pos >= len(body) || body[pos] != ':' {
			from = pos
			continue
		}
		pos++
		for pos < len(body) && (body[pos] == ' ' || body[pos] == '\t') {
			pos++
		}
		if pos >= len(body) || body[pos] != '"' {
			from = pos
			continue
		}

		end := closingQuote(body, pos+1)
		if end == -1 {
			return body[:pos+1] + "***"
		}
		body = body[:pos+1] + "***" + body[end:]
		from = pos + 1 + len("***") + 1
	}
}

// closingQuote returns the index of the quote ending the JSON string that
// starts at from, skipping backslash escapes, or -1.
func closingQuote(body string, from int) int {
	for i := from; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// truncateBody cuts s to at most limit bytes without splitting a rune.
func truncateBody(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...[truncated]"
}
