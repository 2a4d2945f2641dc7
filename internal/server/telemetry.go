package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/forgecv/internal/db"
	"github.com/jonathan/forgecv/internal/server/middleware"
)

type feedbackRequest struct {
	Rating   int            `json:"rating"`
	Comment  string         `json:"comment"`
	Metadata map[string]any `json:"metadata"`
}

type logRequest struct {
	Level      string         `json:"level"`
	Event      string         `json:"event"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata"`
	AppVersion string         `json:"appVersion"`
}

// feedbackMetadata lists the kept feedback metadata keys with their length caps.
var feedbackMetadata = map[string]int{"provider": 30, "strategy": 30, "pageMode": 10}

var logMetadataKeys = []string{
	"provider", "model", "taskType", "duration", "statusCode",
	"authMode", "strategy", "pageMode", "modelChainIndex", "retryCount",
}

var redactions = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{regexp.MustCompile(`\+?1?\d{10,}`), "[PHONE]"},
	{regexp.MustCompile(`sk-[a-zA-Z0-9-]+`), "[API_KEY]"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+`), "[JWT]"},
	{regexp.MustCompile(`Bearer \S+`), "Bearer [REDACTED]"},
}

func (p *Proxy) handleFeedback(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req feedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Rating != -1 && req.Rating != 1 {
		errorResponse(w, http.StatusBadRequest, "Rating must be -1 or 1")
		return
	}

	meta := make(map[string]any)
	for key, limit := range feedbackMetadata {
		if v, ok := req.Metadata[key]; ok && v != nil {
			meta[key] = truncate(stringify(v), limit)
		}
	}
	err = p.db.InsertFeedback(r.Context(), db.Feedback{
		UserHash: hashUserID(userID),
		Rating:   req.Rating,
		Comment:  truncate(req.Comment, 500),
		Metadata: meta,
	})
	if err != nil {
		p.logger.ErrorContext(r.Context(), "storing feedback", "error", err)
		errorResponse(w, http.StatusInternalServerError, "Failed")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleLog stores a client error report. Authentication is optional.
func (p *Proxy) handleLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Event) == "" {
		errorResponse(w, http.StatusBadRequest, "Missing event")
		return
	}
	level := req.Level
	switch level {
	case "error", "warn", "info":
	default:
		level = "error"
	}

	err := p.db.InsertClientLog(r.Context(), db.ClientLog{
		UserHash:   hashUserID(p.optionalUser(r)),
		Level:      level,
		Event:      truncate(req.Event, 100),
		Message:    sanitizeMessage(req.Message),
		Metadata:   sanitizeMetadata(req.Metadata),
		AppVersion: truncate(req.AppVersion, 20),
	})
	if err != nil {
		p.logger.ErrorContext(r.Context(), "storing client log", "error", err)
		errorResponse(w, http.StatusInternalServerError, "Failed")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func (p *Proxy) optionalUser(r *http.Request) uuid.UUID {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return uuid.Nil
	}
	claims, err := p.jwt.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		return uuid.Nil
	}
	return claims.UserID
}

// hashUserID pseudonymizes a user for telemetry tables.
func hashUserID(id uuid.UUID) string {
	if id == uuid.Nil {
		return "anon"
	}
	sum := sha256.Sum256([]byte(id.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// sanitizeMessage caps a message and masks anything that looks like PII or a credential.
func sanitizeMessage(msg string) string {
	msg = truncate(msg, 300)
	for _, r := range redactions {
		msg = r.re.ReplaceAllString(msg, r.with)
	}
	return msg
}

// sanitizeMetadata keeps allow-listed keys with primitive values.
func sanitizeMetadata(meta map[string]any) map[string]any {
	clean := make(map[string]any)
	for _, key := range logMetadataKeys {
		switch v := meta[key].(type) {
		case string:
			clean[key] = truncate(v, 100)
		case float64, bool:
			clean[key] = v
		}
	}
	return clean
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
