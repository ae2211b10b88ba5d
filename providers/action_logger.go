package providers

import (
	"context"
	"encoding/json"
	"regexp"

	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sensitiveKey matches JSON keys whose values must never reach the audit
// trail.
var sensitiveKey = regexp.MustCompile(`(?i)(password|token|secret|authorization|api_key)`)

// ActionEntry describes one carrier interaction to record.
type ActionEntry struct {
	Provider   string
	Action     string
	OrderID    *uuid.UUID
	Request    []byte
	Response   []byte
	HTTPStatus int
	Attempt    int
	Err        error
}

// ActionLogger appends sanitized audit rows for every outbound carrier call
// and inbound carrier webhook. It never returns an error: a logging failure
// must not change the caller's business outcome.
type ActionLogger struct {
	repo   repository.ShippingActionLogRepository
	logger *zap.Logger
}

func NewActionLogger(repo repository.ShippingActionLogRepository, logger *zap.Logger) *ActionLogger {
	return &ActionLogger{repo: repo, logger: logger}
}

// Record persists the entry with request/response bodies sanitized.
func (l *ActionLogger) Record(ctx context.Context, entry ActionEntry) {
	row := &models.ShippingActionLog{
		Provider:   entry.Provider,
		Action:     entry.Action,
		OrderID:    entry.OrderID,
		Request:    Sanitize(entry.Request),
		Response:   Sanitize(entry.Response),
		HTTPStatus: entry.HTTPStatus,
		Attempt:    entry.Attempt,
	}
	if row.Attempt == 0 {
		row.Attempt = 1
	}
	if entry.Err != nil {
		row.Error = entry.Err.Error()
	}

	if err := l.repo.Append(ctx, row); err != nil {
		l.logger.Error("Failed to append shipping action log",
			zap.String("provider", entry.Provider),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

// Sanitize redacts sensitive keys from a JSON body, recursively. Non-JSON
// input is passed through unchanged; empty input becomes "{}" so the jsonb
// column always holds valid JSON.
func Sanitize(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	cleaned := redact(v)
	out, err := json.Marshal(cleaned)
	if err != nil {
		return "{}"
	}
	return string(out)
}

func redact(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if sensitiveKey.MatchString(k) {
				continue
			}
			out[k] = redact(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = redact(inner)
		}
		return out
	default:
		return v
	}
}
