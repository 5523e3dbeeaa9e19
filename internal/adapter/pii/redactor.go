package pii

import (
	"encoding/json"
	"log/slog"
	"strings"
)

const RedactedPlaceholder = "[REDACTED]"

// DefaultFields are always masked, whatever the configuration adds.
var DefaultFields = []string{"password", "access_token", "refresh_token", "apikey", "authorization"}

// Redactor masks sensitive fields in JSON payloads before they are logged.
type Redactor struct {
	fieldsToRedact map[string]struct{} // Use a map for O(1) lookups
	logger         *slog.Logger
}

// NewRedactor creates a new Redactor masking DefaultFields plus fields.
// Field names are matched case-insensitively.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields)+len(DefaultFields))
	for _, field := range append(DefaultFields, fields...) {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// RedactJSON returns a copy of data with every sensitive field, at any depth,
// replaced by RedactedPlaceholder. Input that is not JSON is returned as a
// placeholder rather than risk leaking it. A nil Redactor returns data unchanged.
func (r *Redactor) RedactJSON(data []byte) []byte {
	if r == nil || len(data) == 0 {
		return data
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		r.logger.Debug("payload is not JSON, masking it whole", "error", err)
		return []byte(RedactedPlaceholder)
	}

	if !r.redactValue(doc) {
		return data
	}

	out, err := json.Marshal(doc)
	if err != nil {
		r.logger.Error("failed to marshal payload after PII redaction", "error", err)
		return []byte(RedactedPlaceholder)
	}
	return out
}

// redactValue masks sensitive keys in place and reports whether anything changed.
func (r *Redactor) redactValue(v interface{}) bool {
	redacted := false
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if _, ok := r.fieldsToRedact[strings.ToLower(k)]; ok {
				t[k] = RedactedPlaceholder
				redacted = true
				continue
			}
			if r.redactValue(child) {
				redacted = true
			}
		}
	case []interface{}:
		for _, child := range t {
			if r.redactValue(child) {
				redacted = true
			}
		}
	}
	return redacted
}
