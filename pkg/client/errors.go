package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Kind classifies a failed operation.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
)

var (
	// ErrNetwork matches transport failures (no response received).
	ErrNetwork = errors.New("client: network error")
	// ErrServer matches non-2xx responses without more specific handling and
	// responses that could not be decoded.
	ErrServer = errors.New("client: server error")
	// ErrValidation matches rejected payloads (400, 409, 422) and local
	// required-field failures.
	ErrValidation = errors.New("client: validation error")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("client: not found")

	// ErrMissingResponseID is the cause of a ServerError for a create or
	// update response that carries no identifier.
	ErrMissingResponseID = errors.New("response carries no identifier")
)

// Error is returned by every Client operation.
type Error struct {
	Kind     Kind
	Op       string
	Resource string
	ID       string
	Status   int
	// Messages are the sanitised messages the server sent, if any.
	Messages []string
	// Fields holds per-field messages when the server keyed them.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("client: ")
	b.WriteString(e.Op)
	if e.Resource != "" {
		b.WriteString(" ")
		b.WriteString(e.Resource)
		if e.ID != "" {
			b.WriteString("/")
			b.WriteString(e.ID)
		}
	}
	b.WriteString(": ")
	switch {
	case len(e.Messages) > 0:
		b.WriteString(strings.Join(e.Messages, "; "))
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case e.Status > 0:
		b.WriteString(http.StatusText(e.Status))
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServer:
		return e.Kind == KindServer
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	default:
		return false
	}
}

// StatusCode returns the HTTP status the server answered with, or 0.
func (e *Error) StatusCode() int { return e.Status }

// Detail returns the server-provided text, falling back to the cause.
func (e *Error) Detail() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, "; ")
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// KindOf reports the kind of err, or "" when err is not a client error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// NewValidationError builds a validation failure detected before any request
// is sent.
func NewValidationError(op, resource string, fields map[string][]string) *Error {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var messages []string
	for _, key := range keys {
		for _, msg := range fields[key] {
			messages = append(messages, key+": "+msg)
		}
	}
	return &Error{
		Kind:     KindValidation,
		Op:       op,
		Resource: resource,
		Messages: normalizeMessages(messages),
		Fields:   fields,
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindServer
	}
}

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// sanitize strips markup from server text. Entities are decoded again since
// the output is a terminal, not a page.
func sanitize(text string) string {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strings.Join(strings.Fields(html.UnescapeString(strictPolicy.Sanitize(text))), " ")
}

// parseErrorBody understands {"errors": [..]}, {"errors": {field: [..]}},
// {"message": ".."} and {"error": ".."} bodies, and falls back to the
// sanitised body text.
func parseErrorBody(body []byte) ([]string, map[string][]string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		if text := sanitize(trimmed); text != "" {
			return []string{truncate(text, 200)}, nil
		}
		return nil, nil
	}

	var (
		messages []string
		fields   map[string][]string
	)
	switch errs := payload["errors"].(type) {
	case []any:
		for _, item := range errs {
			messages = append(messages, messageFrom(item))
		}
	case map[string]any:
		fields = make(map[string][]string, len(errs))
		keys := make([]string, 0, len(errs))
		for key := range errs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			var list []string
			switch v := errs[key].(type) {
			case []any:
				for _, item := range v {
					list = append(list, messageFrom(item))
				}
			default:
				list = append(list, messageFrom(v))
			}
			list = normalizeMessages(list)
			if len(list) == 0 {
				continue
			}
			fields[key] = list
			for _, msg := range list {
				messages = append(messages, key+": "+msg)
			}
		}
		if len(fields) == 0 {
			fields = nil
		}
	case string:
		messages = append(messages, errs)
	}
	for _, key := range []string{"message", "error"} {
		if msg, ok := payload[key].(string); ok {
			messages = append(messages, msg)
		}
	}

	for i, msg := range messages {
		messages[i] = sanitize(msg)
	}
	return normalizeMessages(messages), fields
}

func messageFrom(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"message", "description", "error", "detail"} {
			if msg, ok := v[key].(string); ok {
				if field, ok := v["field"].(string); ok && field != "" {
					return field + ": " + msg
				}
				return msg
			}
		}
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Sprint(item)
	}
	return string(raw)
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
