package apisports

import (
	"bytes"
	"encoding/json"

	"github.com/fortuna/nbaduck/internal/record"
)

const rateLimitKey = "rateLimit"

// envelope is the wrapper every api-sports endpoint responds with.
type envelope struct {
	Get      string          `json:"get"`
	Results  int             `json:"results"`
	Errors   json.RawMessage `json:"errors"`
	Response json.RawMessage `json:"response"`
}

// rateLimited reports whether errors is an object holding the rate limit key.
func (e *envelope) rateLimited() bool {
	v, err := record.Decode(e.Errors)
	if err != nil {
		return false
	}
	obj, ok := v.(record.Record)
	return ok && obj.Has(rateLimitKey)
}

// errorDetail returns the errors value as text, or "" when it is empty.
func (e *envelope) errorDetail() string {
	raw := bytes.TrimSpace(e.Errors)
	switch string(raw) {
	case "", "null", "[]", "{}":
		return ""
	}
	return string(raw)
}

func (e *envelope) hasResponse() bool {
	raw := bytes.TrimSpace(e.Response)
	return len(raw) > 0 && string(raw) != "null"
}
