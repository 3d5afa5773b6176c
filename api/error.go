package api

import (
	"encoding/json"
	"fmt"
)

// Error is a structured rejection from the server, delivered either as a
// non-2xx response body or over the event channel's error event. It is
// surfaced verbatim and never retried automatically.
type Error struct {
	Detail string `json:"detail"`
	Code   int    `json:"code"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (code %d)", e.Detail, e.Code)
}

// ParseError decodes an error payload. A missing code defaults to 400; a
// body that is not an error payload at all becomes a code-400 error carrying
// the raw body as its detail.
func ParseError(body []byte) *Error {
	apiErr := &Error{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Detail == "" {
		return &Error{Detail: string(body), Code: 400}
	}
	if apiErr.Code == 0 {
		apiErr.Code = 400
	}
	return apiErr
}
