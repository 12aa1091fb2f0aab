package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Error is a logical failure reported by the server in an {"error": "..."} body.
// Status is the HTTP status it arrived with, which may be 200.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// StatusError is a non-2xx response that carried no error message.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server responded with status %d", e.Status)
	}
	return fmt.Sprintf("server responded with status %d: %s", e.Status, e.Body)
}

type errorBody struct {
	Error *string `json:"error"`
}

// logicalError returns an *Error when body is a JSON object with a string error field.
func logicalError(status int, body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var eb errorBody
	if err := json.Unmarshal(trimmed, &eb); err != nil || eb.Error == nil {
		return nil
	}
	return &Error{Status: status, Message: *eb.Error}
}
