package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Request is a GraphQL request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL response body.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []Error         `json:"errors,omitempty"`
}

// Error is one entry of a GraphQL errors array.
type Error struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Doer sends one GraphQL request and decodes its data into dst. Cookies
// are read from and written to jar, which may be nil.
type Doer interface {
	Do(ctx context.Context, jar http.CookieJar, req Request, dst any) error
}

// ResponseError reports a response whose errors array is not empty.
type ResponseError struct {
	Errors []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return strings.Join(msgs, "; ")
}

// Message returns the first error message, the one shown to users.
func (e *ResponseError) Message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}

// decode unpacks a GraphQL response into dst.
func decode(resp *Response, dst any) error {
	if len(resp.Errors) > 0 {
		return &ResponseError{Errors: resp.Errors}
	}
	if dst == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	return json.Unmarshal(resp.Data, dst)
}
