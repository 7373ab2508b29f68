// Package http exposes the kladde services as a JSON API.
//
// This file implements the builder used by every handler to write JSON
// responses, and the mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kegelkladde/internal/core"
	applog "kegelkladde/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the response. A builder without data writes only the status.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"encoding response failed","code":"internal_error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Field   string            `json:"field,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorResponse creates an error response with the given status and body.
func ErrorResponse(statusCode int, body ErrorBody) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(body)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, ErrorBody{Error: message, Code: applog.ErrorTypeValidation})
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, ErrorBody{Error: message, Code: applog.ErrorTypeNotFound})
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, ErrorBody{Error: message, Code: applog.ErrorTypeInternal})
}

// FromError maps a service error to a response:
//
//	field locked by status     409
//	invalid status transition  409
//	concurrent write conflict  409 with Retry-After
//	other validation errors    422
//	not found                  404
//	anything else              500
func FromError(err error) *JSONResponseBuilder {
	var ve *core.ValidationError
	field := ""
	if errors.As(err, &ve) {
		field = ve.Field
	}

	switch {
	case errors.Is(err, core.ErrFieldLocked):
		return ErrorResponse(http.StatusConflict, ErrorBody{Error: err.Error(), Code: applog.ErrorTypeLocked, Field: field})
	case errors.Is(err, core.ErrInvalidTransition):
		return ErrorResponse(http.StatusConflict, ErrorBody{Error: err.Error(), Code: applog.ErrorTypeConflict})
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, ErrorBody{Error: err.Error(), Code: applog.ErrorTypeConflict}).
			Header("Retry-After", "1")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case ve != nil:
		return ErrorResponse(http.StatusUnprocessableEntity, ErrorBody{Error: err.Error(), Code: applog.ErrorTypeValidation, Field: field})
	}
	return InternalServerError("internal error")
}
