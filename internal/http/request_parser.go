// This file implements request decoding: path parameters, size-limited JSON
// bodies and struct validation of the request DTOs.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// HeaderHolderID identifies the browser tab that holds an edit lock.
const HeaderHolderID = "X-Holder-ID"

// requestError is a malformed request, answered with 400 before any
// service is called.
type requestError struct {
	msg     string
	field   string
	details map[string]string
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) response() *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, ErrorBody{
		Error:   e.msg,
		Code:    "bad_request",
		Field:   e.field,
		Details: e.details,
	})
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// PathID parses a positive integer path parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &requestError{msg: fmt.Sprintf("invalid %s %q", name, raw), field: name}
	}
	return id, nil
}

// decodeJSON reads a JSON body into dst and validates it. Unknown fields
// are rejected so typos in column names do not silently become no-ops.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &requestError{msg: "request body is empty"}
		}
		return &requestError{msg: "malformed JSON: " + err.Error()}
	}
	return s.validate(dst)
}

func (s *Server) validate(v any) error {
	err := s.validator.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &requestError{msg: "invalid input"}
	}
	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		details[fe.Field()] = fe.Tag()
	}
	return &requestError{msg: "validation failed", details: details}
}

// holderID returns the lock holder named by the client.
func holderID(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get(HeaderHolderID))
	if h == "" || len(h) > 64 {
		return "", &requestError{msg: "missing or invalid " + HeaderHolderID + " header", field: "holder"}
	}
	return h, nil
}
