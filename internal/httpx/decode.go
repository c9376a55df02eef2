package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// MaxRequestBodySize is the maximum allowed request body size (1MB).
const MaxRequestBodySize = 1 << 20

// DecodeError explains why a request body was rejected. Field is set when
// the problem is tied to one key.
type DecodeError struct {
	Status int
	Field  string
	Msg    string
}

func (e *DecodeError) Error() string { return e.Msg }

func badBody(field, format string, args ...any) *DecodeError {
	return &DecodeError{Status: http.StatusBadRequest, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// DecodeJSON decodes a single JSON object from the request body. Unknown
// keys are rejected. A Content-Type, when present, must be JSON.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var zero T
	defer func() {
		_ = r.Body.Close()
	}()

	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json")) {
			return zero, &DecodeError{
				Status: http.StatusUnsupportedMediaType,
				Msg:    fmt.Sprintf("unsupported content type %q", ct),
			}
		}
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var v T
	if err := decoder.Decode(&v); err != nil {
		return zero, classifyDecodeError(err)
	}

	if decoder.More() {
		return zero, badBody("", "request body contains multiple JSON objects")
	}
	if _, err := decoder.Token(); err != io.EOF {
		return zero, badBody("", "request body contains multiple JSON objects")
	}

	return v, nil
}

func classifyDecodeError(err error) *DecodeError {
	var syntaxErr *json.SyntaxError
	var unmarshalErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxErr):
		return badBody("", "malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &unmarshalErr):
		return badBody(unmarshalErr.Field, "invalid value for field %q", unmarshalErr.Field)
	case errors.As(err, &maxBytesErr):
		return &DecodeError{
			Status: http.StatusRequestEntityTooLarge,
			Msg:    fmt.Sprintf("request body too large (max %d bytes)", MaxRequestBodySize),
		}
	case errors.Is(err, io.EOF):
		return badBody("", "request body is empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return badBody("", "malformed JSON: unexpected end of input")
	}

	// encoding/json reports unknown keys only as text.
	if rest, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		field, qerr := strconv.Unquote(rest)
		if qerr != nil {
			field = rest
		}
		return badBody(field, "unknown field %q", field)
	}

	// Errors from custom UnmarshalJSON methods, such as a bad timestamp.
	return badBody("", "failed to decode JSON: %v", err)
}

// WriteDecodeError renders an error returned by DecodeJSON.
func WriteDecodeError(w http.ResponseWriter, err error) {
	var de *DecodeError
	if !errors.As(err, &de) {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	var details any
	if de.Field != "" {
		details = FieldDetail{Field: de.Field, Reason: de.Msg}
	}

	code := "invalid_request"
	switch de.Status {
	case http.StatusRequestEntityTooLarge:
		code = "payload_too_large"
	case http.StatusUnsupportedMediaType:
		code = "unsupported_media_type"
	}
	WriteError(w, de.Status, code, de.Msg, details)
}
