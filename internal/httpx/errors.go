package httpx

import (
	"net/http"

	"github.com/sundayezeilo/linkgate/internal/errx"
)

type kindProblem struct {
	status int
	code   string
}

// Permission renders exactly like NotFound: callers must not learn that a
// link exists under someone else's account.
var kindProblems = map[errx.Kind]kindProblem{
	errx.NotFound:        {http.StatusNotFound, "not_found"},
	errx.Permission:      {http.StatusNotFound, "not_found"},
	errx.Conflict:        {http.StatusConflict, "conflict"},
	errx.Invalid:         {http.StatusBadRequest, "invalid_input"},
	errx.Unauthorized:    {http.StatusUnauthorized, "unauthorized"},
	errx.Forbidden:       {http.StatusForbidden, "forbidden"},
	errx.TooManyRequests: {http.StatusTooManyRequests, "rate_limited"},
	errx.Unavailable:     {http.StatusServiceUnavailable, "unavailable"},
	errx.Internal:        {http.StatusInternalServerError, "internal_error"},
}

var fallbackProblem = kindProblem{http.StatusInternalServerError, "internal_error"}

func problemFor(kind errx.Kind) kindProblem {
	if p, ok := kindProblems[kind]; ok {
		return p
	}
	return fallbackProblem
}

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
func ErrorKindToStatus(kind errx.Kind) int {
	return problemFor(kind).status
}

// ErrorKindToCode maps errx.Kind to error codes for JSON responses.
func ErrorKindToCode(kind errx.Kind) string {
	return problemFor(kind).code
}

// FieldDetail is the details payload of a validation error.
type FieldDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// WriteKindError writes the status and code registered for kind.
func WriteKindError(w http.ResponseWriter, kind errx.Kind, message string, details any) {
	p := problemFor(kind)
	WriteError(w, p.status, p.code, message, details)
}
