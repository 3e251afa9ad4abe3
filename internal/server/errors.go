package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/interview-coach/internal/apperr"
)

const maxJSONBody = 1 << 20

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPStatus returns the HTTP status code for an error's kind.
func HTTPStatus(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstreamGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse writes err as {"error": kind, "message": msg}. Internal causes
// are logged, not returned.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	kind := apperr.KindOf(err)
	msg := apperr.Message(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "kind", kind, "error", err)
		if kind == apperr.KindInternal {
			msg = "internal error"
		}
	}
	s.jsonResponse(w, r, status, ErrorBody{Error: string(kind), Message: msg})
}

// decodeJSON reads a JSON body into v. An empty body is accepted when
// optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("decode_request", "", "invalid request body")
	}
	return nil
}
