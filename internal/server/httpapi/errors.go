package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a service error to an HTTP status. Order matters: conflict
// and active-account errors also match ErrorValidation.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorConflict), errors.Is(err, common.ErrorAccountActive):
		return http.StatusConflict
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the client. Internal details stay in
// the log.
func messageFor(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusUnauthorized:
		return "invalid credentials"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="useradmin"`)
	}
	writeJSON(w, status, errorBody{Error: messageFor(status, err)})
}
