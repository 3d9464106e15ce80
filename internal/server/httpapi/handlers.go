package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type updateRequest struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Password string   `json:"password,omitempty"`
}

type createResponse struct {
	ID string `json:"id"`
}

// maxBodyBytes bounds request bodies; payloads here are tiny.
const maxBodyBytes = 1 << 16

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.Validationf("malformed request body: %v", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	st, err := s.accounts.Status(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "health check failed", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	acc, err := s.creds.Authenticate(r.Context(), req.Username, req.Password)
	s.metrics.RecordAuth(err == nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.accounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.accounts.Create(r.Context(), req.Username, req.Password, req.Roles)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.RecordMutation("create")
	w.Header().Set("Location", fmt.Sprintf("/accounts/%s", id))
	writeJSON(w, http.StatusCreated, createResponse{ID: id.String()})
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.accounts.Update(r.Context(), chi.URLParam(r, "id"), req.Username, req.Roles, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.RecordMutation("update")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) softDeleteAccount(w http.ResponseWriter, r *http.Request) {
	s.setDeleted(w, r, true)
}

func (s *Server) restoreAccount(w http.ResponseWriter, r *http.Request) {
	s.setDeleted(w, r, false)
}

func (s *Server) setDeleted(w http.ResponseWriter, r *http.Request, deleted bool) {
	if err := s.accounts.SetDeleted(r.Context(), chi.URLParam(r, "id"), deleted); err != nil {
		s.writeError(w, r, err)
		return
	}

	if deleted {
		s.metrics.RecordMutation("delete")
	} else {
		s.metrics.RecordMutation("restore")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) purgeAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Purge(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.RecordMutation("purge")
	w.WriteHeader(http.StatusNoContent)
}
