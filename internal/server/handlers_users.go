package server

import (
	"net/http"

	"github.com/jonathan/interview-coach/internal/types"
)

// ---------------------------------------------------------------------
// User Handlers
// ---------------------------------------------------------------------

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	user, err := s.svc.Accounts.Create(r.Context(), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusCreated, user)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.Accounts.Profile(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateProfileRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	user, err := s.svc.Accounts.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Accounts.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---------------------------------------------------------------------
// History Handlers
// ---------------------------------------------------------------------

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.History.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, h)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.History.Dashboard(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, d)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.History.Performance(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, p)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.svc.History.Scores(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string][]float64{"overall_scores": scores})
}
