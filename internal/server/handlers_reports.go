package server

import (
	"fmt"
	"net/http"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/types"
)

// ---------------------------------------------------------------------
// Report Handlers
// ---------------------------------------------------------------------

// TranscriptResponse is the extracted question/answer pairs of an interview.
type TranscriptResponse struct {
	Pairs []types.QAPair `json:"pairs"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.svc.Reports.Transcript(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, TranscriptResponse{Pairs: pairs})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.Reports.Report(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, rep)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.Reports.LatestReport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, rep)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Reports.Breakdown(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, b)
}

func (s *Server) handleLatestBreakdown(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Reports.LatestBreakdown(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, b)
}

// ---------------------------------------------------------------------
// Export Handlers
// ---------------------------------------------------------------------

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Exports.Export(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, res)
}

// handleDownload serves a locally published export named by a signed token.
// Any token problem is reported as not found.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	const op = "download"

	if s.svc.Downloads == nil {
		s.errorResponse(w, r, apperr.NotFound(op, "download", r.PathValue("token")))
		return
	}
	path, claims, err := s.svc.Downloads.Open(r.PathValue("token"))
	if err != nil {
		s.log.Warn(r.Context(), "download rejected", "error", err)
		s.errorResponse(w, r, &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: "download not found or expired"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", claims.FileName))
	http.ServeFile(w, r, path)
}
