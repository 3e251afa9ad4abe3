package server

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/types"
)

const maxVoiceUpload = 25 << 20

// ---------------------------------------------------------------------
// Interview Session Handlers
// ---------------------------------------------------------------------

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var cfg types.SessionConfig
	if err := decodeJSON(r, &cfg, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	in, err := s.svc.Interviews.Create(r.Context(), cfg)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusCreated, in)
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	in, err := s.svc.Interviews.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, in)
}

func (s *Server) handleDeleteInterview(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Interviews.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := s.svc.Interviews.Mode(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"mode": mode})
}

// GreetingRequest optionally names the candidate to greet.
type GreetingRequest struct {
	CandidateName string `json:"candidate_name"`
}

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	var req GreetingRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	turn, err := s.svc.Interviews.EmitGreeting(r.Context(), r.PathValue("id"), req.CandidateName)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, turn)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.svc.Interviews.Conversation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, conv)
}

// TurnRequest records one text turn.
type TurnRequest struct {
	Sender types.Sender `json:"sender"`
	Text   string       `json:"text"`
}

func (s *Server) handleRecordTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	turn, err := s.svc.Interviews.RecordTurn(r.Context(), r.PathValue("id"), req.Sender, req.Text)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusCreated, turn)
}

// handleRecordVoiceTurn accepts a multipart form with an "audio" file and an
// optional "sender" field (default user).
func (s *Server) handleRecordVoiceTurn(w http.ResponseWriter, r *http.Request) {
	const op = "record_voice_turn"

	r.Body = http.MaxBytesReader(w, r.Body, maxVoiceUpload)
	if err := r.ParseMultipartForm(maxVoiceUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, r, apperr.Validation(op, "audio", "file too large"))
			return
		}
		s.errorResponse(w, r, apperr.Validation(op, "", "invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.errorResponse(w, r, apperr.Validation(op, "audio", "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, r, apperr.Validation(op, "audio", "could not be read"))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil && mt != "application/octet-stream" {
		mimeType = mt
	} else {
		mimeType = http.DetectContentType(data)
	}

	sender := types.Sender(r.FormValue("sender"))
	if sender == "" {
		sender = types.SenderUser
	}

	turn, err := s.svc.Interviews.RecordVoiceTurn(r.Context(), r.PathValue("id"), sender, data, mimeType)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusCreated, map[string]any{
		"turn":       turn,
		"transcript": turn.Text,
	})
}

// ExchangeRequest asks for the next interviewer turn.
type ExchangeRequest struct {
	TurnIndex *int `json:"turn_index"`
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req ExchangeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if req.TurnIndex == nil {
		s.errorResponse(w, r, apperr.Validation("next_exchange", "turn_index", "is required"))
		return
	}

	ex, err := s.svc.Interviews.NextExchange(r.Context(), r.PathValue("id"), *req.TurnIndex)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, ex)
}

// TimerRequest stores the elapsed counter and optionally the completion status.
type TimerRequest struct {
	ElapsedSeconds *int              `json:"elapsed_seconds"`
	Completion     *types.Completion `json:"completion"`
}

func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	var req TimerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if req.ElapsedSeconds == nil {
		s.errorResponse(w, r, apperr.Validation("log_timer", "elapsed_seconds", "is required"))
		return
	}

	in, err := s.svc.Interviews.LogTimer(r.Context(), r.PathValue("id"), *req.ElapsedSeconds, req.Completion)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, in)
}
