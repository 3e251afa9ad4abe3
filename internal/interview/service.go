// Package interview implements the interview session lifecycle: creation,
// greeting, turn recording, question exchange and completion.
package interview

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/speech"
	"github.com/jonathan/interview-coach/internal/transcript"
	"github.com/jonathan/interview-coach/internal/types"
)

// QuestionBudget is the turn index at which an exchange closes the interview.
const QuestionBudget = 10

// LeaseScopeExchange serializes next_exchange calls per interview.
const LeaseScopeExchange = "exchange"

// Store is the persistence the session needs.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*types.User, error)
	CreateInterview(ctx context.Context, in types.Interview) (*types.Interview, error)
	GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error)
	UpdateInterviewTimer(ctx context.Context, id uuid.UUID, elapsedSeconds int, completion *types.Completion) (*types.Interview, error)
	SetInterviewCompletion(ctx context.Context, id uuid.UUID, completion types.Completion) error
	DeleteInterview(ctx context.Context, id uuid.UUID) (bool, error)
	UpsertGreeting(ctx context.Context, interviewID uuid.UUID, text string, audio *types.Audio) (*types.Turn, error)
	AppendTurn(ctx context.Context, interviewID uuid.UUID, sender types.Sender, text string, audio *types.Audio) (*types.Turn, error)
	ListTurns(ctx context.Context, interviewID uuid.UUID) ([]types.Turn, error)
	AcquireLease(ctx context.Context, interviewID uuid.UUID, scope, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, interviewID uuid.UUID, scope, holder string) error
}

// Service runs interview sessions.
type Service struct {
	store    Store
	gen      llm.Client
	speech   speech.Service
	log      logging.Logger
	leaseTTL time.Duration
}

// NewService wires a session service.
func NewService(store Store, gen llm.Client, sp speech.Service, log logging.Logger, leaseTTL time.Duration) *Service {
	if sp == nil {
		sp = speech.Disabled{}
	}
	if log == nil {
		log = logging.Nop()
	}
	if leaseTTL <= 0 {
		leaseTTL = 2 * time.Minute
	}
	return &Service{store: store, gen: gen, speech: sp, log: log.With("component", "interview"), leaseTTL: leaseTTL}
}

// Exchange is the result of NextExchange.
type Exchange struct {
	Text     string      `json:"text"`
	Turn     *types.Turn `json:"interview_conversation"`
	Finished bool        `json:"interview_finished"`
}

// Conversation is an interview's ordered turns with its elapsed counter and
// derived lifecycle state.
type Conversation struct {
	Turns          []types.Turn `json:"interview_conversation"`
	ElapsedSeconds int          `json:"duration"`
	State          types.State  `json:"state"`
}

// Create validates cfg and persists a pending interview.
func (s *Service) Create(ctx context.Context, cfg types.SessionConfig) (*types.Interview, error) {
	const op = "create_interview"

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, types.ValidationError(op, err)
	}
	userID, err := types.ParseID(op, "user_id", cfg.UserID)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if user == nil {
		return nil, apperr.NotFound(op, "user", userID.String())
	}

	in, err := s.store.CreateInterview(ctx, types.Interview{
		UserID:        userID,
		Domain:        cfg.Domain,
		Experience:    cfg.Experience,
		InterviewType: cfg.InterviewType,
		Mode:          cfg.Mode,
		Difficulty:    cfg.Difficulty,
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	s.log.Info(ctx, "interview created", "interview_id", in.ID, "user_id", userID, "mode", in.Mode)
	return in, nil
}

// Get returns an interview by id.
func (s *Service) Get(ctx context.Context, id string) (*types.Interview, error) {
	return s.load(ctx, "get_interview", id)
}

// Mode returns the interview's mode.
func (s *Service) Mode(ctx context.Context, id string) (string, error) {
	in, err := s.load(ctx, "get_mode", id)
	if err != nil {
		return "", err
	}
	return in.Mode, nil
}

// Delete removes an interview with its turns, reports, breakdowns and leases.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "delete_interview"

	iid, err := types.ParseID(op, "interview_id", id)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteInterview(ctx, iid)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if !deleted {
		return apperr.NotFound(op, "interview", iid.String())
	}
	s.log.Info(ctx, "interview deleted", "interview_id", iid)
	return nil
}

// Conversation returns the interview's turns in creation order.
func (s *Service) Conversation(ctx context.Context, id string) (*Conversation, error) {
	const op = "get_conversation"

	in, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	turns, err := s.store.ListTurns(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if turns == nil {
		turns = []types.Turn{}
	}
	return &Conversation{Turns: turns, ElapsedSeconds: in.ElapsedSeconds, State: State(in, turns)}, nil
}

// EmitGreeting generates the opening message and upserts the greeting turn.
// An empty candidateName falls back to the owning user's name.
func (s *Service) EmitGreeting(ctx context.Context, id, candidateName string) (*types.Turn, error) {
	const op = "emit_greeting"

	in, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}

	turns, err := s.store.ListTurns(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if err := checkGreetingAllowed(op, turns); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(candidateName)
	if name == "" {
		user, err := s.store.GetUser(ctx, in.UserID)
		if err != nil {
			return nil, apperr.Internal(op, err)
		}
		if user != nil {
			name = user.Name
		}
	}

	text, err := s.generate(ctx, op, llm.TierLite, "greeting-system", "greeting-user", map[string]string{
		"CandidateName": name,
		"Domain":        in.Domain,
		"InterviewType": in.InterviewType,
	})
	if err != nil {
		return nil, err
	}
	audio, err := s.render(ctx, op, text)
	if err != nil {
		return nil, err
	}

	turn, err := s.store.UpsertGreeting(ctx, in.ID, text, audio)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	s.log.Info(ctx, "greeting stored", "interview_id", in.ID, "regenerated", hasGreeting(turns))
	return turn, nil
}

func hasGreeting(turns []types.Turn) bool {
	for _, t := range turns {
		if t.IsFirstMessage {
			return true
		}
	}
	return false
}

// checkGreetingAllowed rejects regeneration once the candidate has answered, and
// a first greeting that would not precede existing turns.
func checkGreetingAllowed(op string, turns []types.Turn) error {
	greeting := hasGreeting(turns)
	for _, t := range turns {
		if t.IsFirstMessage {
			continue
		}
		if t.Sender == types.SenderUser {
			return apperr.Conflict(op, "greeting cannot change after the candidate has answered")
		}
		if !greeting {
			return apperr.Conflict(op, "greeting must precede all other turns")
		}
	}
	return nil
}

// RecordTurn appends a non-greeting turn.
func (s *Service) RecordTurn(ctx context.Context, id string, sender types.Sender, text string) (*types.Turn, error) {
	const op = "record_turn"

	if sender == "" {
		return nil, apperr.Validation(op, "sender", "is required")
	}
	if !sender.Valid() {
		return nil, apperr.Validation(op, "sender", "must be ai or user")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation(op, "text", "is required")
	}

	in, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	turn, err := s.store.AppendTurn(ctx, in.ID, sender, text, nil)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return turn, nil
}

// RecordVoiceTurn transcribes audio and appends the transcript as a turn.
func (s *Service) RecordVoiceTurn(ctx context.Context, id string, sender types.Sender, data []byte, mimeType string) (*types.Turn, error) {
	const op = "record_voice_turn"

	if len(data) == 0 {
		return nil, apperr.Validation(op, "audio", "is required")
	}
	if _, err := s.load(ctx, op, id); err != nil {
		return nil, err
	}

	text, err := s.speech.Transcribe(ctx, data, mimeType)
	if err != nil {
		s.log.Error(ctx, "transcription failed", "interview_id", id, "error", err)
		return nil, apperr.Upstream(op, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.UpstreamEmpty(op, "transcript")
	}
	return s.RecordTurn(ctx, id, sender, text)
}

// NextExchange produces the next question, or the closing message when
// turnIndex reaches QuestionBudget, and appends it as an ai turn.
func (s *Service) NextExchange(ctx context.Context, id string, turnIndex int) (*Exchange, error) {
	const op = "next_exchange"

	if turnIndex < 0 || turnIndex > QuestionBudget {
		return nil, apperr.Validation(op, "turn_index", "must be between 0 and 10")
	}
	in, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if in.Completion == types.CompletionCompleted {
		return nil, apperr.Conflict(op, "interview is already completed")
	}

	release, err := s.acquire(ctx, op, in.ID, LeaseScopeExchange)
	if err != nil {
		return nil, err
	}
	defer release()

	finished := turnIndex == QuestionBudget

	var text string
	if finished {
		text, err = s.generate(ctx, op, llm.TierLite, "closing-system", "closing-user", nil)
	} else {
		text, err = s.nextQuestion(ctx, op, in)
	}
	if err != nil {
		return nil, err
	}

	audio, err := s.render(ctx, op, text)
	if err != nil {
		return nil, err
	}

	turn, err := s.store.AppendTurn(ctx, in.ID, types.SenderAI, text, audio)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if finished {
		if err := s.store.SetInterviewCompletion(ctx, in.ID, types.CompletionCompleted); err != nil {
			return nil, apperr.Internal(op, err)
		}
	}

	s.log.Info(ctx, "exchange produced", "interview_id", in.ID, "turn_index", turnIndex, "finished", finished)
	return &Exchange{Text: text, Turn: turn, Finished: finished}, nil
}

func (s *Service) nextQuestion(ctx context.Context, op string, in *types.Interview) (string, error) {
	turns, err := s.store.ListTurns(ctx, in.ID)
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	asked := transcript.AIQuestions(turns)

	var previous, last string
	if len(asked) > 0 {
		previous = "- " + strings.Join(asked, "\n- ")
		last = asked[len(asked)-1]
	}
	return s.generate(ctx, op, llm.TierStandard, "question-system", "question-user", map[string]string{
		"Domain":            in.Domain,
		"Experience":        in.Experience,
		"InterviewType":     in.InterviewType,
		"Difficulty":        in.Difficulty,
		"PreviousQuestions": previous,
		"LastQuestion":      last,
	})
}

// LogTimer overwrites the elapsed counter and optionally the completion
// status. It is the only way to mark an interview incomplete.
func (s *Service) LogTimer(ctx context.Context, id string, elapsedSeconds int, completion *types.Completion) (*types.Interview, error) {
	const op = "log_timer"

	if elapsedSeconds < 0 {
		return nil, apperr.Validation(op, "elapsed_seconds", "must be non-negative")
	}
	in, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if completion != nil {
		if err := checkCompletionMove(op, in.Completion, *completion); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateInterviewTimer(ctx, in.ID, elapsedSeconds, completion)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if updated == nil {
		return nil, apperr.NotFound(op, "interview", in.ID.String())
	}
	s.log.Debug(ctx, "timer logged", "interview_id", in.ID, "elapsed_seconds", elapsedSeconds, "completion", updated.Completion)
	return updated, nil
}

// checkCompletionMove allows only forward moves: pending → incomplete/completed
// and incomplete → completed. Repeating the current value is allowed.
func checkCompletionMove(op string, from, to types.Completion) error {
	if !to.Valid() {
		return apperr.Validation(op, "completion", "must be completed or incomplete")
	}
	if to == types.CompletionPending && from != types.CompletionPending {
		return apperr.Validation(op, "completion", "cannot return to pending")
	}
	if to.Rank() < from.Rank() {
		return apperr.Validation(op, "completion", "cannot move from "+string(from)+" to "+string(to))
	}
	return nil
}

// State derives the lifecycle state of an interview from its status and turns.
func State(in *types.Interview, turns []types.Turn) types.State {
	switch in.Completion {
	case types.CompletionCompleted:
		return types.StateCompleted
	case types.CompletionIncomplete:
		return types.StateIncomplete
	}
	if len(turns) == 0 {
		return types.StatePending
	}
	return types.StateActive
}

func (s *Service) load(ctx context.Context, op, id string) (*types.Interview, error) {
	iid, err := types.ParseID(op, "interview_id", id)
	if err != nil {
		return nil, err
	}
	in, err := s.store.GetInterview(ctx, iid)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if in == nil {
		return nil, apperr.NotFound(op, "interview", iid.String())
	}
	return in, nil
}

func (s *Service) acquire(ctx context.Context, op string, id uuid.UUID, scope string) (func(), error) {
	holder := uuid.NewString()
	ok, err := s.store.AcquireLease(ctx, id, scope, holder, s.leaseTTL)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if !ok {
		return nil, apperr.Conflict(op, "another "+scope+" is in progress for this interview")
	}
	return func() {
		if err := s.store.ReleaseLease(context.WithoutCancel(ctx), id, scope, holder); err != nil {
			s.log.Warn(ctx, "failed to release lease", "interview_id", id, "scope", scope, "error", err)
		}
	}, nil
}

func (s *Service) generate(ctx context.Context, op string, tier llm.ModelTier, systemKey, userKey string, data map[string]string) (string, error) {
	system, err := prompts.Render("interview.json", systemKey, data)
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	user, err := prompts.Render("interview.json", userKey, data)
	if err != nil {
		return "", apperr.Internal(op, err)
	}

	text, err := s.gen.Generate(ctx, llm.Request{
		Messages: []llm.Message{llm.System(system), llm.User(user)},
		Format:   llm.FormatText,
		Tier:     tier,
	})
	if err != nil {
		s.log.Error(ctx, "generation failed", "op", op, "error", err)
		return "", apperr.Upstream(op, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.UpstreamEmpty(op, "text")
	}
	return text, nil
}

func (s *Service) render(ctx context.Context, op, text string) (*types.Audio, error) {
	audio, err := s.speech.Render(ctx, text)
	if err != nil {
		s.log.Error(ctx, "audio rendering failed", "op", op, "error", err)
		return nil, apperr.Upstream(op, err)
	}
	return audio, nil
}
