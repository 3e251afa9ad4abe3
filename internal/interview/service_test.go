package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/memstore"
	"github.com/jonathan/interview-coach/internal/transcript"
	"github.com/jonathan/interview-coach/internal/types"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []llm.Request
	err      error
	reply    func(req llm.Request, n int) string
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != nil {
		return f.reply(req, len(f.requests)), nil
	}
	return fmt.Sprintf("generated %d", len(f.requests)), nil
}

func (f *fakeGenerator) Close() error { return nil }

func (f *fakeGenerator) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeSpeech struct {
	renderErr  error
	transcript string
}

func (f *fakeSpeech) Render(_ context.Context, text string) (*types.Audio, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return &types.Audio{Data: []byte("wav:" + text), Format: "wav"}, nil
}

func (f *fakeSpeech) Transcribe(context.Context, []byte, string) (string, error) {
	return f.transcript, nil
}

type fixture struct {
	store  *memstore.Store
	gen    *fakeGenerator
	speech *fakeSpeech
	svc    *Service
	user   *types.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	gen := &fakeGenerator{}
	sp := &fakeSpeech{}
	user, err := store.CreateUser(context.Background(), types.CreateUserRequest{Name: "Ada Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)
	return &fixture{store: store, gen: gen, speech: sp, svc: NewService(store, gen, sp, nil, 0), user: user}
}

func (f *fixture) create(t *testing.T) *types.Interview {
	t.Helper()
	in, err := f.svc.Create(context.Background(), types.SessionConfig{
		UserID:        f.user.ID.String(),
		Domain:        "Backend Engineering",
		Experience:    "3 years",
		InterviewType: "Technical",
		Mode:          "Voice",
		Difficulty:    "Medium",
	})
	require.NoError(t, err)
	return in
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)

	assert.Equal(t, f.user.ID, in.UserID)
	assert.Equal(t, types.ModeVoice, in.Mode)
	assert.Equal(t, types.CompletionPending, in.Completion)
	assert.Zero(t, in.ElapsedSeconds)
}

func TestCreate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := types.SessionConfig{
		UserID: f.user.ID.String(), Domain: "Data", Experience: "junior",
		InterviewType: "Behavioral", Mode: "text", Difficulty: "Easy",
	}

	tests := []struct {
		name   string
		mutate func(c *types.SessionConfig)
		kind   apperr.Kind
	}{
		{"missing domain", func(c *types.SessionConfig) { c.Domain = " " }, apperr.KindValidation},
		{"short domain", func(c *types.SessionConfig) { c.Domain = "D" }, apperr.KindValidation},
		{"bad mode", func(c *types.SessionConfig) { c.Mode = "video" }, apperr.KindValidation},
		{"bad user id", func(c *types.SessionConfig) { c.UserID = "nope" }, apperr.KindValidation},
		{"unknown user", func(c *types.SessionConfig) { c.UserID = uuid.NewString() }, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := f.svc.Create(ctx, cfg)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestGetAndMode(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	got, err := f.svc.Get(ctx, in.ID.String())
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)

	mode, err := f.svc.Mode(ctx, in.ID.String())
	require.NoError(t, err)
	assert.Equal(t, types.ModeVoice, mode)

	_, err = f.svc.Get(ctx, uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Mode(ctx, "bogus")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestEmitGreeting(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	turn, err := f.svc.EmitGreeting(ctx, in.ID.String(), "")
	require.NoError(t, err)
	assert.True(t, turn.IsFirstMessage)
	assert.Equal(t, types.SenderAI, turn.Sender)
	require.NotNil(t, turn.Audio)
	assert.Equal(t, "wav", turn.Audio.Format)

	req := f.gen.last()
	assert.Equal(t, llm.TierLite, req.Tier)
	assert.Contains(t, req.Messages[1].Text, "Ada Lovelace")
	assert.Contains(t, req.Messages[1].Text, "Backend Engineering")

	// Regenerating before any answer replaces the greeting in place.
	again, err := f.svc.EmitGreeting(ctx, in.ID.String(), "Ada")
	require.NoError(t, err)
	assert.Equal(t, turn.ID, again.ID)
	assert.NotEqual(t, turn.Text, again.Text)

	conv, err := f.svc.Conversation(ctx, in.ID.String())
	require.NoError(t, err)
	require.Len(t, conv.Turns, 1)
	assert.Equal(t, again.Text, conv.Turns[0].Text)
	assert.Equal(t, types.StateActive, conv.State)
}

func TestEmitGreeting_AfterAnswerConflicts(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	_, err := f.svc.EmitGreeting(ctx, in.ID.String(), "Ada")
	require.NoError(t, err)
	_, err = f.svc.RecordTurn(ctx, in.ID.String(), types.SenderUser, "Hello!")
	require.NoError(t, err)

	calls := len(f.gen.requests)
	_, err = f.svc.EmitGreeting(ctx, in.ID.String(), "Ada")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Len(t, f.gen.requests, calls, "no generator call once rejected")
}

func TestEmitGreeting_AfterOtherTurnsWithoutGreetingConflicts(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	_, err := f.svc.RecordTurn(ctx, in.ID.String(), types.SenderAI, "Tell me about yourself.")
	require.NoError(t, err)

	_, err = f.svc.EmitGreeting(ctx, in.ID.String(), "Ada")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestEmitGreeting_UpstreamFailuresPersistNothing(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	f.gen.err = errors.New("quota exceeded")
	_, err := f.svc.EmitGreeting(ctx, in.ID.String(), "Ada")
	assert.True(t, apperr.Is(err, apperr.KindUpstreamGeneration))

	f.gen.err = nil
	f.speech.renderErr = errors.New("tts down")
	_, err = f.svc.EmitGreeting(ctx, in.ID.String(), "Ada")
	assert.True(t, apperr.Is(err, apperr.KindUpstreamGeneration))

	turns, err := f.store.ListTurns(ctx, in.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestEmitGreeting_EmptyGenerationIsUpstream(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	f.gen.reply = func(llm.Request, int) string { return "   " }

	_, err := f.svc.EmitGreeting(context.Background(), in.ID.String(), "Ada")
	assert.True(t, apperr.Is(err, apperr.KindUpstreamGeneration))
}

func TestRecordTurn_Validation(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	_, err := f.svc.RecordTurn(ctx, in.ID.String(), "", "hi")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.RecordTurn(ctx, in.ID.String(), "bot", "hi")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.RecordTurn(ctx, in.ID.String(), types.SenderUser, "  ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.RecordTurn(ctx, uuid.NewString(), types.SenderUser, "hi")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRecordVoiceTurn(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()
	f.speech.transcript = "I built a queue in Go."

	turn, err := f.svc.RecordVoiceTurn(ctx, in.ID.String(), types.SenderUser, []byte("RIFF"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "I built a queue in Go.", turn.Text)
	assert.Equal(t, types.SenderUser, turn.Sender)

	_, err = f.svc.RecordVoiceTurn(ctx, in.ID.String(), types.SenderUser, nil, "audio/wav")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	f.speech.transcript = ""
	_, err = f.svc.RecordVoiceTurn(ctx, in.ID.String(), types.SenderUser, []byte("RIFF"), "audio/wav")
	assert.True(t, apperr.Is(err, apperr.KindUpstreamGeneration))
}

func TestNextExchange_TurnIndexBounds(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)

	for _, idx := range []int{-1, 11} {
		_, err := f.svc.NextExchange(context.Background(), in.ID.String(), idx)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "turn_index %d", idx)
	}
	assert.Empty(t, f.gen.requests)
}

func TestNextExchange_QuestionUsesPreviousQuestions(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	_, err := f.svc.EmitGreeting(ctx, in.ID.String(), "Ada")
	require.NoError(t, err)
	_, err = f.svc.RecordTurn(ctx, in.ID.String(), types.SenderAI, "What is a goroutine?")
	require.NoError(t, err)

	ex, err := f.svc.NextExchange(ctx, in.ID.String(), 1)
	require.NoError(t, err)
	assert.False(t, ex.Finished)
	assert.Equal(t, ex.Text, ex.Turn.Text)
	assert.Equal(t, types.SenderAI, ex.Turn.Sender)

	req := f.gen.last()
	assert.Equal(t, llm.TierStandard, req.Tier)
	assert.Contains(t, req.Messages[0].Text, "What is a goroutine?")

	got, err := f.svc.Get(ctx, in.ID.String())
	require.NoError(t, err)
	assert.Equal(t, types.CompletionPending, got.Completion)
}

func TestNextExchange_LeaseHeldConflicts(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	ok, err := f.store.AcquireLease(ctx, in.ID, LeaseScopeExchange, "someone-else", f.svc.leaseTTL)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.NextExchange(ctx, in.ID.String(), 0)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	require.NoError(t, f.store.ReleaseLease(ctx, in.ID, LeaseScopeExchange, "someone-else"))
	_, err = f.svc.NextExchange(ctx, in.ID.String(), 0)
	assert.NoError(t, err)
}

func TestNextExchange_FailureReleasesLease(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	f.speech.renderErr = errors.New("tts down")
	_, err := f.svc.NextExchange(ctx, in.ID.String(), 0)
	assert.True(t, apperr.Is(err, apperr.KindUpstreamGeneration))

	turns, err := f.store.ListTurns(ctx, in.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	f.speech.renderErr = nil
	_, err = f.svc.NextExchange(ctx, in.ID.String(), 0)
	assert.NoError(t, err)
}

func TestFullInterview(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()
	id := in.ID.String()

	f.gen.reply = func(req llm.Request, n int) string {
		if req.Tier == llm.TierLite && strings.Contains(req.Messages[0].Text, "closing") {
			return "Thank you for your time."
		}
		return fmt.Sprintf("Question %d?", n)
	}

	_, err := f.svc.EmitGreeting(ctx, id, "")
	require.NoError(t, err)
	_, err = f.svc.RecordTurn(ctx, id, types.SenderUser, "Hi, ready.")
	require.NoError(t, err)

	for i := 0; i < QuestionBudget; i++ {
		ex, err := f.svc.NextExchange(ctx, id, i)
		require.NoError(t, err)
		require.False(t, ex.Finished)
		_, err = f.svc.RecordTurn(ctx, id, types.SenderUser, fmt.Sprintf("Answer %d", i+1))
		require.NoError(t, err)
	}

	closing, err := f.svc.NextExchange(ctx, id, QuestionBudget)
	require.NoError(t, err)
	assert.True(t, closing.Finished)
	assert.Equal(t, "Thank you for your time.", closing.Text)
	assert.Equal(t, llm.TierLite, f.gen.last().Tier)

	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.CompletionCompleted, got.Completion)

	_, err = f.svc.NextExchange(ctx, id, QuestionBudget)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	conv, err := f.svc.Conversation(ctx, id)
	require.NoError(t, err)
	assert.Len(t, conv.Turns, 1+1+2*QuestionBudget+1)
	assert.Equal(t, types.StateCompleted, State(got, conv.Turns))

	pairs := transcript.Extract(conv.Turns)
	require.Len(t, pairs, QuestionBudget)
	assert.Equal(t, "Answer 1", pairs[0].Answer)
	assert.Equal(t, "Answer 10", pairs[9].Answer)
}

func TestLogTimer(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()
	id := in.ID.String()

	incomplete := types.CompletionIncomplete
	completed := types.CompletionCompleted
	pending := types.CompletionPending

	got, err := f.svc.LogTimer(ctx, id, 95, nil)
	require.NoError(t, err)
	assert.Equal(t, 95, got.ElapsedSeconds)
	assert.Equal(t, types.CompletionPending, got.Completion)

	got, err = f.svc.LogTimer(ctx, id, 120, &incomplete)
	require.NoError(t, err)
	assert.Equal(t, types.CompletionIncomplete, got.Completion)

	// The counter is overwritten, not accumulated, and may go down.
	got, err = f.svc.LogTimer(ctx, id, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, got.ElapsedSeconds)

	_, err = f.svc.LogTimer(ctx, id, 30, &pending)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	got, err = f.svc.LogTimer(ctx, id, 200, &completed)
	require.NoError(t, err)
	assert.Equal(t, types.CompletionCompleted, got.Completion)

	_, err = f.svc.LogTimer(ctx, id, 200, &incomplete)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.LogTimer(ctx, id, -1, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	bogus := types.Completion("paused")
	_, err = f.svc.LogTimer(ctx, id, 10, &bogus)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestState(t *testing.T) {
	in := &types.Interview{Completion: types.CompletionPending}
	assert.Equal(t, types.StatePending, State(in, nil))
	assert.Equal(t, types.StateActive, State(in, []types.Turn{{Sender: types.SenderAI}}))

	in.Completion = types.CompletionIncomplete
	assert.Equal(t, types.StateIncomplete, State(in, nil))

	in.Completion = types.CompletionCompleted
	assert.Equal(t, types.StateCompleted, State(in, nil))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	in := f.create(t)
	ctx := context.Background()

	_, err := f.svc.RecordTurn(ctx, in.ID.String(), types.SenderAI, "Welcome")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, in.ID.String()))

	_, err = f.svc.Get(ctx, in.ID.String())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	turns, err := f.store.ListTurns(ctx, in.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	err = f.svc.Delete(ctx, in.ID.String())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
