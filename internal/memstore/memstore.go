// Package memstore is an in-memory Artifact Store with the same semantics as
// the PostgreSQL store. It backs tests and `serve --store memory`.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/types"
)

type lease struct {
	holder    string
	expiresAt time.Time
}

type leaseKey struct {
	interviewID uuid.UUID
	scope       string
}

// Store is an in-memory implementation of the interview store.
type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	last       time.Time
	users      map[uuid.UUID]types.User
	interviews map[uuid.UUID]types.Interview
	turns      map[uuid.UUID][]types.Turn
	reports    map[uuid.UUID][]types.StoredReport
	breakdowns map[uuid.UUID][]types.StoredBreakdown
	leases     map[leaseKey]lease
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		users:      make(map[uuid.UUID]types.User),
		interviews: make(map[uuid.UUID]types.Interview),
		turns:      make(map[uuid.UUID][]types.Turn),
		reports:    make(map[uuid.UUID][]types.StoredReport),
		breakdowns: make(map[uuid.UUID][]types.StoredBreakdown),
		leases:     make(map[leaseKey]lease),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close is a no-op; it mirrors the PostgreSQL store's teardown hook.
func (s *Store) Close() {}

// tick returns a strictly increasing timestamp. Callers hold s.mu.
func (s *Store) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(_ context.Context, req types.CreateUserRequest) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(req.Email, uuid.Nil) {
		return nil, types.ErrDuplicateEmail
	}
	now := s.tick()
	u := types.User{ID: uuid.New(), Name: req.Name, Email: req.Email, Bio: req.Bio, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	return &u, nil
}

func (s *Store) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

// GetUser retrieves a user by ID. Returns nil, nil when the user does not exist.
func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// UpdateUser applies the non-nil profile fields.
func (s *Store) UpdateUser(_ context.Context, id uuid.UUID, req types.UpdateProfileRequest) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if req.Email != nil && s.emailTaken(*req.Email, id) {
		return nil, types.ErrDuplicateEmail
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	u.UpdatedAt = s.tick()
	s.users[id] = u
	return &u, nil
}

// DeleteUser deletes a user and everything scoped to its interviews.
func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for iid, in := range s.interviews {
		if in.UserID == id {
			s.deleteInterviewLocked(iid)
		}
	}
	_, ok := s.users[id]
	delete(s.users, id)
	return ok, nil
}

// CreateInterview inserts a pending interview.
func (s *Store) CreateInterview(_ context.Context, in types.Interview) (*types.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	in.ID = uuid.New()
	in.Completion = types.CompletionPending
	in.ElapsedSeconds = 0
	in.CreatedAt = now
	in.UpdatedAt = now
	s.interviews[in.ID] = in
	return &in, nil
}

// GetInterview retrieves an interview by ID. Returns nil, nil when it does not exist.
func (s *Store) GetInterview(_ context.Context, id uuid.UUID) (*types.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.interviews[id]
	if !ok {
		return nil, nil
	}
	return &in, nil
}

// ListInterviewsByUser returns a user's interviews, newest first.
func (s *Store) ListInterviewsByUser(_ context.Context, userID uuid.UUID) ([]types.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interviewsOfLocked(userID), nil
}

func (s *Store) interviewsOfLocked(userID uuid.UUID) []types.Interview {
	var out []types.Interview
	for _, in := range s.interviews {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}

// UpdateInterviewTimer overwrites the elapsed counter and optionally the completion.
func (s *Store) UpdateInterviewTimer(_ context.Context, id uuid.UUID, elapsedSeconds int, completion *types.Completion) (*types.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.interviews[id]
	if !ok {
		return nil, nil
	}
	in.ElapsedSeconds = elapsedSeconds
	if completion != nil {
		in.Completion = *completion
	}
	in.UpdatedAt = s.tick()
	s.interviews[id] = in
	return &in, nil
}

// SetInterviewCompletion sets the completion status.
func (s *Store) SetInterviewCompletion(_ context.Context, id uuid.UUID, completion types.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.interviews[id]
	if !ok {
		return nil
	}
	in.Completion = completion
	in.UpdatedAt = s.tick()
	s.interviews[id] = in
	return nil
}

// DeleteInterview deletes an interview with its turns, reports, breakdowns and leases.
func (s *Store) DeleteInterview(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.interviews[id]
	s.deleteInterviewLocked(id)
	return ok, nil
}

func (s *Store) deleteInterviewLocked(id uuid.UUID) {
	delete(s.interviews, id)
	delete(s.turns, id)
	delete(s.reports, id)
	delete(s.breakdowns, id)
	for k := range s.leases {
		if k.interviewID == id {
			delete(s.leases, k)
		}
	}
}

func copyAudio(a *types.Audio) *types.Audio {
	if a == nil || len(a.Data) == 0 {
		return nil
	}
	return &types.Audio{Data: append([]byte(nil), a.Data...), Format: a.Format}
}

// UpsertGreeting stores the single greeting turn, replacing an existing one in place.
func (s *Store) UpsertGreeting(_ context.Context, interviewID uuid.UUID, text string, audio *types.Audio) (*types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	turns := s.turns[interviewID]
	for i := range turns {
		if turns[i].IsFirstMessage {
			turns[i].Text = text
			turns[i].Audio = copyAudio(audio)
			turns[i].UpdatedAt = now
			t := turns[i]
			return &t, nil
		}
	}
	t := types.Turn{
		ID: uuid.New(), InterviewID: interviewID, Sender: types.SenderAI, Text: text,
		IsFirstMessage: true, Audio: copyAudio(audio), CreatedAt: now, UpdatedAt: now,
	}
	s.turns[interviewID] = append(turns, t)
	return &t, nil
}

// AppendTurn appends a non-greeting turn.
func (s *Store) AppendTurn(_ context.Context, interviewID uuid.UUID, sender types.Sender, text string, audio *types.Audio) (*types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	t := types.Turn{
		ID: uuid.New(), InterviewID: interviewID, Sender: sender, Text: text,
		Audio: copyAudio(audio), CreatedAt: now, UpdatedAt: now,
	}
	s.turns[interviewID] = append(s.turns[interviewID], t)
	return &t, nil
}

// ListTurns returns an interview's turns in creation order.
func (s *Store) ListTurns(_ context.Context, interviewID uuid.UUID) ([]types.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[interviewID]
	if len(turns) == 0 {
		return nil, nil
	}
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	for i := range out {
		out[i].Audio = copyAudio(out[i].Audio)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// InsertReport appends a structured report.
func (s *Store) InsertReport(_ context.Context, r types.StoredReport) (*types.StoredReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = s.tick()
	s.reports[r.InterviewID] = append(s.reports[r.InterviewID], r)
	return &r, nil
}

// LatestReport returns the newest report for an interview, or nil, nil.
func (s *Store) LatestReport(_ context.Context, interviewID uuid.UUID) (*types.StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestReport(s.reports[interviewID]), nil
}

func latestReport(reports []types.StoredReport) *types.StoredReport {
	var best *types.StoredReport
	for i := range reports {
		r := reports[i]
		if best == nil || newer(r.CreatedAt, r.ID, best.CreatedAt, best.ID) {
			best = &r
		}
	}
	return best
}

func newer(at time.Time, id uuid.UUID, thanAt time.Time, thanID uuid.UUID) bool {
	if !at.Equal(thanAt) {
		return at.After(thanAt)
	}
	return bytes.Compare(id[:], thanID[:]) > 0
}

// ListReportsByUser returns every stored report for a user, oldest first.
func (s *Store) ListReportsByUser(_ context.Context, userID uuid.UUID) ([]types.StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.StoredReport
	for _, reports := range s.reports {
		for _, r := range reports {
			if r.UserID == userID {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID)
	})
	return out, nil
}

// InsertBreakdown appends a detailed breakdown.
func (s *Store) InsertBreakdown(_ context.Context, b types.StoredBreakdown) (*types.StoredBreakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.New()
	b.CreatedAt = s.tick()
	s.breakdowns[b.InterviewID] = append(s.breakdowns[b.InterviewID], b)
	return &b, nil
}

// LatestBreakdown returns the newest breakdown for an interview, or nil, nil.
func (s *Store) LatestBreakdown(_ context.Context, interviewID uuid.UUID) (*types.StoredBreakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestBreakdown(s.breakdowns[interviewID]), nil
}

func latestBreakdown(breakdowns []types.StoredBreakdown) *types.StoredBreakdown {
	var best *types.StoredBreakdown
	for i := range breakdowns {
		b := breakdowns[i]
		if best == nil || newer(b.CreatedAt, b.ID, best.CreatedAt, best.ID) {
			best = &b
		}
	}
	return best
}

// ListBreakdownsByUser returns every stored breakdown for a user, oldest first.
func (s *Store) ListBreakdownsByUser(_ context.Context, userID uuid.UUID) ([]types.StoredBreakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.StoredBreakdown
	for _, breakdowns := range s.breakdowns {
		for _, b := range breakdowns {
			if b.UserID == userID {
				out = append(out, b)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID)
	})
	return out, nil
}

// AcquireLease takes the (interview, scope) lease if it is free, expired or
// already held by holder.
func (s *Store) AcquireLease(_ context.Context, interviewID uuid.UUID, scope, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := leaseKey{interviewID: interviewID, scope: scope}
	now := s.now()
	if cur, ok := s.leases[key]; ok && cur.holder != holder && now.Before(cur.expiresAt) {
		return false, nil
	}
	s.leases[key] = lease{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// ReleaseLease drops the lease if holder still owns it.
func (s *Store) ReleaseLease(_ context.Context, interviewID uuid.UUID, scope, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := leaseKey{interviewID: interviewID, scope: scope}
	if cur, ok := s.leases[key]; ok && cur.holder == holder {
		delete(s.leases, key)
	}
	return nil
}

// InterviewHistory returns a user's interviews, newest first, with their latest
// report and breakdown.
func (s *Store) InterviewHistory(_ context.Context, userID uuid.UUID) ([]types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	interviews := s.interviewsOfLocked(userID)
	entries := make([]types.HistoryEntry, 0, len(interviews))
	for _, in := range interviews {
		entries = append(entries, types.HistoryEntry{
			Interview: in,
			Report:    latestReport(s.reports[in.ID]),
			Breakdown: latestBreakdown(s.breakdowns[in.ID]),
		})
	}
	return entries, nil
}
