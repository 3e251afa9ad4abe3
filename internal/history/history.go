// Package history aggregates a user's interviews and reports into the
// history view, dashboard stats, performance snapshot and score series.
package history

import (
	"context"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/types"
)

// Store is the persistence the aggregations read from.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*types.User, error)
	ListInterviewsByUser(ctx context.Context, userID uuid.UUID) ([]types.Interview, error)
	ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]types.StoredReport, error)
	InterviewHistory(ctx context.Context, userID uuid.UUID) ([]types.HistoryEntry, error)
}

// Service computes per-user views.
type Service struct {
	store Store
	log   logging.Logger
}

// NewService wires a history service.
func NewService(store Store, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{store: store, log: log.With("component", "history")}
}

// History is every interview of a user with its latest report and breakdown.
type History struct {
	User            *types.User          `json:"user"`
	TotalInterviews int                  `json:"total_interviews"`
	Interviews      []types.HistoryEntry `json:"interviews"`
}

// Dashboard is the dashboard summary of a user.
type Dashboard struct {
	TotalInterviews int                  `json:"total_interviews"`
	Interviews      []types.HistoryEntry `json:"interviews"`
}

// Performance is the best and average scores across a user's reports.
// Every field is nil when the user has no reports.
type Performance struct {
	HighestOverallScore         *float64   `json:"highest_overall_score"`
	InterviewType               *string    `json:"interview_type"`
	InterviewIDOfHighestOverall *uuid.UUID `json:"interview_id_of_highest_overall"`
	AverageOverallScore         *float64   `json:"average_overall_score"`
	HighestClarityScore         *float64   `json:"highest_clarity_score"`
}

// History returns the history view of a user.
func (s *Service) History(ctx context.Context, userID string) (*History, error) {
	const op = "get_history"

	uid, err := types.ParseID(op, "user_id", userID)
	if err != nil {
		return nil, err
	}

	var user *types.User
	var entries []types.HistoryEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.store.GetUser(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.store.InterviewHistory(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(op, err)
	}
	if user == nil {
		return nil, apperr.NotFound(op, "user", uid.String())
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	return &History{User: user, TotalInterviews: len(entries), Interviews: entries}, nil
}

// Dashboard returns the dashboard summary of a user.
func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	h, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{TotalInterviews: h.TotalInterviews, Interviews: h.Interviews}, nil
}

// Performance returns the performance snapshot of a user.
func (s *Service) Performance(ctx context.Context, userID string) (*Performance, error) {
	const op = "get_performance"

	uid, err := types.ParseID(op, "user_id", userID)
	if err != nil {
		return nil, err
	}

	var user *types.User
	var interviews []types.Interview
	var reports []types.StoredReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.store.GetUser(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		interviews, err = s.store.ListInterviewsByUser(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		reports, err = s.store.ListReportsByUser(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(op, err)
	}
	if user == nil {
		return nil, apperr.NotFound(op, "user", uid.String())
	}
	return snapshot(interviews, reports), nil
}

// snapshot keeps the first report on ties for the highest overall score.
func snapshot(interviews []types.Interview, reports []types.StoredReport) *Performance {
	p := &Performance{}
	if len(reports) == 0 {
		return p
	}

	byID := make(map[uuid.UUID]types.Interview, len(interviews))
	for _, in := range interviews {
		byID[in.ID] = in
	}

	var sum float64
	var best, clarity *types.StoredReport
	for i := range reports {
		r := &reports[i]
		sum += r.Report.OverallScore
		if best == nil || r.Report.OverallScore > best.Report.OverallScore {
			best = r
		}
		if clarity == nil || r.Report.ClarityScore > clarity.Report.ClarityScore {
			clarity = r
		}
	}

	highest := best.Report.OverallScore
	avg := math.Round(sum/float64(len(reports))*100) / 100
	highestClarity := clarity.Report.ClarityScore
	p.HighestOverallScore = &highest
	p.AverageOverallScore = &avg
	p.HighestClarityScore = &highestClarity
	if in, ok := byID[best.InterviewID]; ok {
		id, kind := in.ID, in.InterviewType
		p.InterviewIDOfHighestOverall = &id
		p.InterviewType = &kind
	}
	return p
}

// Scores returns the overall score of every stored report, oldest first.
func (s *Service) Scores(ctx context.Context, userID string) ([]float64, error) {
	const op = "get_scores"

	uid, err := types.ParseID(op, "user_id", userID)
	if err != nil {
		return nil, err
	}
	reports, err := s.store.ListReportsByUser(ctx, uid)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	scores := make([]float64, 0, len(reports))
	for _, r := range reports {
		scores = append(scores, r.Report.OverallScore)
	}
	return scores, nil
}
