// Package report derives the evaluation artifacts of an interview: the
// AI-likelihood analysis, the structured report, the narrative and the
// per-question breakdown.
//
// The structured report and the breakdown are cached in the store and
// regenerated only when the interview's elapsed-time counter no longer matches
// the counter recorded with the cached artifact.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/transcript"
	"github.com/jonathan/interview-coach/internal/types"
)

// Lease scopes held while a cached artifact is regenerated.
const (
	LeaseScopeReport    = "report"
	LeaseScopeBreakdown = "breakdown"
)

const promptFile = "report.json"

// Store is the persistence the pipeline needs.
type Store interface {
	GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error)
	ListTurns(ctx context.Context, interviewID uuid.UUID) ([]types.Turn, error)
	InsertReport(ctx context.Context, r types.StoredReport) (*types.StoredReport, error)
	LatestReport(ctx context.Context, interviewID uuid.UUID) (*types.StoredReport, error)
	InsertBreakdown(ctx context.Context, b types.StoredBreakdown) (*types.StoredBreakdown, error)
	LatestBreakdown(ctx context.Context, interviewID uuid.UUID) (*types.StoredBreakdown, error)
	AcquireLease(ctx context.Context, interviewID uuid.UUID, scope, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, interviewID uuid.UUID, scope, holder string) error
}

// Pipeline runs the report stages.
type Pipeline struct {
	store    Store
	gen      llm.Client
	log      logging.Logger
	leaseTTL time.Duration
	flights  singleflight.Group
}

// New wires a pipeline.
func New(store Store, gen llm.Client, log logging.Logger, leaseTTL time.Duration) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	if leaseTTL <= 0 {
		leaseTTL = 2 * time.Minute
	}
	return &Pipeline{store: store, gen: gen, log: log.With("component", "report"), leaseTTL: leaseTTL}
}

// Interview returns the interview the pipeline reports on.
func (p *Pipeline) Interview(ctx context.Context, id string) (*types.Interview, error) {
	return p.interview(ctx, "get_interview", id)
}

// Transcript returns the interview's question/answer pairs.
func (p *Pipeline) Transcript(ctx context.Context, id string) ([]types.QAPair, error) {
	const op = "transcript"

	in, err := p.interview(ctx, op, id)
	if err != nil {
		return nil, err
	}
	return p.pairs(ctx, op, in)
}

func (p *Pipeline) interview(ctx context.Context, op, id string) (*types.Interview, error) {
	iid, err := types.ParseID(op, "interview_id", id)
	if err != nil {
		return nil, err
	}
	in, err := p.store.GetInterview(ctx, iid)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if in == nil {
		return nil, apperr.NotFound(op, "interview", iid.String())
	}
	return in, nil
}

func (p *Pipeline) pairs(ctx context.Context, op string, in *types.Interview) ([]types.QAPair, error) {
	turns, err := p.store.ListTurns(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return transcript.Extract(turns), nil
}

// regenerate collapses concurrent in-process callers for the same interview
// counter and holds the store lease while fn runs. A lease held elsewhere is a
// Conflict. The shared work outlives any single caller and is bounded by the
// lease TTL; each caller stops waiting when its own context is done.
func (p *Pipeline) regenerate(ctx context.Context, op, scope string, in *types.Interview, fn func(context.Context) (any, error)) (any, error) {
	id := in.ID
	key := fmt.Sprintf("%s:%s:%d", scope, id, in.ElapsedSeconds)
	ch := p.flights.DoChan(key, func() (any, error) {
		work, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.leaseTTL)
		defer cancel()

		holder := uuid.NewString()
		ok, err := p.store.AcquireLease(work, id, scope, holder, p.leaseTTL)
		if err != nil {
			return nil, apperr.Internal(op, err)
		}
		if !ok {
			return nil, apperr.Conflict(op, scope+" generation already in progress for this interview")
		}
		defer func() {
			if err := p.store.ReleaseLease(context.WithoutCancel(work), id, scope, holder); err != nil {
				p.log.Warn(work, "failed to release lease", "interview_id", id, "scope", scope, "error", err)
			}
		}()
		return fn(work)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			p.log.Debug(ctx, "joined in-flight generation", "interview_id", id, "scope", scope)
		}
		return res.Val, res.Err
	}
}

func (p *Pipeline) generate(ctx context.Context, op string, tier llm.ModelTier, format llm.Format, stage string, data map[string]any) (string, error) {
	system, err := prompts.Render(promptFile, stage+"-system", data)
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	user, err := prompts.Render(promptFile, stage+"-user", data)
	if err != nil {
		return "", apperr.Internal(op, err)
	}

	text, err := p.gen.Generate(ctx, llm.Request{
		Messages: []llm.Message{llm.System(system), llm.User(user)},
		Format:   format,
		Tier:     tier,
	})
	if err != nil {
		p.log.Error(ctx, "generation failed", "op", op, "stage", stage, "error", err)
		return "", apperr.Upstream(op, err)
	}
	return text, nil
}
