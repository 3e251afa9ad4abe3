package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
)

// Breakdown returns the per-question breakdown, regenerating it under the
// same freshness rule as Report. It requires a stored report.
func (p *Pipeline) Breakdown(ctx context.Context, id string) (*types.StoredBreakdown, error) {
	const op = "generate_breakdown"

	in, err := p.interview(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if cached, err := p.freshBreakdown(ctx, op, in); err != nil || cached != nil {
		return cached, err
	}

	v, err := p.regenerate(ctx, op, LeaseScopeBreakdown, in, func(ctx context.Context) (any, error) {
		if cached, err := p.freshBreakdown(ctx, op, in); err != nil || cached != nil {
			return cached, err
		}
		return p.breakdown(ctx, op, in)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.StoredBreakdown), nil
}

// LatestBreakdown returns the newest stored breakdown without regenerating.
func (p *Pipeline) LatestBreakdown(ctx context.Context, id string) (*types.StoredBreakdown, error) {
	const op = "get_breakdown"

	in, err := p.interview(ctx, op, id)
	if err != nil {
		return nil, err
	}
	b, err := p.store.LatestBreakdown(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if b == nil {
		return nil, apperr.NotFound(op, "breakdown", in.ID.String())
	}
	return b, nil
}

func (p *Pipeline) freshBreakdown(ctx context.Context, op string, in *types.Interview) (*types.StoredBreakdown, error) {
	latest, err := p.store.LatestBreakdown(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if latest != nil && latest.Duration == in.ElapsedSeconds {
		return latest, nil
	}
	return nil, nil
}

func (p *Pipeline) breakdown(ctx context.Context, op string, in *types.Interview) (*types.StoredBreakdown, error) {
	stored, err := p.store.LatestReport(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if stored == nil {
		return nil, apperr.NotFound(op, "report", in.ID.String())
	}
	pairs, err := p.pairs(ctx, op, in)
	if err != nil {
		return nil, err
	}

	text, err := p.generate(ctx, op, llm.TierAdvanced, llm.FormatJSON, "breakdown", map[string]any{
		"Metadata": metadata(in),
		"Report":   reportText(stored),
		"Pairs":    toJSON(pairs),
		"Duration": FormatDuration(in.ElapsedSeconds),
	})
	if err != nil {
		return nil, err
	}

	entries, err := parseBreakdown(text)
	if err != nil {
		p.log.Error(ctx, "invalid breakdown from generator", "interview_id", in.ID, "error", err)
		return nil, apperr.Upstream(op, err)
	}

	saved, err := p.store.InsertBreakdown(ctx, types.StoredBreakdown{
		InterviewID: in.ID,
		UserID:      in.UserID,
		Entries:     entries,
		Duration:    in.ElapsedSeconds,
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	p.log.Info(ctx, "breakdown stored", "interview_id", in.ID, "entries", len(entries))
	return saved, nil
}

func parseBreakdown(text string) ([]types.BreakdownEntry, error) {
	doc := llm.CleanJSONBlock(text)
	if err := schemas.Validate(schemas.Breakdown, doc); err != nil {
		return nil, err
	}
	var entries []types.BreakdownEntry
	if err := json.Unmarshal([]byte(doc), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown: %w", err)
	}
	for i := range entries {
		e := &entries[i]
		e.Score = types.ClampScore(e.Score)
		e.ClarityScore = types.ClampScore(e.ClarityScore)
		e.RelevanceScore = types.ClampScore(e.RelevanceScore)
		e.PacingScore = types.ClampScore(e.PacingScore)
		if e.Strengths == nil {
			e.Strengths = []string{}
		}
		if e.Improvements == nil {
			e.Improvements = []string{}
		}
	}
	if entries == nil {
		entries = []types.BreakdownEntry{}
	}
	return entries, nil
}
