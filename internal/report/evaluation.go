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

// Report returns the interview's structured report, generating and storing a
// new one when none is cached or the cached one predates the current
// elapsed-time counter.
func (p *Pipeline) Report(ctx context.Context, id string) (*types.StoredReport, error) {
	const op = "generate_report"

	in, err := p.interview(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if cached, err := p.freshReport(ctx, op, in); err != nil || cached != nil {
		return cached, err
	}

	v, err := p.regenerate(ctx, op, LeaseScopeReport, in, func(ctx context.Context) (any, error) {
		if cached, err := p.freshReport(ctx, op, in); err != nil || cached != nil {
			return cached, err
		}
		return p.evaluate(ctx, op, in)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.StoredReport), nil
}

// LatestReport returns the newest stored report without regenerating.
func (p *Pipeline) LatestReport(ctx context.Context, id string) (*types.StoredReport, error) {
	const op = "get_report"

	in, err := p.interview(ctx, op, id)
	if err != nil {
		return nil, err
	}
	r, err := p.store.LatestReport(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if r == nil {
		return nil, apperr.NotFound(op, "report", in.ID.String())
	}
	return r, nil
}

func (p *Pipeline) freshReport(ctx context.Context, op string, in *types.Interview) (*types.StoredReport, error) {
	latest, err := p.store.LatestReport(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if latest != nil && latest.ElapsedSeconds == in.ElapsedSeconds {
		return latest, nil
	}
	return nil, nil
}

func (p *Pipeline) evaluate(ctx context.Context, op string, in *types.Interview) (*types.StoredReport, error) {
	pairs, err := p.pairs(ctx, op, in)
	if err != nil {
		return nil, err
	}
	likelihood, err := p.AnalyzeLikelihood(ctx, pairs)
	if err != nil {
		return nil, err
	}

	text, err := p.generate(ctx, op, llm.TierAdvanced, llm.FormatJSON, "evaluation", map[string]any{
		"Metadata":   metadata(in),
		"Pairs":      toJSON(pairs),
		"Likelihood": toJSON(likelihood.Answers),
		"Degraded":   likelihood.Degraded,
	})
	if err != nil {
		return nil, err
	}

	report, raw, err := parseEvaluation(text)
	if err != nil {
		p.log.Error(ctx, "invalid report from generator", "interview_id", in.ID, "error", err)
		return nil, apperr.Upstream(op, err)
	}

	stored, err := p.store.InsertReport(ctx, types.StoredReport{
		InterviewID:    in.ID,
		UserID:         in.UserID,
		Report:         *report,
		RawText:        raw,
		ElapsedSeconds: in.ElapsedSeconds,
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	p.log.Info(ctx, "report stored", "interview_id", in.ID, "pairs", len(pairs),
		"overall_score", report.OverallScore, "likelihood_degraded", likelihood.Degraded)
	return stored, nil
}

func parseEvaluation(text string) (*types.EvaluationReport, string, error) {
	doc := llm.CleanJSONBlock(text)
	if err := schemas.Validate(schemas.Evaluation, doc); err != nil {
		return nil, doc, err
	}
	var r types.EvaluationReport
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, doc, fmt.Errorf("failed to decode report: %w", err)
	}
	normalizeReport(&r)
	return &r, doc, nil
}

func normalizeReport(r *types.EvaluationReport) {
	r.OverallScore = types.ClampScore(r.OverallScore)
	r.ClarityScore = types.ClampScore(r.ClarityScore)
	r.PacingScore = types.ClampScore(r.PacingScore)
	r.AILikelihood.Score = types.ClampScore(r.AILikelihood.Score)
	r.AILikelihood.Assessment = types.CanonicalAssessment(r.AILikelihood.Assessment)
	if r.AILikelihood.Assessment == types.AssessmentUnknown {
		r.AILikelihood.Assessment = types.AssessmentFromScore(r.AILikelihood.Score)
	}
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.AreasForImprovement == nil {
		r.AreasForImprovement = []string{}
	}
	if r.SuggestedResources == nil {
		r.SuggestedResources = []types.Resource{}
	}
}
