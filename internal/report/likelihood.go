package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
)

// AnalyzeLikelihood estimates, per answer, how likely it was machine
// generated. Output that cannot be decoded or does not line up with pairs
// degrades to Unknown entries instead of failing.
func (p *Pipeline) AnalyzeLikelihood(ctx context.Context, pairs []types.QAPair) (types.LikelihoodAnalysis, error) {
	const op = "analyze_likelihood"

	if len(pairs) == 0 {
		return types.LikelihoodAnalysis{Answers: []types.AnswerLikelihood{}}, nil
	}

	text, err := p.generate(ctx, op, llm.TierStandard, llm.FormatJSON, "likelihood", map[string]any{
		"Pairs": toJSON(pairs),
	})
	if err != nil {
		return types.LikelihoodAnalysis{}, err
	}

	answers, err := parseLikelihood(text, len(pairs))
	if err != nil {
		p.log.Warn(ctx, "likelihood analysis degraded", "pairs", len(pairs), "error", err)
		return unknownLikelihood(len(pairs)), nil
	}
	return types.LikelihoodAnalysis{Answers: answers}, nil
}

type lengthMismatchError struct {
	got, want int
}

func (e *lengthMismatchError) Error() string {
	return fmt.Sprintf("got %d likelihood entries for %d answers", e.got, e.want)
}

func parseLikelihood(text string, n int) ([]types.AnswerLikelihood, error) {
	doc := llm.CleanJSONBlock(text)
	if err := schemas.Validate(schemas.Likelihood, doc); err != nil {
		return nil, err
	}
	var answers []types.AnswerLikelihood
	if err := json.Unmarshal([]byte(doc), &answers); err != nil {
		return nil, err
	}
	if len(answers) != n {
		return nil, &lengthMismatchError{got: len(answers), want: n}
	}
	for i := range answers {
		answers[i].Assessment = types.CanonicalAssessment(answers[i].Assessment)
		answers[i].Percentage = types.ClampScore(answers[i].Percentage)
	}
	return answers, nil
}

func unknownLikelihood(n int) types.LikelihoodAnalysis {
	answers := make([]types.AnswerLikelihood, n)
	for i := range answers {
		answers[i] = types.AnswerLikelihood{Assessment: types.AssessmentUnknown, Percentage: -1}
	}
	return types.LikelihoodAnalysis{Answers: answers, Degraded: true}
}
