package report

import (
	"context"
	"strings"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/types"
)

// Narrative writes the prose version of a stored report. It is never cached.
func (p *Pipeline) Narrative(ctx context.Context, r *types.StoredReport) (string, error) {
	const op = "generate_narrative"

	text, err := p.generate(ctx, op, llm.TierStandard, llm.FormatText, "narrative", map[string]any{
		"Report": reportText(r),
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.UpstreamEmpty(op, "narrative")
	}
	return text, nil
}

// reportText is the generator-facing form of a stored report.
func reportText(r *types.StoredReport) string {
	if strings.TrimSpace(r.RawText) != "" {
		return r.RawText
	}
	return toJSON(r.Report)
}
