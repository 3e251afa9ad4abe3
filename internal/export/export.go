package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/rendering"
	"github.com/jonathan/interview-coach/internal/types"
)

// ReportTitle heads every exported document.
const ReportTitle = "Interview Performance Report"

// Reports supplies the stored report and its narrative.
type Reports interface {
	Interview(ctx context.Context, id string) (*types.Interview, error)
	LatestReport(ctx context.Context, id string) (*types.StoredReport, error)
	Narrative(ctx context.Context, r *types.StoredReport) (string, error)
}

// Result describes a finished export.
type Result struct {
	InterviewID uuid.UUID         `json:"interview_id"`
	FileName    string            `json:"file_name"`
	Path        string            `json:"path"`
	URL         string            `json:"url,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	Renderer    string            `json:"renderer"`
	Blocks      []rendering.Block `json:"blocks"`
}

// Service renders and publishes interview reports.
type Service struct {
	reports   Reports
	renderer  rendering.Renderer
	publisher Publisher
	log       logging.Logger
	now       func() time.Time
}

// NewService wires an export service.
func NewService(reports Reports, renderer rendering.Renderer, publisher Publisher, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		reports:   reports,
		renderer:  renderer,
		publisher: publisher,
		log:       log.With("component", "export"),
		now:       time.Now,
	}
}

// Export writes the narrative of the interview's latest report to a PDF and
// publishes it. A missing report fails before any generation happens.
func (s *Service) Export(ctx context.Context, id string) (*Result, error) {
	const op = "export"

	stored, err := s.reports.LatestReport(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := s.reports.Interview(ctx, id)
	if err != nil {
		return nil, err
	}
	narrative, err := s.reports.Narrative(ctx, stored)
	if err != nil {
		return nil, err
	}

	blocks := Classify(Normalize(narrative))
	doc := &rendering.Document{
		Title:    ReportTitle,
		Subtitle: subtitle(in),
		Date:     s.now(),
		Blocks:   blocks,
	}

	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		s.log.Error(ctx, "render failed", "interview_id", in.ID, "renderer", s.renderer.Name(), "error", err)
		return nil, apperr.Internal(op, err)
	}

	name := FileName(in.ID)
	pub, err := s.publisher.Publish(ctx, in.ID, name, pdf)
	if err != nil {
		s.log.Error(ctx, "publish failed", "interview_id", in.ID, "error", err)
		return nil, apperr.Internal(op, err)
	}

	s.log.Info(ctx, "report exported", "interview_id", in.ID, "renderer", s.renderer.Name(),
		"blocks", len(blocks), "bytes", len(pdf), "path", pub.Path)

	res := &Result{
		InterviewID: in.ID,
		FileName:    name,
		Path:        pub.Path,
		URL:         pub.URL,
		Renderer:    s.renderer.Name(),
		Blocks:      blocks,
	}
	if !pub.ExpiresAt.IsZero() {
		res.ExpiresAt = &pub.ExpiresAt
	}
	return res, nil
}

func subtitle(in *types.Interview) string {
	switch {
	case in.Domain != "" && in.InterviewType != "":
		return fmt.Sprintf("%s, %s interview", in.Domain, in.InterviewType)
	case in.Domain != "":
		return in.Domain
	}
	return in.InterviewType
}
