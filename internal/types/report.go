package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Likelihood assessments.
const (
	AssessmentHigh    = "High"
	AssessmentMedium  = "Medium"
	AssessmentLow     = "Low"
	AssessmentUnknown = "Unknown"
)

// CanonicalAssessment maps free-form assessment text onto High/Medium/Low.
// Anything else becomes Unknown.
func CanonicalAssessment(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return AssessmentHigh
	case "medium", "moderate":
		return AssessmentMedium
	case "low":
		return AssessmentLow
	}
	return AssessmentUnknown
}

// AssessmentFromScore buckets a 0-100 likelihood score into High/Medium/Low.
func AssessmentFromScore(score float64) string {
	switch score = ClampScore(score); {
	case score >= 67:
		return AssessmentHigh
	case score >= 34:
		return AssessmentMedium
	default:
		return AssessmentLow
	}
}

// AnswerLikelihood is the AI-likelihood estimate for one answer.
// Percentage is -1 when no estimate is available.
type AnswerLikelihood struct {
	Assessment string  `json:"assessment"`
	Percentage float64 `json:"percentage"`
}

// LikelihoodAnalysis is the typed output of the AI-likelihood stage, aligned
// positionally with the Q/A pairs it was computed from.
type LikelihoodAnalysis struct {
	Answers  []AnswerLikelihood `json:"answers"`
	Degraded bool               `json:"degraded"`
}

// Resource is a suggested study resource.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AILikelihood summarises how likely the answers were machine generated.
type AILikelihood struct {
	Score       float64 `json:"score"`
	Description string  `json:"description"`
	Assessment  string  `json:"assessment"`
}

// EvaluationReport is the structured evaluation of one interview.
type EvaluationReport struct {
	OverallScore        float64      `json:"overallScore"`
	ClarityScore        float64      `json:"clarityScore"`
	PacingScore         float64      `json:"pacingScore"`
	Strengths           []string     `json:"strengths"`
	AreasForImprovement []string     `json:"areasForImprovement"`
	SuggestedResources  []Resource   `json:"suggestedResources"`
	Summary             string       `json:"summary"`
	AILikelihood        AILikelihood `json:"aiLikelihood"`
}

// StoredReport is a persisted EvaluationReport. ElapsedSeconds is the
// interview's elapsed-time counter when the report was generated.
type StoredReport struct {
	ID             uuid.UUID        `json:"id"`
	InterviewID    uuid.UUID        `json:"interview_id"`
	UserID         uuid.UUID        `json:"user_id"`
	Report         EvaluationReport `json:"report"`
	RawText        string           `json:"-"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	CreatedAt      time.Time        `json:"created_at"`
}

// BreakdownEntry is the per-question analysis.
type BreakdownEntry struct {
	Question       string   `json:"question"`
	UserAnswer     string   `json:"userAnswer"`
	Score          float64  `json:"score"`
	ClarityScore   float64  `json:"clarityScore"`
	RelevanceScore float64  `json:"relevanceScore"`
	PacingScore    float64  `json:"pacingScore"`
	Duration       string   `json:"duration"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	AIAnalysis     string   `json:"aiAnalysis"`
}

// StoredBreakdown is a persisted detailed breakdown. Duration is the
// interview's elapsed-time counter when the breakdown was generated.
type StoredBreakdown struct {
	ID          uuid.UUID        `json:"id"`
	InterviewID uuid.UUID        `json:"interview_id"`
	UserID      uuid.UUID        `json:"user_id"`
	Entries     []BreakdownEntry `json:"detailed_breakdown"`
	Duration    int              `json:"duration"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ClampScore bounds a score to 0..100.
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
