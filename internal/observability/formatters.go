// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/interview-coach/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI commands.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintInterview outputs the session metadata.
func (p *Printer) PrintInterview(in *types.Interview) {
	if in == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:         %s\n", in.ID))
	sb.WriteString(fmt.Sprintf("Domain:     %s\n", in.Domain))
	sb.WriteString(fmt.Sprintf("Type:       %s\n", in.InterviewType))
	sb.WriteString(fmt.Sprintf("Experience: %s\n", in.Experience))
	sb.WriteString(fmt.Sprintf("Difficulty: %s\n", in.Difficulty))
	sb.WriteString(fmt.Sprintf("Mode:       %s\n", in.Mode))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", in.Completion))
	sb.WriteString(fmt.Sprintf("Elapsed:    %ds", in.ElapsedSeconds))

	p.printBox("INTERVIEW", sb.String())
}

// PrintTranscript outputs the question/answer pairs of an interview.
func (p *Printer) PrintTranscript(pairs []types.QAPair) {
	var sb strings.Builder
	if len(pairs) == 0 {
		sb.WriteString("No answered questions yet.")
	}
	for i, pair := range pairs {
		sb.WriteString(fmt.Sprintf("Q%d: %s\n", i+1, pair.Question))
		sb.WriteString(fmt.Sprintf("A%d: %s", i+1, pair.Answer))
		if i < len(pairs)-1 {
			sb.WriteString("\n\n")
		}
	}

	p.printBox(fmt.Sprintf("TRANSCRIPT (%d pairs)", len(pairs)), sb.String())
}

// PrintLikelihood outputs the per-answer AI-likelihood estimates.
func (p *Printer) PrintLikelihood(analysis types.LikelihoodAnalysis) {
	if len(analysis.Answers) == 0 {
		return
	}

	var sb strings.Builder
	if analysis.Degraded {
		sb.WriteString("(estimates unavailable, output could not be parsed)\n\n")
	}
	for i, a := range analysis.Answers {
		if a.Percentage < 0 {
			sb.WriteString(fmt.Sprintf("#%d  %s", i+1, a.Assessment))
		} else {
			sb.WriteString(fmt.Sprintf("#%d  %s (%.0f%%)", i+1, a.Assessment, a.Percentage))
		}
		if i < len(analysis.Answers)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("AI LIKELIHOOD", sb.String())
}

// PrintReport outputs the evaluation scores and the top findings.
func (p *Printer) PrintReport(r *types.StoredReport) {
	if r == nil {
		return
	}
	rep := r.Report

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall:  %.0f\n", rep.OverallScore))
	sb.WriteString(fmt.Sprintf("Clarity:  %.0f\n", rep.ClarityScore))
	sb.WriteString(fmt.Sprintf("Pacing:   %.0f\n", rep.PacingScore))
	sb.WriteString(fmt.Sprintf("AI:       %s (%.0f)\n", rep.AILikelihood.Assessment, rep.AILikelihood.Score))

	writeList(&sb, "Strengths", rep.Strengths)
	writeList(&sb, "Areas for improvement", rep.AreasForImprovement)

	if rep.Summary != "" {
		sb.WriteString("\nSummary:\n")
		sb.WriteString(wrap(rep.Summary, boxWidth-6, "  "))
	}

	p.printBox("EVALUATION REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBreakdown outputs one line of scores per question.
func (p *Printer) PrintBreakdown(b *types.StoredBreakdown) {
	if b == nil || len(b.Entries) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Questions analysed: %d\n\n", len(b.Entries)))
	for i, e := range b.Entries {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, e.Question))
		sb.WriteString(fmt.Sprintf("    Score %.0f · clarity %.0f · relevance %.0f · pacing %.0f",
			e.Score, e.ClarityScore, e.RelevanceScore, e.PacingScore))
		if i < len(b.Entries)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DETAILED BREAKDOWN", sb.String())
}

// PrintExport outputs where an exported report can be fetched.
func (p *Printer) PrintExport(fileName, location, renderer string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:     %s\n", fileName))
	sb.WriteString(fmt.Sprintf("Renderer: %s\n", renderer))
	sb.WriteString(fmt.Sprintf("Location: %s", location))

	p.printBox("REPORT EXPORTED", sb.String())
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s:\n", title))
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// wrap breaks text into lines of at most width runes, each prefixed by indent.
func wrap(text string, width int, indent string) string {
	var sb strings.Builder
	line := ""
	for _, word := range strings.Fields(text) {
		if line != "" && len([]rune(line))+1+len([]rune(word)) > width {
			sb.WriteString(indent + line + "\n")
			line = ""
		}
		if line == "" {
			line = word
		} else {
			line += " " + word
		}
	}
	if line != "" {
		sb.WriteString(indent + line + "\n")
	}
	return sb.String()
}
