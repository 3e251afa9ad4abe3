// Package transcript reconstructs question/answer pairs from an interview's
// turn log.
package transcript

import (
	"sort"

	"github.com/jonathan/interview-coach/internal/types"
)

// Extract drops the greeting turn and the first turn after it, then pairs the
// remaining turns two at a time in arrival order. A pair is kept only when an
// ai turn is followed by a user turn; a trailing unpaired turn is discarded.
//
// The first non-greeting turn is the candidate's reply to the greeting, so it
// never answers a question.
func Extract(turns []types.Turn) []types.QAPair {
	sorted := append([]types.Turn(nil), turns...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	greetingAt := -1
	for i, t := range sorted {
		if t.IsFirstMessage {
			greetingAt = i
		}
	}

	ordered := make([]types.Turn, 0, len(sorted))
	for i, t := range sorted {
		if i <= greetingAt || t.IsFirstMessage {
			continue
		}
		ordered = append(ordered, t)
	}
	if len(ordered) > 0 {
		ordered = ordered[1:]
	}

	pairs := make([]types.QAPair, 0, len(ordered)/2)
	for i := 0; i+1 < len(ordered); i += 2 {
		q, a := ordered[i], ordered[i+1]
		if q.Sender == types.SenderAI && a.Sender == types.SenderUser {
			pairs = append(pairs, types.QAPair{Question: q.Text, Answer: a.Text})
		}
	}
	return pairs
}

// AIQuestions returns the text of every non-greeting ai turn in arrival order.
func AIQuestions(turns []types.Turn) []string {
	var out []string
	for _, t := range turns {
		if t.Sender == types.SenderAI && !t.IsFirstMessage {
			out = append(out, t.Text)
		}
	}
	return out
}
