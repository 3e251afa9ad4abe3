package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/interview-coach/internal/types"
)

// FormatDuration renders seconds as "X min Y sec".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d min %d sec", seconds/60, seconds%60)
}

func metadata(in *types.Interview) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Domain: %s\n", in.Domain)
	fmt.Fprintf(&sb, "Experience: %s\n", in.Experience)
	fmt.Fprintf(&sb, "Interview type: %s\n", in.InterviewType)
	fmt.Fprintf(&sb, "Difficulty: %s\n", in.Difficulty)
	fmt.Fprintf(&sb, "Mode: %s\n", in.Mode)
	fmt.Fprintf(&sb, "Completion: %s\n", in.Completion)
	fmt.Fprintf(&sb, "Duration: %s", FormatDuration(in.ElapsedSeconds))
	return sb.String()
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}
