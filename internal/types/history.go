package types

// HistoryEntry is one interview together with its latest derived artifacts.
type HistoryEntry struct {
	Interview Interview        `json:"interview"`
	Report    *StoredReport    `json:"report,omitempty"`
	Breakdown *StoredBreakdown `json:"breakdown,omitempty"`
}
