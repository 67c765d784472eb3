package dicer

import (
	"fmt"
	"time"
)

const ReasonDuplicate = "duplicate"

// Skip describes one record that produced no output because it could not be
// processed.
type Skip struct {
	ListID     int64  `json:"list_id"`
	LocationID int64  `json:"location_id"`
	Reason     string `json:"reason"`
	Err        string `json:"error,omitempty"`
}

// Summary of a run. Processed counts records that went through the whole
// pipeline, including those with zero fragments; Empty is the subset whose
// repaired geometry had nothing left.
type Summary struct {
	Total      int           `json:"total"`
	Processed  int           `json:"processed"`
	Empty      int           `json:"empty"`
	Skipped    int           `json:"skipped"`
	Fragments  int           `json:"fragments"`
	SkippedIDs []int64       `json:"skipped_ids"`
	Skips      []Skip        `json:"skips"`
	Duration   time.Duration `json:"duration"`
}

func (s Summary) String() string {
	return fmt.Sprintf("total=%d processed=%d empty=%d skipped=%d fragments=%d dur=%s",
		s.Total, s.Processed, s.Empty, s.Skipped, s.Fragments, s.Duration)
}
