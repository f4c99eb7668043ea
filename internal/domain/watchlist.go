package domain

import "time"

// RemovalReason explains why an entry left the watchlist.
type RemovalReason string

const (
	RemovalTriggered RemovalReason = "triggered"
	RemovalExpired   RemovalReason = "expired"
	RemovalRunaway   RemovalReason = "runaway"
	RemovalManual    RemovalReason = "manual"
)

// WatchlistEntry is one admitted ambush candidate. Unique key is Symbol;
// the watchlist service owns the whole lifecycle.
type WatchlistEntry struct {
	Symbol              string            `json:"symbol"`
	PrimaryScore        int               `json:"primary_score"`   // slow cadence, 0..15
	SecondaryScore      int               `json:"secondary_score"` // fast cadence, 0..10
	CompositeScore      int               `json:"composite_score"`
	HighestScoreSeen    int               `json:"highest_score_seen"`
	AdmissionPrice      float64           `json:"admission_price"`
	SnapshotAtAdmission IndicatorSnapshot `json:"snapshot_at_admission"`
	AddedAt             time.Time         `json:"added_at"`
	PreWarned           bool              `json:"pre_warned"`
}

// Age returns how long the entry has been on the watchlist.
func (e *WatchlistEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.AddedAt)
}
