package model

// LedgerResult is the translated response of a balance mutation. The balance
// is authoritative on the ledger side and never recomputed locally.
type LedgerResult struct {
	UpdatedBalance int64 `json:"updated_balance"`
	LeveledUp      bool  `json:"leveled_up,omitempty"`
}

type CheckinResult struct {
	AlreadyCheckedIn bool  `json:"already_checked_in"`
	Reward           int64 `json:"reward"`
}

type DailyCheckinRequest struct{}

type DailyCheckinResponse struct {
	AlreadyCheckedIn bool  `json:"already_checked_in"`
	Reward           int64 `json:"reward"`
}
