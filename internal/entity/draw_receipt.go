package entity

// DrawReceipt records an applied draw under the caller-supplied reference id.
// The unique index makes a retried confirm with the same reference id resolve
// to the already-committed result instead of drawing twice.
type DrawReceipt struct {
	Base

	RefID      string `gorm:"uniqueIndex"`
	ResourceID string `gorm:"index"`
	WinnerID   string
	PrizePlan  Map
}
