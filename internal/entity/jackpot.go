package entity

import (
	"time"

	"github.com/prizelab/backend/pkg/enum"
)

type JackpotStatus string

var (
	JackpotWaitingStart = enum.New(JackpotStatus("waiting_start"))
	JackpotActive       = enum.New(JackpotStatus("active"))
	JackpotInApuration  = enum.New(JackpotStatus("in_apuration"))
)

// Jackpot is one cycle of the rolling pooled-prize lottery. A cycle hosts
// repeated rounds: each draw archives a JackpotRound and resets the pool to
// the baseline. Scheduling a future cycle creates a new row; the newest row
// is the current one.
type Jackpot struct {
	Base

	CurrentValue       uint64
	TicketPrice        uint64
	GlobalTicketLimit  int
	PerUserTicketLimit int
	Status             JackpotStatus

	NextDraw      time.Time
	NextStartDate time.Time
}

type JackpotTicket struct {
	Base

	JackpotID string
	Jackpot   Jackpot `gorm:"foreignKey:JackpotID"`

	UserID string `gorm:"index"`
}

type JackpotRound struct {
	Base

	JackpotID string
	Jackpot   Jackpot `gorm:"foreignKey:JackpotID"`

	WinnerID     string
	PrizeAmount  uint64
	TotalTickets int
	DrawnAt      time.Time
}
