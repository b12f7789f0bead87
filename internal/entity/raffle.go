package entity

import (
	"database/sql"
	"time"

	"github.com/prizelab/backend/pkg/enum"
)

type RaffleStatus string

var (
	RaffleScheduled    = enum.New(RaffleStatus("scheduled"))
	RaffleActive       = enum.New(RaffleStatus("active"))
	RaffleAwaitingDraw = enum.New(RaffleStatus("awaiting_draw"))
	RaffleFinished     = enum.New(RaffleStatus("finished"))
	RaffleEnded        = enum.New(RaffleStatus("ended"))
)

type PrizeType string

var (
	PrizeItem   = enum.New(PrizeType("item"))
	PrizeCoins  = enum.New(PrizeType("coins"))
	PrizeHybrid = enum.New(PrizeType("hybrid"))
	PrizeCustom = enum.New(PrizeType("custom"))
)

type Raffle struct {
	Base

	Title              string
	TicketPrice        uint64
	TicketLimitPerUser int
	StartsAt           time.Time
	EndsAt             time.Time
	Status             RaffleStatus

	PrizeType   PrizeType
	PrizeConfig Map

	// WinnerID is set exactly once, on the transition to finished.
	WinnerID        sql.NullString
	WinnerDefinedAt sql.NullTime
}

type RaffleTicket struct {
	Base

	RaffleID string
	Raffle   Raffle `gorm:"foreignKey:RaffleID"`

	UserID string `gorm:"index"`
}
