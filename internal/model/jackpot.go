package model

import "time"

type JackpotTicketLimits struct {
	Global  int `json:"global"`
	PerUser int `json:"per_user"`
}

type Jackpot struct {
	ID            string              `json:"id"`
	CurrentValue  uint64              `json:"current_value"`
	TicketPrice   uint64              `json:"ticket_price"`
	TicketLimits  JackpotTicketLimits `json:"ticket_limits"`
	Status        string              `json:"status"`
	TotalTickets  int64               `json:"total_tickets"`
	NextDraw      time.Time           `json:"next_draw"`
	NextStartDate time.Time           `json:"next_start_date"`
}

type JackpotRound struct {
	WinnerID     string    `json:"winner_id"`
	PrizeAmount  uint64    `json:"prize_amount"`
	TotalTickets int       `json:"total_tickets"`
	DrawnAt      time.Time `json:"drawn_at"`
}

type GetJackpotRequest struct{}

type GetJackpotResponse struct {
	Jackpot Jackpot        `json:"jackpot"`
	History []JackpotRound `json:"history"`
}

type ScheduleJackpotCycleRequest struct {
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	InitialValue uint64    `json:"initial_value"`
	TicketPrice  uint64    `json:"ticket_price"`
}

type ScheduleJackpotCycleResponse struct {
	ID string `json:"id"`
}

// EditJackpotCycleRequest is a partial update; nil fields keep their current
// value. TicketLimits merges field by field, so supplying only per_user never
// erases the global limit.
type EditJackpotCycleRequest struct {
	NewValue     *uint64    `json:"new_value"`
	NextDraw     *time.Time `json:"next_draw"`
	TicketPrice  *uint64    `json:"ticket_price"`
	TicketLimits *struct {
		Global  *int `json:"global"`
		PerUser *int `json:"per_user"`
	} `json:"ticket_limits"`
}

type EditJackpotCycleResponse struct{}

type InjectJackpotRequest struct {
	Amount int64 `json:"amount"`
}

type InjectJackpotResponse struct {
	CurrentValue uint64 `json:"current_value"`
}

type BuyJackpotTicketsRequest struct {
	Quantity int `json:"quantity"`
}

type BuyJackpotTicketsResponse struct {
	TicketsCreated int   `json:"tickets_created"`
	UpdatedBalance int64 `json:"updated_balance"`
}

type DrawJackpotRequest struct{}

type DrawJackpotResponse struct {
	WinnerID    string `json:"winner_id"`
	PrizeAmount uint64 `json:"prize_amount"`
}
