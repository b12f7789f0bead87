package model

import "time"

type Raffle struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	TicketPrice        uint64         `json:"ticket_price"`
	TicketLimitPerUser int            `json:"ticket_limit_per_user"`
	StartsAt           time.Time      `json:"starts_at"`
	EndsAt             time.Time      `json:"ends_at"`
	Status             string         `json:"status"`
	PrizeType          string         `json:"prize_type"`
	PrizeConfig        map[string]any `json:"prize_config"`
	WinnerID           string         `json:"winner_id,omitempty"`
	WinnerDefinedAt    *time.Time     `json:"winner_defined_at,omitempty"`
}

type RaffleTicket struct {
	ID          string    `json:"id"`
	RaffleID    string    `json:"raffle_id"`
	UserID      string    `json:"user_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

type PrizePlan struct {
	Type         string `json:"type" structs:"type"`
	CoinAmount   int64  `json:"coin_amount,omitempty" structs:"coin_amount"`
	ItemID       string `json:"item_id,omitempty" structs:"item_id"`
	DisplayTitle string `json:"display_title" structs:"display_title"`
	DisplayImage string `json:"display_image,omitempty" structs:"display_image"`
	Warning      string `json:"warning,omitempty" structs:"warning"`
}

type CreateRaffleRequest struct {
	Title              string         `json:"title"`
	TicketPrice        uint64         `json:"ticket_price"`
	TicketLimitPerUser int            `json:"ticket_limit_per_user"`
	StartsAt           time.Time      `json:"starts_at"`
	EndsAt             time.Time      `json:"ends_at"`
	PrizeType          string         `json:"prize_type"`
	PrizeConfig        map[string]any `json:"prize_config"`
}

type CreateRaffleResponse struct {
	ID string `json:"id"`
}

type GetRaffleRequest struct {
	RaffleID string `json:"raffle_id" form:"raffle_id"`
}

type GetRaffleResponse struct {
	Raffle       Raffle `json:"raffle"`
	TotalTickets int64  `json:"total_tickets"`
}

type GetMyRaffleTicketsRequest struct {
	RaffleID string `json:"raffle_id" form:"raffle_id"`
}

type GetMyRaffleTicketsResponse struct {
	Tickets []RaffleTicket `json:"tickets"`
}

type BuyRaffleTicketsRequest struct {
	RaffleID string `json:"raffle_id"`
	Quantity int    `json:"quantity"`
}

type BuyRaffleTicketsResponse struct {
	TicketsCreated int   `json:"tickets_created"`
	UpdatedBalance int64 `json:"updated_balance"`
}

type PreviewRaffleWinnerRequest struct {
	RaffleID string `json:"raffle_id" form:"raffle_id"`
	RefID    string `json:"ref_id" form:"ref_id"`
}

type PreviewRaffleWinnerResponse struct {
	WinnerID  string    `json:"winner_id"`
	PrizePlan PrizePlan `json:"prize_plan"`
}

type ConfirmRaffleWinnerRequest struct {
	RaffleID string `json:"raffle_id"`
	RefID    string `json:"ref_id"`

	// WinnerID forces the winner instead of drawing a random ticket. The
	// chosen user must hold at least one ticket.
	WinnerID string `json:"winner_id"`
}

type ConfirmRaffleWinnerResponse struct {
	WinnerID  string    `json:"winner_id"`
	PrizePlan PrizePlan `json:"prize_plan"`
}

type DeleteRaffleRequest struct {
	RaffleID string `json:"raffle_id"`
}

type DeleteRaffleResponse struct{}
