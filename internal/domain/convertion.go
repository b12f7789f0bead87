package domain

import (
	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/internal/model"
)

func convertRaffle(raffle *entity.Raffle) model.Raffle {
	result := model.Raffle{
		ID:                 raffle.ID,
		Title:              raffle.Title,
		TicketPrice:        raffle.TicketPrice,
		TicketLimitPerUser: raffle.TicketLimitPerUser,
		StartsAt:           raffle.StartsAt,
		EndsAt:             raffle.EndsAt,
		Status:             string(raffle.Status),
		PrizeType:          string(raffle.PrizeType),
		PrizeConfig:        map[string]any(raffle.PrizeConfig),
	}

	if raffle.WinnerID.Valid {
		result.WinnerID = raffle.WinnerID.String
	}

	if raffle.WinnerDefinedAt.Valid {
		definedAt := raffle.WinnerDefinedAt.Time
		result.WinnerDefinedAt = &definedAt
	}

	return result
}

func convertRaffleTicket(ticket *entity.RaffleTicket) model.RaffleTicket {
	return model.RaffleTicket{
		ID:          ticket.ID,
		RaffleID:    ticket.RaffleID,
		UserID:      ticket.UserID,
		PurchasedAt: ticket.CreatedAt,
	}
}

func convertJackpot(jackpot *entity.Jackpot, totalTickets int64) model.Jackpot {
	return model.Jackpot{
		ID:           jackpot.ID,
		CurrentValue: jackpot.CurrentValue,
		TicketPrice:  jackpot.TicketPrice,
		TicketLimits: model.JackpotTicketLimits{
			Global:  jackpot.GlobalTicketLimit,
			PerUser: jackpot.PerUserTicketLimit,
		},
		Status:        string(jackpot.Status),
		TotalTickets:  totalTickets,
		NextDraw:      jackpot.NextDraw,
		NextStartDate: jackpot.NextStartDate,
	}
}

func convertJackpotRound(round *entity.JackpotRound) model.JackpotRound {
	return model.JackpotRound{
		WinnerID:     round.WinnerID,
		PrizeAmount:  round.PrizeAmount,
		TotalTickets: round.TotalTickets,
		DrawnAt:      round.DrawnAt,
	}
}
