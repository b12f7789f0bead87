package repository

import (
	"context"
	"time"

	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RaffleRepository interface {
	// Raffle
	Create(ctx context.Context, raffle *entity.Raffle) error
	GetByID(ctx context.Context, raffleID string) (*entity.Raffle, error)
	GetShouldStart(ctx context.Context, now time.Time) ([]entity.Raffle, error)
	GetShouldFinish(ctx context.Context, now time.Time) ([]entity.Raffle, error)
	UpdateStatus(ctx context.Context, raffleID string, from, to entity.RaffleStatus) error
	CheckAndSetWinner(ctx context.Context, raffleID, winnerID string, at time.Time) error
	DeleteWithTickets(ctx context.Context, raffleID string) error

	// Ticket
	CreateTickets(ctx context.Context, tickets []*entity.RaffleTicket) error
	CountTickets(ctx context.Context, raffleID string) (int64, error)
	CountTicketsByUserID(ctx context.Context, raffleID, userID string) (int64, error)
	GetTicketByOffset(ctx context.Context, raffleID string, offset int) (*entity.RaffleTicket, error)
	GetAnyTicketOfUser(ctx context.Context, raffleID, userID string) (*entity.RaffleTicket, error)
	GetTicketsByUserID(ctx context.Context, raffleID, userID string) ([]entity.RaffleTicket, error)
}

type raffleRepository struct{}

func NewRaffleRepository() *raffleRepository {
	return &raffleRepository{}
}

func (r *raffleRepository) Create(ctx context.Context, raffle *entity.Raffle) error {
	return xcontext.DB(ctx).Create(raffle).Error
}

func (r *raffleRepository) GetByID(ctx context.Context, raffleID string) (*entity.Raffle, error) {
	var result entity.Raffle
	if err := xcontext.DB(ctx).Take(&result, "id=?", raffleID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *raffleRepository) GetShouldStart(ctx context.Context, now time.Time) ([]entity.Raffle, error) {
	var result []entity.Raffle
	err := xcontext.DB(ctx).
		Find(&result, "status=? AND starts_at<=? AND ends_at>?", entity.RaffleScheduled, now, now).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) GetShouldFinish(ctx context.Context, now time.Time) ([]entity.Raffle, error) {
	var result []entity.Raffle
	err := xcontext.DB(ctx).
		Find(&result, "status=? AND ends_at<=?", entity.RaffleActive, now).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateStatus only applies the transition if the raffle is still in the from
// status, so two concurrent sweeps or a sweep racing a draw cannot double
// apply it.
func (r *raffleRepository) UpdateStatus(
	ctx context.Context, raffleID string, from, to entity.RaffleStatus,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=?", raffleID, from).
		Update("status", to)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// CheckAndSetWinner writes the terminal state. The winner_id IS NULL guard
// makes the winner assignable exactly once.
func (r *raffleRepository) CheckAndSetWinner(
	ctx context.Context, raffleID, winnerID string, at time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status<>? AND winner_id IS NULL", raffleID, entity.RaffleFinished).
		Updates(map[string]any{
			"status":            entity.RaffleFinished,
			"winner_id":         winnerID,
			"winner_defined_at": at,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *raffleRepository) DeleteWithTickets(ctx context.Context, raffleID string) error {
	if err := xcontext.DB(ctx).Delete(&entity.RaffleTicket{}, "raffle_id=?", raffleID).Error; err != nil {
		return err
	}

	return xcontext.DB(ctx).Delete(&entity.Raffle{}, "id=?", raffleID).Error
}

func (r *raffleRepository) CreateTickets(ctx context.Context, tickets []*entity.RaffleTicket) error {
	return xcontext.DB(ctx).Create(tickets).Error
}

func (r *raffleRepository) CountTickets(ctx context.Context, raffleID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.RaffleTicket{}).
		Where("raffle_id=?", raffleID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *raffleRepository) CountTicketsByUserID(
	ctx context.Context, raffleID, userID string,
) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.RaffleTicket{}).
		Where("raffle_id=? AND user_id=?", raffleID, userID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetTicketByOffset returns the ticket at the given position in a stable
// ordering. Winner selection maps one uniform index onto this ordering, so
// the draw is per-ticket, not per-user.
func (r *raffleRepository) GetTicketByOffset(
	ctx context.Context, raffleID string, offset int,
) (*entity.RaffleTicket, error) {
	var result entity.RaffleTicket
	err := xcontext.DB(ctx).Where("raffle_id=?", raffleID).
		Order("created_at, id").Offset(offset).Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *raffleRepository) GetAnyTicketOfUser(
	ctx context.Context, raffleID, userID string,
) (*entity.RaffleTicket, error) {
	var result entity.RaffleTicket
	err := xcontext.DB(ctx).
		Where("raffle_id=? AND user_id=?", raffleID, userID).Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *raffleRepository) GetTicketsByUserID(
	ctx context.Context, raffleID, userID string,
) ([]entity.RaffleTicket, error) {
	var result []entity.RaffleTicket
	err := xcontext.DB(ctx).
		Find(&result, "raffle_id=? AND user_id=?", raffleID, userID).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
