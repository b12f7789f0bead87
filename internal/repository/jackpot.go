package repository

import (
	"context"

	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type JackpotRepository interface {
	// Cycle
	Create(ctx context.Context, jackpot *entity.Jackpot) error
	GetByID(ctx context.Context, jackpotID string) (*entity.Jackpot, error)
	GetCurrent(ctx context.Context) (*entity.Jackpot, error)
	Update(ctx context.Context, jackpotID string, updates map[string]any) error
	UpdateStatus(ctx context.Context, jackpotID string, from, to entity.JackpotStatus) error
	IncreaseValue(ctx context.Context, jackpotID string, amount uint64) error

	// Ticket
	CreateTickets(ctx context.Context, tickets []*entity.JackpotTicket) error
	CountTickets(ctx context.Context, jackpotID string) (int64, error)
	CountTicketsByUserID(ctx context.Context, jackpotID, userID string) (int64, error)
	GetTicketByOffset(ctx context.Context, jackpotID string, offset int) (*entity.JackpotTicket, error)
	DeleteTickets(ctx context.Context, jackpotID string) error

	// Round
	CreateRound(ctx context.Context, round *entity.JackpotRound) error
	GetRounds(ctx context.Context, jackpotID string, limit int) ([]entity.JackpotRound, error)
}

type jackpotRepository struct{}

func NewJackpotRepository() *jackpotRepository {
	return &jackpotRepository{}
}

func (r *jackpotRepository) Create(ctx context.Context, jackpot *entity.Jackpot) error {
	return xcontext.DB(ctx).Create(jackpot).Error
}

func (r *jackpotRepository) GetByID(ctx context.Context, jackpotID string) (*entity.Jackpot, error) {
	var result entity.Jackpot
	if err := xcontext.DB(ctx).Take(&result, "id=?", jackpotID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *jackpotRepository) GetCurrent(ctx context.Context) (*entity.Jackpot, error) {
	var result entity.Jackpot
	err := xcontext.DB(ctx).Order("created_at DESC").Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *jackpotRepository) Update(
	ctx context.Context, jackpotID string, updates map[string]any,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Jackpot{}).
		Where("id=?", jackpotID).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *jackpotRepository) UpdateStatus(
	ctx context.Context, jackpotID string, from, to entity.JackpotStatus,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Jackpot{}).
		Where("id=? AND status=?", jackpotID, from).
		Update("status", to)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *jackpotRepository) IncreaseValue(
	ctx context.Context, jackpotID string, amount uint64,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Jackpot{}).
		Where("id=?", jackpotID).
		Update("current_value", gorm.Expr("current_value+?", amount))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *jackpotRepository) CreateTickets(ctx context.Context, tickets []*entity.JackpotTicket) error {
	return xcontext.DB(ctx).Create(tickets).Error
}

func (r *jackpotRepository) CountTickets(ctx context.Context, jackpotID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.JackpotTicket{}).
		Where("jackpot_id=?", jackpotID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *jackpotRepository) CountTicketsByUserID(
	ctx context.Context, jackpotID, userID string,
) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.JackpotTicket{}).
		Where("jackpot_id=? AND user_id=?", jackpotID, userID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *jackpotRepository) GetTicketByOffset(
	ctx context.Context, jackpotID string, offset int,
) (*entity.JackpotTicket, error) {
	var result entity.JackpotTicket
	err := xcontext.DB(ctx).Where("jackpot_id=?", jackpotID).
		Order("created_at, id").Offset(offset).Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *jackpotRepository) DeleteTickets(ctx context.Context, jackpotID string) error {
	return xcontext.DB(ctx).Delete(&entity.JackpotTicket{}, "jackpot_id=?", jackpotID).Error
}

func (r *jackpotRepository) CreateRound(ctx context.Context, round *entity.JackpotRound) error {
	return xcontext.DB(ctx).Create(round).Error
}

func (r *jackpotRepository) GetRounds(
	ctx context.Context, jackpotID string, limit int,
) ([]entity.JackpotRound, error) {
	var result []entity.JackpotRound
	tx := xcontext.DB(ctx).Where("jackpot_id=?", jackpotID).Order("drawn_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	if err := tx.Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}
