package repository

import (
	"context"

	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/pkg/xcontext"
)

type DrawReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.DrawReceipt) error
	GetByRefID(ctx context.Context, refID string) (*entity.DrawReceipt, error)
	GetByResourceID(ctx context.Context, resourceID string) (*entity.DrawReceipt, error)
}

type drawReceiptRepository struct{}

func NewDrawReceiptRepository() *drawReceiptRepository {
	return &drawReceiptRepository{}
}

// Create fails on a duplicated reference id because of the unique index.
// Callers resolve that conflict by re-reading the persisted state instead of
// treating it as a hard failure.
func (r *drawReceiptRepository) Create(ctx context.Context, receipt *entity.DrawReceipt) error {
	return xcontext.DB(ctx).Create(receipt).Error
}

func (r *drawReceiptRepository) GetByRefID(ctx context.Context, refID string) (*entity.DrawReceipt, error) {
	var result entity.DrawReceipt
	if err := xcontext.DB(ctx).Take(&result, "ref_id=?", refID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *drawReceiptRepository) GetByResourceID(
	ctx context.Context, resourceID string,
) (*entity.DrawReceipt, error) {
	var result entity.DrawReceipt
	err := xcontext.DB(ctx).Where("resource_id=?", resourceID).
		Order("created_at DESC").Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}
