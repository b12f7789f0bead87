package domain

import (
	"context"

	"github.com/prizelab/backend/internal/client"
	"github.com/prizelab/backend/internal/model"
	"github.com/prizelab/backend/pkg/errorx"
	"github.com/prizelab/backend/pkg/xcontext"
)

type UserDomain interface {
	DailyCheckin(ctx context.Context, req *model.DailyCheckinRequest) (*model.DailyCheckinResponse, error)
}

type userDomain struct {
	ledgerCaller client.LedgerCaller
}

func NewUserDomain(ledgerCaller client.LedgerCaller) *userDomain {
	return &userDomain{ledgerCaller: ledgerCaller}
}

func (d *userDomain) DailyCheckin(
	ctx context.Context, req *model.DailyCheckinRequest,
) (*model.DailyCheckinResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Not determined the request user")
	}

	result, err := d.ledgerCaller.DailyCheckin(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.DailyCheckinResponse{
		AlreadyCheckedIn: result.AlreadyCheckedIn,
		Reward:           result.Reward,
	}, nil
}
