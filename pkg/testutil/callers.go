package testutil

import (
	"context"

	"github.com/prizelab/backend/internal/model"
)

type MockLedgerCaller struct {
	AddCoinsFunc     func(ctx context.Context, userID string, amount uint64, source, refID string) (*model.LedgerResult, error)
	AddXPFunc        func(ctx context.Context, userID string, amount uint64, source string) (*model.LedgerResult, error)
	SpendCoinsFunc   func(ctx context.Context, userID string, amount uint64, description string) (*model.LedgerResult, error)
	DailyCheckinFunc func(ctx context.Context, userID string) (*model.CheckinResult, error)
}

func (m *MockLedgerCaller) AddCoins(
	ctx context.Context, userID string, amount uint64, source, refID string,
) (*model.LedgerResult, error) {
	if m.AddCoinsFunc != nil {
		return m.AddCoinsFunc(ctx, userID, amount, source, refID)
	}

	return &model.LedgerResult{}, nil
}

func (m *MockLedgerCaller) AddXP(
	ctx context.Context, userID string, amount uint64, source string,
) (*model.LedgerResult, error) {
	if m.AddXPFunc != nil {
		return m.AddXPFunc(ctx, userID, amount, source)
	}

	return &model.LedgerResult{}, nil
}

func (m *MockLedgerCaller) SpendCoins(
	ctx context.Context, userID string, amount uint64, description string,
) (*model.LedgerResult, error) {
	if m.SpendCoinsFunc != nil {
		return m.SpendCoinsFunc(ctx, userID, amount, description)
	}

	return &model.LedgerResult{}, nil
}

func (m *MockLedgerCaller) DailyCheckin(ctx context.Context, userID string) (*model.CheckinResult, error) {
	if m.DailyCheckinFunc != nil {
		return m.DailyCheckinFunc(ctx, userID)
	}

	return &model.CheckinResult{}, nil
}

type MockInventoryCaller struct {
	GrantItemFunc func(ctx context.Context, userID, itemID, sourceRaffleID string) error
}

func (m *MockInventoryCaller) GrantItem(ctx context.Context, userID, itemID, sourceRaffleID string) error {
	if m.GrantItemFunc != nil {
		return m.GrantItemFunc(ctx, userID, itemID, sourceRaffleID)
	}

	return nil
}

type MockNotificationCaller struct {
	NotifyFunc func(ctx context.Context, userID, title, message string)
}

func (m *MockNotificationCaller) Notify(ctx context.Context, userID, title, message string) {
	if m.NotifyFunc != nil {
		m.NotifyFunc(ctx, userID, title, message)
	}
}
