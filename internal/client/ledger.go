package client

import (
	"context"
	"fmt"

	"github.com/prizelab/backend/internal/model"
	"github.com/prizelab/backend/pkg/api"
	"github.com/prizelab/backend/pkg/errorx"
	"github.com/prizelab/backend/pkg/ratelimiter"
	"github.com/prizelab/backend/pkg/xcontext"
)

// LedgerCaller wraps the authoritative balance-mutation service. The ledger
// owns all balance math; this client only translates responses. It performs no
// local retry: remote operations are not idempotent beyond what a reference id
// covers, so retrying is the caller's responsibility.
type LedgerCaller interface {
	AddCoins(ctx context.Context, userID string, amount uint64, source, refID string) (*model.LedgerResult, error)
	AddXP(ctx context.Context, userID string, amount uint64, source string) (*model.LedgerResult, error)
	SpendCoins(ctx context.Context, userID string, amount uint64, description string) (*model.LedgerResult, error)
	DailyCheckin(ctx context.Context, userID string) (*model.CheckinResult, error)
}

type ledgerCaller struct {
	generator api.Generator
	limiter   *ratelimiter.Limiter
}

func NewLedgerCaller(generator api.Generator, limiter *ratelimiter.Limiter) *ledgerCaller {
	return &ledgerCaller{generator: generator, limiter: limiter}
}

func (c *ledgerCaller) AddCoins(
	ctx context.Context, userID string, amount uint64, source, refID string,
) (*model.LedgerResult, error) {
	if err := c.allow(ctx, "add_coins", userID, source); err != nil {
		return nil, err
	}

	body := api.JSON{"user_id": userID, "amount": amount, "source": source}
	if refID != "" {
		body["ref_id"] = refID
	}

	resp, err := c.call(ctx, "add_coins", body)
	if err != nil {
		return nil, err
	}

	return c.toLedgerResult(ctx, resp)
}

func (c *ledgerCaller) AddXP(
	ctx context.Context, userID string, amount uint64, source string,
) (*model.LedgerResult, error) {
	if err := c.allow(ctx, "add_xp", userID, source); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, "add_xp", api.JSON{
		"user_id": userID,
		"amount":  amount,
		"source":  source,
	})
	if err != nil {
		return nil, err
	}

	result, err := c.toLedgerResult(ctx, resp)
	if err != nil {
		return nil, err
	}

	result.LeveledUp, _ = resp.GetBool("leveled_up")
	return result, nil
}

// SpendCoins presents the debit to the ledger as a single atomic attempt. On
// an insufficient-funds failure the balance is unchanged.
func (c *ledgerCaller) SpendCoins(
	ctx context.Context, userID string, amount uint64, description string,
) (*model.LedgerResult, error) {
	if err := c.allow(ctx, "spend_coins", userID, ""); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, "spend_coins", api.JSON{
		"user_id":     userID,
		"amount":      amount,
		"description": description,
	})
	if err != nil {
		return nil, err
	}

	return c.toLedgerResult(ctx, resp)
}

// DailyCheckin is idempotent per calendar day on the ledger side; a repeated
// check-in is a no-op success, not an error.
func (c *ledgerCaller) DailyCheckin(ctx context.Context, userID string) (*model.CheckinResult, error) {
	if err := c.allow(ctx, "daily_checkin", userID, ""); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, "daily_checkin", api.JSON{"user_id": userID})
	if err != nil {
		return nil, err
	}

	result := &model.CheckinResult{}
	result.AlreadyCheckedIn, _ = resp.GetBool("already_checked_in")
	result.Reward, _ = resp.GetInt64("reward")
	return result, nil
}

func (c *ledgerCaller) allow(ctx context.Context, operation, userID, source string) error {
	if source != "" && c.limiter.IsTrustedSource(source) {
		return nil
	}

	budget := xcontext.Configs(ctx).Ledger.MaxPerMinute
	if budget <= 0 {
		budget = 60
	}

	key := fmt.Sprintf("%s:%s", operation, userID)
	if !c.limiter.Allow(key, budget, ratelimiter.DefaultWindow) {
		return errorx.New(errorx.TooManyRequests, "Too many transactions, please slow down")
	}

	return nil
}

func (c *ledgerCaller) call(ctx context.Context, operation string, body api.JSON) (api.JSON, error) {
	resp, err := c.generator.New("/%s", operation).Body(body).POST(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot call ledger %s: %v", operation, err)
		return nil, errorx.New(errorx.Unavailable, "Ledger service is unreachable: %v", err)
	}

	success, err := resp.Body.GetBool("success")
	if err != nil {
		xcontext.Logger(ctx).Errorf("Invalid ledger %s response: %v", operation, err)
		return nil, errorx.New(errorx.BadResponse, "Invalid response of ledger service")
	}

	if !success {
		remoteErr, _ := resp.Body.GetString("error")
		if remoteErr == "insufficient_funds" {
			return nil, errorx.New(errorx.InsufficientFunds, "Not enough coins")
		}

		return nil, errorx.New(errorx.Unavailable, "Ledger rejected %s: %s", operation, remoteErr)
	}

	return resp.Body, nil
}

func (c *ledgerCaller) toLedgerResult(ctx context.Context, body api.JSON) (*model.LedgerResult, error) {
	balance, err := body.GetInt64("updated_balance")
	if err != nil {
		xcontext.Logger(ctx).Errorf("Invalid ledger balance: %v", err)
		return nil, errorx.New(errorx.BadResponse, "Invalid response of ledger service")
	}

	return &model.LedgerResult{UpdatedBalance: balance}, nil
}
