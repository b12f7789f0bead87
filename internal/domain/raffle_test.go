package domain

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/internal/model"
	"github.com/prizelab/backend/internal/repository"
	"github.com/prizelab/backend/pkg/errorx"
	"github.com/prizelab/backend/pkg/locker"
	"github.com/prizelab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type raffleTestSuite struct {
	ctx    context.Context
	db     *gorm.DB
	domain *raffleDomain
	locker locker.Locker

	raffleRepo  repository.RaffleRepository
	receiptRepo repository.DrawReceiptRepository

	ledgerCaller       *testutil.MockLedgerCaller
	inventoryCaller    *testutil.MockInventoryCaller
	notificationCaller *testutil.MockNotificationCaller
}

func newRaffleTestSuite(t *testing.T, userID string) *raffleTestSuite {
	t.Helper()

	suite := &raffleTestSuite{
		db:                 testutil.CreateFixtureDb(),
		locker:             locker.NewMemoryLocker(),
		raffleRepo:         repository.NewRaffleRepository(),
		receiptRepo:        repository.NewDrawReceiptRepository(),
		ledgerCaller:       &testutil.MockLedgerCaller{},
		inventoryCaller:    &testutil.MockInventoryCaller{},
		notificationCaller: &testutil.MockNotificationCaller{},
	}

	suite.ctx = testutil.NewMockContextWithUserID(suite.db, userID)
	suite.domain = NewRaffleDomain(suite.raffleRepo, suite.receiptRepo,
		suite.ledgerCaller, suite.inventoryCaller, suite.notificationCaller, suite.locker)

	return suite
}

func TestRaffleDomain_BuyTickets(t *testing.T) {
	suite := newRaffleTestSuite(t, "user1")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{TicketPrice: 10})

	var spentAmount uint64
	suite.ledgerCaller.SpendCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, description string,
	) (*model.LedgerResult, error) {
		spentAmount = amount
		return &model.LedgerResult{UpdatedBalance: 970}, nil
	}

	resp, err := suite.domain.BuyTickets(suite.ctx, &model.BuyRaffleTicketsRequest{
		RaffleID: raffle.ID,
		Quantity: 3,
	})
	require.NoError(t, err)
	require.Equal(t, 3, resp.TicketsCreated)
	require.Equal(t, int64(970), resp.UpdatedBalance)
	require.Equal(t, uint64(30), spentAmount)

	count, err := suite.raffleRepo.CountTicketsByUserID(suite.ctx, raffle.ID, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestRaffleDomain_BuyTickets_PerUserLimit(t *testing.T) {
	suite := newRaffleTestSuite(t, "user1")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{TicketLimitPerUser: 5})

	_, err := suite.domain.BuyTickets(suite.ctx, &model.BuyRaffleTicketsRequest{
		RaffleID: raffle.ID,
		Quantity: 3,
	})
	require.NoError(t, err)

	debited := false
	suite.ledgerCaller.SpendCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, description string,
	) (*model.LedgerResult, error) {
		debited = true
		return &model.LedgerResult{}, nil
	}

	// The second purchase would exceed the limit of 5 and must be rejected
	// before any coin is debited.
	_, err = suite.domain.BuyTickets(suite.ctx, &model.BuyRaffleTicketsRequest{
		RaffleID: raffle.ID,
		Quantity: 3,
	})
	require.Error(t, err)
	require.Equal(t, errorx.LimitExceeded, err.(errorx.Error).Code)
	require.False(t, debited)

	count, err := suite.raffleRepo.CountTicketsByUserID(suite.ctx, raffle.ID, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestRaffleDomain_BuyTickets_ZeroLimitUnlimited(t *testing.T) {
	suite := newRaffleTestSuite(t, "user1")

	// The sample raffle keeps the zero limit, which disables the per-user cap.
	raffle := testutil.SampleRaffle(suite.db, nil)
	_, err := suite.domain.BuyTickets(suite.ctx, &model.BuyRaffleTicketsRequest{
		RaffleID: raffle.ID,
		Quantity: 500,
	})
	require.NoError(t, err)

	count, err := suite.raffleRepo.CountTicketsByUserID(suite.ctx, raffle.ID, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(500), count)
}

func TestRaffleDomain_BuyTickets_InsufficientFunds(t *testing.T) {
	suite := newRaffleTestSuite(t, "user1")
	raffle := testutil.SampleRaffle(suite.db, nil)

	suite.ledgerCaller.SpendCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, description string,
	) (*model.LedgerResult, error) {
		return nil, errorx.New(errorx.InsufficientFunds, "Not enough coins")
	}

	_, err := suite.domain.BuyTickets(suite.ctx, &model.BuyRaffleTicketsRequest{
		RaffleID: raffle.ID,
		Quantity: 1,
	})
	require.Error(t, err)
	require.Equal(t, errorx.InsufficientFunds, err.(errorx.Error).Code)

	count, err := suite.raffleRepo.CountTickets(suite.ctx, raffle.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestRaffleDomain_BuyTickets_NotActive(t *testing.T) {
	suite := newRaffleTestSuite(t, "user1")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})

	_, err := suite.domain.BuyTickets(suite.ctx, &model.BuyRaffleTicketsRequest{
		RaffleID: raffle.ID,
		Quantity: 1,
	})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)
}

func TestRaffleDomain_ConfirmWinner(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user1", 4)

	var creditedRef string
	var creditedAmount uint64
	suite.ledgerCaller.AddCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, source, refID string,
	) (*model.LedgerResult, error) {
		creditedRef = refID
		creditedAmount = amount
		return &model.LedgerResult{}, nil
	}

	resp, err := suite.domain.ConfirmWinner(suite.ctx, &model.ConfirmRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-1",
	})
	require.NoError(t, err)
	require.Equal(t, "user1", resp.WinnerID)
	require.Equal(t, int64(500), resp.PrizePlan.CoinAmount)
	require.Equal(t, "draw-1", creditedRef)
	require.Equal(t, uint64(500), creditedAmount)

	updated, err := suite.raffleRepo.GetByID(suite.ctx, raffle.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleFinished, updated.Status)
	require.Equal(t, "user1", updated.WinnerID.String)
	require.True(t, updated.WinnerDefinedAt.Valid)

	receipt, err := suite.receiptRepo.GetByRefID(suite.ctx, "draw-1")
	require.NoError(t, err)
	require.Equal(t, "user1", receipt.WinnerID)
	require.Equal(t, raffle.ID, receipt.ResourceID)
}

func TestRaffleDomain_ConfirmWinner_Idempotent(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user1", 1)
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user2", 1)

	credits := 0
	suite.ledgerCaller.AddCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, source, refID string,
	) (*model.LedgerResult, error) {
		credits++
		return &model.LedgerResult{}, nil
	}

	req := &model.ConfirmRaffleWinnerRequest{RaffleID: raffle.ID, RefID: "draw-1"}
	first, err := suite.domain.ConfirmWinner(suite.ctx, req)
	require.NoError(t, err)

	second, err := suite.domain.ConfirmWinner(suite.ctx, req)
	require.NoError(t, err)
	require.Equal(t, first.WinnerID, second.WinnerID)
	require.Equal(t, first.PrizePlan, second.PrizePlan)
	require.Equal(t, 1, credits)
}

func TestRaffleDomain_ConfirmWinner_DifferentRefAfterDraw(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user1", 1)

	_, err := suite.domain.ConfirmWinner(suite.ctx, &model.ConfirmRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-1",
	})
	require.NoError(t, err)

	_, err = suite.domain.ConfirmWinner(suite.ctx, &model.ConfirmRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-2",
	})
	require.Error(t, err)
	require.Equal(t, errorx.AlreadyDrawn, err.(errorx.Error).Code)
}

func TestRaffleDomain_ConfirmWinner_LostRaceReturnsCommitted(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user1", 1)

	// A second instance shares the database but not the locker, like two api
	// processes running with the memory lock driver.
	otherCtx := testutil.NewMockContextWithUserID(suite.db, "operator")
	other := NewRaffleDomain(suite.raffleRepo, suite.receiptRepo,
		&testutil.MockLedgerCaller{}, suite.inventoryCaller, suite.notificationCaller,
		locker.NewMemoryLocker())

	req := &model.ConfirmRaffleWinnerRequest{RaffleID: raffle.ID, RefID: "draw-1"}

	// The other instance commits the same reference id while this one is
	// still waiting on the ledger credit.
	raced := false
	suite.ledgerCaller.AddCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, source, refID string,
	) (*model.LedgerResult, error) {
		if !raced {
			raced = true
			_, err := other.ConfirmWinner(otherCtx, req)
			require.NoError(t, err)
		}

		return &model.LedgerResult{}, nil
	}

	resp, err := suite.domain.ConfirmWinner(suite.ctx, req)
	require.NoError(t, err)
	require.Equal(t, "user1", resp.WinnerID)

	receipt, err := suite.receiptRepo.GetByRefID(suite.ctx, "draw-1")
	require.NoError(t, err)
	require.Equal(t, receipt.WinnerID, resp.WinnerID)
}

func TestRaffleDomain_ConfirmWinner_LockHeld(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user1", 1)

	require.True(t, suite.locker.Lock(suite.ctx, "draw:"+raffle.ID))
	defer suite.locker.Unlock(suite.ctx, "draw:"+raffle.ID)

	_, err := suite.domain.ConfirmWinner(suite.ctx, &model.ConfirmRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-1",
	})
	require.Error(t, err)
	require.Equal(t, errorx.DrawInProgress, err.(errorx.Error).Code)
}

func TestRaffleDomain_ConfirmWinner_Forced(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user1", 10)
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user2", 1)

	_, err := suite.domain.ConfirmWinner(suite.ctx, &model.ConfirmRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-1",
		WinnerID: "nobody",
	})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)

	resp, err := suite.domain.ConfirmWinner(suite.ctx, &model.ConfirmRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-1",
		WinnerID: "user2",
	})
	require.NoError(t, err)
	require.Equal(t, "user2", resp.WinnerID)
}

func TestRaffleDomain_PreviewMatchesConfirm(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user1", 3)
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user2", 3)
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user3", 3)

	preview, err := suite.domain.PreviewWinner(suite.ctx, &model.PreviewRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-1",
	})
	require.NoError(t, err)

	confirm, err := suite.domain.ConfirmWinner(suite.ctx, &model.ConfirmRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-1",
	})
	require.NoError(t, err)
	require.Equal(t, preview.WinnerID, confirm.WinnerID)

	// Preview after the draw resolves to the recorded receipt.
	again, err := suite.domain.PreviewWinner(suite.ctx, &model.PreviewRaffleWinnerRequest{
		RaffleID: raffle.ID,
		RefID:    "draw-1",
	})
	require.NoError(t, err)
	require.Equal(t, confirm.WinnerID, again.WinnerID)
}

func TestRaffleDomain_PickTicket_Weighted(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	raffle := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleAwaitingDraw})
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user1", 1)
	testutil.InsertRaffleTickets(suite.db, raffle.ID, "user2", 99)

	wins := map[string]int{}
	for i := 0; i < 2000; i++ {
		ticket, err := suite.domain.pickTicket(suite.ctx, raffle.ID, fmt.Sprintf("ref-%d", i))
		require.NoError(t, err)
		wins[ticket.UserID]++
	}

	// user2 holds 99% of the tickets and must win about 99% of the time.
	require.Greater(t, wins["user2"], 1900)
}

func TestRaffleDomain_Delete(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")

	active := testutil.SampleRaffle(suite.db, nil)
	_, err := suite.domain.Delete(suite.ctx, &model.DeleteRaffleRequest{RaffleID: active.ID})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)

	ended := testutil.SampleRaffle(suite.db, &entity.Raffle{Status: entity.RaffleEnded})
	testutil.InsertRaffleTickets(suite.db, ended.ID, "user1", 2)

	_, err = suite.domain.Delete(suite.ctx, &model.DeleteRaffleRequest{RaffleID: ended.ID})
	require.NoError(t, err)

	_, err = suite.raffleRepo.GetByID(suite.ctx, ended.ID)
	require.Error(t, err)
}

func TestRaffleDomain_Create(t *testing.T) {
	suite := newRaffleTestSuite(t, "operator")
	now := time.Now()

	_, err := suite.domain.Create(suite.ctx, &model.CreateRaffleRequest{
		Title:       "Weekly raffle",
		TicketPrice: 10,
		StartsAt:    now,
		EndsAt:      now.Add(24 * time.Hour),
		PrizeType:   "nft",
		PrizeConfig: map[string]any{},
	})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)

	// A free ticket would mint unlimited entries, so the price must be set.
	_, err = suite.domain.Create(suite.ctx, &model.CreateRaffleRequest{
		Title:       "Weekly raffle",
		TicketPrice: 0,
		StartsAt:    now,
		EndsAt:      now.Add(24 * time.Hour),
		PrizeType:   "coins",
		PrizeConfig: map[string]any{"amount": 100},
	})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)

	resp, err := suite.domain.Create(suite.ctx, &model.CreateRaffleRequest{
		Title:       "Weekly raffle",
		TicketPrice: 10,
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(24 * time.Hour),
		PrizeType:   "coins",
		PrizeConfig: map[string]any{"amount": 100},
	})
	require.NoError(t, err)

	created, err := suite.raffleRepo.GetByID(suite.ctx, resp.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleActive, created.Status)
}
