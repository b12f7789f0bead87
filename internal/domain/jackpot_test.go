package domain

import (
	"context"
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

type jackpotTestSuite struct {
	ctx    context.Context
	db     *gorm.DB
	domain *jackpotDomain
	locker locker.Locker

	jackpotRepo        repository.JackpotRepository
	ledgerCaller       *testutil.MockLedgerCaller
	notificationCaller *testutil.MockNotificationCaller
}

func newJackpotTestSuite(t *testing.T, userID string) *jackpotTestSuite {
	t.Helper()

	suite := &jackpotTestSuite{
		db:                 testutil.CreateFixtureDb(),
		locker:             locker.NewMemoryLocker(),
		jackpotRepo:        repository.NewJackpotRepository(),
		ledgerCaller:       &testutil.MockLedgerCaller{},
		notificationCaller: &testutil.MockNotificationCaller{},
	}

	suite.ctx = testutil.NewMockContextWithUserID(suite.db, userID)
	suite.domain = NewJackpotDomain(suite.jackpotRepo,
		suite.ledgerCaller, suite.notificationCaller, suite.locker)

	return suite
}

func TestJackpotDomain_BuyTickets(t *testing.T) {
	suite := newJackpotTestSuite(t, "user1")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{CurrentValue: 1000, TicketPrice: 5})

	suite.ledgerCaller.SpendCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, description string,
	) (*model.LedgerResult, error) {
		require.Equal(t, uint64(20), amount)
		return &model.LedgerResult{UpdatedBalance: 80}, nil
	}

	resp, err := suite.domain.BuyTickets(suite.ctx, &model.BuyJackpotTicketsRequest{Quantity: 4})
	require.NoError(t, err)
	require.Equal(t, 4, resp.TicketsCreated)
	require.Equal(t, int64(80), resp.UpdatedBalance)

	// The whole cost of the tickets feeds the pool.
	updated, err := suite.jackpotRepo.GetByID(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1020), updated.CurrentValue)

	count, err := suite.jackpotRepo.CountTickets(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4), count)
}

func TestJackpotDomain_BuyTickets_Limits(t *testing.T) {
	suite := newJackpotTestSuite(t, "user1")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{
		GlobalTicketLimit:  10,
		PerUserTicketLimit: 3,
	})

	_, err := suite.domain.BuyTickets(suite.ctx, &model.BuyJackpotTicketsRequest{Quantity: 4})
	require.Error(t, err)
	require.Equal(t, errorx.LimitExceeded, err.(errorx.Error).Code)

	testutil.InsertJackpotTickets(suite.db, jackpot.ID, "user2", 8)

	// Only 2 tickets remain globally even though the per-user limit of
	// user1 would allow 3.
	_, err = suite.domain.BuyTickets(suite.ctx, &model.BuyJackpotTicketsRequest{Quantity: 3})
	require.Error(t, err)
	require.Equal(t, errorx.LimitExceeded, err.(errorx.Error).Code)

	_, err = suite.domain.BuyTickets(suite.ctx, &model.BuyJackpotTicketsRequest{Quantity: 2})
	require.NoError(t, err)
}

func TestJackpotDomain_BuyTickets_ClosedDuringApuration(t *testing.T) {
	suite := newJackpotTestSuite(t, "user1")
	testutil.SampleJackpot(suite.db, &entity.Jackpot{Status: entity.JackpotInApuration})

	_, err := suite.domain.BuyTickets(suite.ctx, &model.BuyJackpotTicketsRequest{Quantity: 1})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)
}

func TestJackpotDomain_Draw_ResetsPool(t *testing.T) {
	suite := newJackpotTestSuite(t, "operator")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{CurrentValue: 5000})
	testutil.InsertJackpotTickets(suite.db, jackpot.ID, "user1", 3)

	var creditedAmount uint64
	suite.ledgerCaller.AddCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, source, refID string,
	) (*model.LedgerResult, error) {
		require.Equal(t, "user1", userID)
		require.NotEmpty(t, refID)
		creditedAmount = amount
		return &model.LedgerResult{}, nil
	}

	resp, err := suite.domain.Draw(suite.ctx, &model.DrawJackpotRequest{})
	require.NoError(t, err)
	require.Equal(t, "user1", resp.WinnerID)
	require.Equal(t, uint64(5000), resp.PrizeAmount)
	require.Equal(t, uint64(5000), creditedAmount)

	// The pool resets to the configured baseline, the tickets are cleared
	// and the next draw is scheduled.
	updated, err := suite.jackpotRepo.GetByID(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), updated.CurrentValue)
	require.Equal(t, entity.JackpotActive, updated.Status)
	require.True(t, updated.NextDraw.After(jackpot.NextDraw))

	count, err := suite.jackpotRepo.CountTickets(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	rounds, err := suite.jackpotRepo.GetRounds(suite.ctx, jackpot.ID, 0)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	require.Equal(t, "user1", rounds[0].WinnerID)
	require.Equal(t, uint64(5000), rounds[0].PrizeAmount)
	require.Equal(t, 3, rounds[0].TotalTickets)
}

// hookLocker runs a callback right before delegating the acquisition, standing
// in for work that sneaks in ahead of the lock.
type hookLocker struct {
	locker.Locker
	onLock func()
}

func (h *hookLocker) Lock(ctx context.Context, key string) bool {
	if h.onLock != nil {
		h.onLock()
	}

	return h.Locker.Lock(ctx, key)
}

func TestJackpotDomain_Draw_PaysLateSales(t *testing.T) {
	suite := newJackpotTestSuite(t, "operator")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{CurrentValue: 2000})
	testutil.InsertJackpotTickets(suite.db, jackpot.ID, "user1", 2)

	// A purchase lands after the cycle was read but before sales close. The
	// coins it feeds into the pool belong to this round's winner.
	hooked := &hookLocker{Locker: suite.locker}
	hooked.onLock = func() {
		hooked.onLock = nil
		err := suite.jackpotRepo.IncreaseValue(suite.ctx, jackpot.ID, 500)
		require.NoError(t, err)
	}
	suite.domain.locker = hooked

	var creditedAmount uint64
	suite.ledgerCaller.AddCoinsFunc = func(
		ctx context.Context, userID string, amount uint64, source, refID string,
	) (*model.LedgerResult, error) {
		creditedAmount = amount
		return &model.LedgerResult{}, nil
	}

	resp, err := suite.domain.Draw(suite.ctx, &model.DrawJackpotRequest{})
	require.NoError(t, err)
	require.Equal(t, uint64(2500), resp.PrizeAmount)
	require.Equal(t, uint64(2500), creditedAmount)

	rounds, err := suite.jackpotRepo.GetRounds(suite.ctx, jackpot.ID, 0)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	require.Equal(t, uint64(2500), rounds[0].PrizeAmount)
}

func TestJackpotDomain_BuyTickets_ZeroLimitsUnlimited(t *testing.T) {
	suite := newJackpotTestSuite(t, "user1")

	// The sample cycle keeps both limits at zero, which disables them.
	jackpot := testutil.SampleJackpot(suite.db, nil)

	resp, err := suite.domain.BuyTickets(suite.ctx, &model.BuyJackpotTicketsRequest{Quantity: 500})
	require.NoError(t, err)
	require.Equal(t, 500, resp.TicketsCreated)

	count, err := suite.jackpotRepo.CountTickets(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), count)
}

func TestJackpotDomain_Draw_NotActive(t *testing.T) {
	suite := newJackpotTestSuite(t, "operator")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{Status: entity.JackpotInApuration})
	testutil.InsertJackpotTickets(suite.db, jackpot.ID, "user1", 1)

	_, err := suite.domain.Draw(suite.ctx, &model.DrawJackpotRequest{})
	require.Error(t, err)
	require.Equal(t, errorx.DrawInProgress, err.(errorx.Error).Code)
}

func TestJackpotDomain_Draw_NoTickets(t *testing.T) {
	suite := newJackpotTestSuite(t, "operator")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{CurrentValue: 2500})

	_, err := suite.domain.Draw(suite.ctx, &model.DrawJackpotRequest{})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)

	// An empty round rolls over: the pool keeps its value and sales reopen.
	updated, err := suite.jackpotRepo.GetByID(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(2500), updated.CurrentValue)
	require.Equal(t, entity.JackpotActive, updated.Status)
	require.True(t, updated.NextDraw.After(jackpot.NextDraw))
}

func TestJackpotDomain_EditRunningCycle_MergesLimits(t *testing.T) {
	suite := newJackpotTestSuite(t, "operator")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{
		GlobalTicketLimit:  100,
		PerUserTicketLimit: 10,
	})

	perUser := 5
	_, err := suite.domain.EditRunningCycle(suite.ctx, &model.EditJackpotCycleRequest{
		TicketLimits: &struct {
			Global  *int `json:"global"`
			PerUser *int `json:"per_user"`
		}{PerUser: &perUser},
	})
	require.NoError(t, err)

	updated, err := suite.jackpotRepo.GetByID(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, 100, updated.GlobalTicketLimit)
	require.Equal(t, 5, updated.PerUserTicketLimit)
}

func TestJackpotDomain_EditRunningCycle_PartialUpdate(t *testing.T) {
	suite := newJackpotTestSuite(t, "operator")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{
		CurrentValue: 1000,
		TicketPrice:  5,
	})

	newValue := uint64(3000)
	nextDraw := time.Now().Add(48 * time.Hour)
	_, err := suite.domain.EditRunningCycle(suite.ctx, &model.EditJackpotCycleRequest{
		NewValue: &newValue,
		NextDraw: &nextDraw,
	})
	require.NoError(t, err)

	updated, err := suite.jackpotRepo.GetByID(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(3000), updated.CurrentValue)
	require.Equal(t, uint64(5), updated.TicketPrice)
	require.WithinDuration(t, nextDraw, updated.NextDraw, time.Second)
}

func TestJackpotDomain_Inject(t *testing.T) {
	suite := newJackpotTestSuite(t, "operator")
	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{CurrentValue: 1000})

	_, err := suite.domain.Inject(suite.ctx, &model.InjectJackpotRequest{Amount: 0})
	require.Error(t, err)
	require.Equal(t, errorx.BadRequest, err.(errorx.Error).Code)

	resp, err := suite.domain.Inject(suite.ctx, &model.InjectJackpotRequest{Amount: 500})
	require.NoError(t, err)
	require.Equal(t, uint64(1500), resp.CurrentValue)

	updated, err := suite.jackpotRepo.GetByID(suite.ctx, jackpot.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(1500), updated.CurrentValue)
}

func TestJackpotDomain_ScheduleNewCycle(t *testing.T) {
	suite := newJackpotTestSuite(t, "operator")
	now := time.Now()

	resp, err := suite.domain.ScheduleNewCycle(suite.ctx, &model.ScheduleJackpotCycleRequest{
		StartsAt:    now.Add(time.Hour),
		EndsAt:      now.Add(7 * 24 * time.Hour),
		TicketPrice: 5,
	})
	require.NoError(t, err)

	created, err := suite.jackpotRepo.GetByID(suite.ctx, resp.ID)
	require.NoError(t, err)
	require.Equal(t, entity.JackpotWaitingStart, created.Status)

	// Without an explicit initial value the cycle starts at the baseline.
	require.Equal(t, uint64(1000), created.CurrentValue)
}

func TestJackpotDomain_Get(t *testing.T) {
	suite := newJackpotTestSuite(t, "user1")

	_, err := suite.domain.Get(suite.ctx, &model.GetJackpotRequest{})
	require.Error(t, err)
	require.Equal(t, errorx.NotFound, err.(errorx.Error).Code)

	jackpot := testutil.SampleJackpot(suite.db, &entity.Jackpot{CurrentValue: 1234})
	testutil.InsertJackpotTickets(suite.db, jackpot.ID, "user1", 2)

	resp, err := suite.domain.Get(suite.ctx, &model.GetJackpotRequest{})
	require.NoError(t, err)
	require.Equal(t, jackpot.ID, resp.Jackpot.ID)
	require.Equal(t, uint64(1234), resp.Jackpot.CurrentValue)
	require.Equal(t, int64(2), resp.Jackpot.TotalTickets)
}
