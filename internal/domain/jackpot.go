package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prizelab/backend/internal/client"
	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/internal/model"
	"github.com/prizelab/backend/internal/repository"
	"github.com/prizelab/backend/pkg/crypto"
	"github.com/prizelab/backend/pkg/errorx"
	"github.com/prizelab/backend/pkg/locker"
	"github.com/prizelab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

const jackpotHistoryLimit = 10

type JackpotDomain interface {
	Get(ctx context.Context, req *model.GetJackpotRequest) (*model.GetJackpotResponse, error)
	ScheduleNewCycle(ctx context.Context, req *model.ScheduleJackpotCycleRequest) (*model.ScheduleJackpotCycleResponse, error)
	EditRunningCycle(ctx context.Context, req *model.EditJackpotCycleRequest) (*model.EditJackpotCycleResponse, error)
	Inject(ctx context.Context, req *model.InjectJackpotRequest) (*model.InjectJackpotResponse, error)
	BuyTickets(ctx context.Context, req *model.BuyJackpotTicketsRequest) (*model.BuyJackpotTicketsResponse, error)
	Draw(ctx context.Context, req *model.DrawJackpotRequest) (*model.DrawJackpotResponse, error)
}

type jackpotDomain struct {
	jackpotRepo        repository.JackpotRepository
	ledgerCaller       client.LedgerCaller
	notificationCaller client.NotificationCaller
	locker             locker.Locker
}

func NewJackpotDomain(
	jackpotRepo repository.JackpotRepository,
	ledgerCaller client.LedgerCaller,
	notificationCaller client.NotificationCaller,
	locker locker.Locker,
) *jackpotDomain {
	return &jackpotDomain{
		jackpotRepo:        jackpotRepo,
		ledgerCaller:       ledgerCaller,
		notificationCaller: notificationCaller,
		locker:             locker,
	}
}

func (d *jackpotDomain) Get(
	ctx context.Context, req *model.GetJackpotRequest,
) (*model.GetJackpotResponse, error) {
	jackpot, err := d.getCurrent(ctx)
	if err != nil {
		return nil, err
	}

	count, err := d.jackpotRepo.CountTickets(ctx, jackpot.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count jackpot tickets: %v", err)
		return nil, errorx.Unknown
	}

	rounds, err := d.jackpotRepo.GetRounds(ctx, jackpot.ID, jackpotHistoryLimit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get jackpot rounds: %v", err)
		return nil, errorx.Unknown
	}

	history := []model.JackpotRound{}
	for i := range rounds {
		history = append(history, convertJackpotRound(&rounds[i]))
	}

	return &model.GetJackpotResponse{
		Jackpot: convertJackpot(jackpot, count),
		History: history,
	}, nil
}

func (d *jackpotDomain) ScheduleNewCycle(
	ctx context.Context, req *model.ScheduleJackpotCycleRequest,
) (*model.ScheduleJackpotCycleResponse, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, errorx.New(errorx.BadRequest, "Cycle must end after it starts")
	}

	if req.TicketPrice == 0 {
		return nil, errorx.New(errorx.BadRequest, "Not allow a free jackpot ticket")
	}

	initialValue := req.InitialValue
	if initialValue == 0 {
		initialValue = xcontext.Configs(ctx).Jackpot.BaselineValue
	}

	status := entity.JackpotWaitingStart
	now := time.Now()
	if !now.Before(req.StartsAt) {
		status = entity.JackpotActive
	}

	jackpot := &entity.Jackpot{
		Base:          entity.Base{ID: uuid.NewString()},
		CurrentValue:  initialValue,
		TicketPrice:   req.TicketPrice,
		Status:        status,
		NextDraw:      req.EndsAt,
		NextStartDate: req.StartsAt,
	}

	if err := d.jackpotRepo.Create(ctx, jackpot); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create jackpot cycle: %v", err)
		return nil, errorx.Unknown
	}

	return &model.ScheduleJackpotCycleResponse{ID: jackpot.ID}, nil
}

// EditRunningCycle applies a partial update. The ticket limits merge field by
// field so editing one limit never erases the other.
func (d *jackpotDomain) EditRunningCycle(
	ctx context.Context, req *model.EditJackpotCycleRequest,
) (*model.EditJackpotCycleResponse, error) {
	jackpot, err := d.getCurrent(ctx)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.NewValue != nil {
		updates["current_value"] = *req.NewValue
	}

	if req.NextDraw != nil {
		updates["next_draw"] = *req.NextDraw
	}

	if req.TicketPrice != nil {
		if *req.TicketPrice == 0 {
			return nil, errorx.New(errorx.BadRequest, "Not allow a free jackpot ticket")
		}

		updates["ticket_price"] = *req.TicketPrice
	}

	if req.TicketLimits != nil {
		if req.TicketLimits.Global != nil {
			updates["global_ticket_limit"] = *req.TicketLimits.Global
		}

		if req.TicketLimits.PerUser != nil {
			updates["per_user_ticket_limit"] = *req.TicketLimits.PerUser
		}
	}

	if len(updates) == 0 {
		return &model.EditJackpotCycleResponse{}, nil
	}

	if err := d.jackpotRepo.Update(ctx, jackpot.ID, updates); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update jackpot cycle: %v", err)
		return nil, errorx.Unknown
	}

	return &model.EditJackpotCycleResponse{}, nil
}

func (d *jackpotDomain) Inject(
	ctx context.Context, req *model.InjectJackpotRequest,
) (*model.InjectJackpotResponse, error) {
	if req.Amount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Injected amount must be positive")
	}

	jackpot, err := d.getCurrent(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.jackpotRepo.IncreaseValue(ctx, jackpot.ID, uint64(req.Amount)); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot increase jackpot value: %v", err)
		return nil, errorx.Unknown
	}

	return &model.InjectJackpotResponse{
		CurrentValue: jackpot.CurrentValue + uint64(req.Amount),
	}, nil
}

func (d *jackpotDomain) BuyTickets(
	ctx context.Context, req *model.BuyJackpotTicketsRequest,
) (*model.BuyJackpotTicketsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Not determined the request user")
	}

	if req.Quantity <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Quantity must be positive")
	}

	jackpot, err := d.getCurrent(ctx)
	if err != nil {
		return nil, err
	}

	// Sales are closed while a draw is being settled.
	if jackpot.Status != entity.JackpotActive {
		return nil, errorx.New(errorx.BadRequest, "Jackpot is not open for sales")
	}

	if jackpot.GlobalTicketLimit > 0 {
		sold, err := d.jackpotRepo.CountTickets(ctx, jackpot.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count jackpot tickets: %v", err)
			return nil, errorx.Unknown
		}

		if sold+int64(req.Quantity) > int64(jackpot.GlobalTicketLimit) {
			return nil, errorx.New(errorx.LimitExceeded, "Not enough tickets left")
		}
	}

	if jackpot.PerUserTicketLimit > 0 {
		owned, err := d.jackpotRepo.CountTicketsByUserID(ctx, jackpot.ID, userID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count user jackpot tickets: %v", err)
			return nil, errorx.Unknown
		}

		if owned+int64(req.Quantity) > int64(jackpot.PerUserTicketLimit) {
			return nil, errorx.New(errorx.LimitExceeded,
				"Not allow more than %d tickets per user", jackpot.PerUserTicketLimit)
		}
	}

	cost := jackpot.TicketPrice * uint64(req.Quantity)
	result, err := d.ledgerCaller.SpendCoins(ctx, userID, cost,
		fmt.Sprintf("Buy %d jackpot tickets", req.Quantity))
	if err != nil {
		return nil, err
	}

	tickets := make([]*entity.JackpotTicket, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		tickets = append(tickets, &entity.JackpotTicket{
			Base:      entity.Base{ID: uuid.NewString()},
			JackpotID: jackpot.ID,
			UserID:    userID,
		})
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.jackpotRepo.CreateTickets(ctx, tickets); err != nil {
		// The debit already went through, so this failure needs a manual
		// reconciliation against the ledger history.
		xcontext.Logger(ctx).Errorf(
			"Cannot persist %d jackpot tickets of user %s after a successful debit: %v",
			req.Quantity, userID, err)
		return nil, errorx.Unknown
	}

	// Every coin spent on tickets feeds the pool.
	if err := d.jackpotRepo.IncreaseValue(ctx, jackpot.ID, cost); err != nil {
		xcontext.Logger(ctx).Errorf(
			"Cannot grow the pool after a successful debit of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)
	return &model.BuyJackpotTicketsResponse{
		TicketsCreated: req.Quantity,
		UpdatedBalance: result.UpdatedBalance,
	}, nil
}

// Draw settles the current round: it pays the whole pool to one uniformly
// drawn ticket, archives the round, clears the tickets, and resets the pool to
// the configured baseline.
func (d *jackpotDomain) Draw(
	ctx context.Context, req *model.DrawJackpotRequest,
) (*model.DrawJackpotResponse, error) {
	jackpot, err := d.getCurrent(ctx)
	if err != nil {
		return nil, err
	}

	lockKey := "draw:jackpot:" + jackpot.ID
	if !d.locker.Lock(ctx, lockKey) {
		return nil, errorx.New(errorx.DrawInProgress, "Another draw is in progress")
	}
	defer d.locker.Unlock(ctx, lockKey)

	// The guarded transition closes sales and serializes draws even across
	// processes that do not share the locker.
	err = d.jackpotRepo.UpdateStatus(ctx, jackpot.ID, entity.JackpotActive, entity.JackpotInApuration)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.DrawInProgress, "Jackpot is not ready for a draw")
		}

		xcontext.Logger(ctx).Errorf("Cannot transition jackpot status: %v", err)
		return nil, errorx.Unknown
	}

	// A purchase may have grown the pool between the first read and the
	// transition above, so the prize is only read once sales are closed.
	jackpot, err = d.jackpotRepo.GetByID(ctx, jackpot.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot reload jackpot cycle: %v", err)
		return nil, errorx.Unknown
	}

	count, err := d.jackpotRepo.CountTickets(ctx, jackpot.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count jackpot tickets: %v", err)
		return nil, errorx.Unknown
	}

	configs := xcontext.Configs(ctx).Jackpot
	if count == 0 {
		// Nothing to settle. The pool carries over to the next round.
		err := d.jackpotRepo.Update(ctx, jackpot.ID, map[string]any{
			"status":    entity.JackpotActive,
			"next_draw": d.nextDrawTime(jackpot, configs.DrawInterval.Duration),
		})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot roll over empty jackpot round: %v", err)
			return nil, errorx.Unknown
		}

		return nil, errorx.New(errorx.BadRequest, "Jackpot has no tickets to draw from")
	}

	ticket, err := d.jackpotRepo.GetTicketByOffset(ctx, jackpot.ID, crypto.RandIntn(int(count)))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get the drawn jackpot ticket: %v", err)
		return nil, errorx.Unknown
	}

	prize := jackpot.CurrentValue
	refID := uuid.NewString()
	_, err = d.ledgerCaller.AddCoins(ctx, ticket.UserID, prize, "system:jackpot:"+jackpot.ID, refID)
	if err != nil {
		// Leave the jackpot in apuration so an operator resolves it instead
		// of a second draw silently picking another winner.
		xcontext.Logger(ctx).Errorf("Cannot pay jackpot prize (ref %s): %v", refID, err)
		return nil, err
	}

	now := time.Now()
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	err = d.jackpotRepo.CreateRound(ctx, &entity.JackpotRound{
		Base:         entity.Base{ID: uuid.NewString()},
		JackpotID:    jackpot.ID,
		WinnerID:     ticket.UserID,
		PrizeAmount:  prize,
		TotalTickets: int(count),
		DrawnAt:      now,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot archive jackpot round: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.jackpotRepo.DeleteTickets(ctx, jackpot.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot clear jackpot tickets: %v", err)
		return nil, errorx.Unknown
	}

	err = d.jackpotRepo.Update(ctx, jackpot.ID, map[string]any{
		"current_value": configs.BaselineValue,
		"status":        entity.JackpotActive,
		"next_draw":     d.nextDrawTime(jackpot, configs.DrawInterval.Duration),
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot reset jackpot cycle: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	d.notificationCaller.Notify(ctx, ticket.UserID,
		"You won the jackpot!", fmt.Sprintf("The jackpot of %d coins is yours", prize))

	return &model.DrawJackpotResponse{
		WinnerID:    ticket.UserID,
		PrizeAmount: prize,
	}, nil
}

func (d *jackpotDomain) getCurrent(ctx context.Context) (*entity.Jackpot, error) {
	jackpot, err := d.jackpotRepo.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "No jackpot cycle exists")
		}

		xcontext.Logger(ctx).Errorf("Cannot get current jackpot: %v", err)
		return nil, errorx.Unknown
	}

	return jackpot, nil
}

// nextDrawTime keeps the draw cadence anchored to the schedule, falling back
// to counting from now when the previous draw ran late by more than a full
// interval.
func (d *jackpotDomain) nextDrawTime(jackpot *entity.Jackpot, interval time.Duration) time.Time {
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}

	next := jackpot.NextDraw.Add(interval)
	if now := time.Now(); next.Before(now) {
		next = now.Add(interval)
	}

	return next
}
