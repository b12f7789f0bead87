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

type RaffleDomain interface {
	Create(ctx context.Context, req *model.CreateRaffleRequest) (*model.CreateRaffleResponse, error)
	Get(ctx context.Context, req *model.GetRaffleRequest) (*model.GetRaffleResponse, error)
	GetMyTickets(ctx context.Context, req *model.GetMyRaffleTicketsRequest) (*model.GetMyRaffleTicketsResponse, error)
	BuyTickets(ctx context.Context, req *model.BuyRaffleTicketsRequest) (*model.BuyRaffleTicketsResponse, error)
	PreviewWinner(ctx context.Context, req *model.PreviewRaffleWinnerRequest) (*model.PreviewRaffleWinnerResponse, error)
	ConfirmWinner(ctx context.Context, req *model.ConfirmRaffleWinnerRequest) (*model.ConfirmRaffleWinnerResponse, error)
	Delete(ctx context.Context, req *model.DeleteRaffleRequest) (*model.DeleteRaffleResponse, error)
}

type raffleDomain struct {
	raffleRepo         repository.RaffleRepository
	receiptRepo        repository.DrawReceiptRepository
	ledgerCaller       client.LedgerCaller
	inventoryCaller    client.InventoryCaller
	notificationCaller client.NotificationCaller
	locker             locker.Locker
}

func NewRaffleDomain(
	raffleRepo repository.RaffleRepository,
	receiptRepo repository.DrawReceiptRepository,
	ledgerCaller client.LedgerCaller,
	inventoryCaller client.InventoryCaller,
	notificationCaller client.NotificationCaller,
	locker locker.Locker,
) *raffleDomain {
	return &raffleDomain{
		raffleRepo:         raffleRepo,
		receiptRepo:        receiptRepo,
		ledgerCaller:       ledgerCaller,
		inventoryCaller:    inventoryCaller,
		notificationCaller: notificationCaller,
		locker:             locker,
	}
}

func (d *raffleDomain) Create(
	ctx context.Context, req *model.CreateRaffleRequest,
) (*model.CreateRaffleResponse, error) {
	if req.Title == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty title")
	}

	if !req.EndsAt.After(req.StartsAt) {
		return nil, errorx.New(errorx.BadRequest, "Raffle must end after it starts")
	}

	if req.TicketPrice == 0 {
		return nil, errorx.New(errorx.BadRequest, "Not allow a free raffle ticket")
	}

	if req.TicketLimitPerUser < 0 {
		return nil, errorx.New(errorx.BadRequest, "Not allow a negative ticket limit")
	}

	prizeType := entity.PrizeType(req.PrizeType)
	if _, err := resolvePrize(prizeType, entity.Map(req.PrizeConfig)); err != nil {
		return nil, err
	}

	status := entity.RaffleScheduled
	now := time.Now()
	if !now.Before(req.StartsAt) && now.Before(req.EndsAt) {
		status = entity.RaffleActive
	}

	raffle := &entity.Raffle{
		Base:               entity.Base{ID: uuid.NewString()},
		Title:              req.Title,
		TicketPrice:        req.TicketPrice,
		TicketLimitPerUser: req.TicketLimitPerUser,
		StartsAt:           req.StartsAt,
		EndsAt:             req.EndsAt,
		Status:             status,
		PrizeType:          prizeType,
		PrizeConfig:        entity.Map(req.PrizeConfig),
	}

	if err := d.raffleRepo.Create(ctx, raffle); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create raffle: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateRaffleResponse{ID: raffle.ID}, nil
}

func (d *raffleDomain) Get(
	ctx context.Context, req *model.GetRaffleRequest,
) (*model.GetRaffleResponse, error) {
	raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	count, err := d.raffleRepo.CountTickets(ctx, raffle.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count raffle tickets: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetRaffleResponse{
		Raffle:       convertRaffle(raffle),
		TotalTickets: count,
	}, nil
}

func (d *raffleDomain) GetMyTickets(
	ctx context.Context, req *model.GetMyRaffleTicketsRequest,
) (*model.GetMyRaffleTicketsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Not determined the request user")
	}

	tickets, err := d.raffleRepo.GetTicketsByUserID(ctx, req.RaffleID, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle tickets: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.RaffleTicket{}
	for i := range tickets {
		result = append(result, convertRaffleTicket(&tickets[i]))
	}

	return &model.GetMyRaffleTicketsResponse{Tickets: result}, nil
}

func (d *raffleDomain) BuyTickets(
	ctx context.Context, req *model.BuyRaffleTicketsRequest,
) (*model.BuyRaffleTicketsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Not determined the request user")
	}

	if req.Quantity <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Quantity must be positive")
	}

	raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	if raffle.Status != entity.RaffleActive {
		return nil, errorx.New(errorx.BadRequest, "Raffle is not open for sales")
	}

	if raffle.TicketLimitPerUser > 0 {
		owned, err := d.raffleRepo.CountTicketsByUserID(ctx, raffle.ID, userID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count user tickets: %v", err)
			return nil, errorx.Unknown
		}

		if owned+int64(req.Quantity) > int64(raffle.TicketLimitPerUser) {
			return nil, errorx.New(errorx.LimitExceeded,
				"Not allow more than %d tickets per user", raffle.TicketLimitPerUser)
		}
	}

	// The ledger is the only authority over the balance. The debit happens
	// first and the tickets are only persisted after it succeeds.
	var balance int64
	cost := raffle.TicketPrice * uint64(req.Quantity)
	if cost > 0 {
		result, err := d.ledgerCaller.SpendCoins(ctx, userID, cost,
			fmt.Sprintf("Buy %d tickets of raffle %s", req.Quantity, raffle.ID))
		if err != nil {
			return nil, err
		}

		balance = result.UpdatedBalance
	}

	tickets := make([]*entity.RaffleTicket, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		tickets = append(tickets, &entity.RaffleTicket{
			Base:     entity.Base{ID: uuid.NewString()},
			RaffleID: raffle.ID,
			UserID:   userID,
		})
	}

	if err := d.raffleRepo.CreateTickets(ctx, tickets); err != nil {
		// The debit already went through, so this failure needs a manual
		// reconciliation against the ledger history.
		xcontext.Logger(ctx).Errorf(
			"Cannot persist %d tickets of user %s for raffle %s after a successful debit: %v",
			req.Quantity, userID, raffle.ID, err)
		return nil, errorx.Unknown
	}

	return &model.BuyRaffleTicketsResponse{
		TicketsCreated: req.Quantity,
		UpdatedBalance: balance,
	}, nil
}

// PreviewWinner computes the winner a confirm with the same reference id would
// choose, without distributing anything. The selection is derived from the
// reference id, so preview and confirm agree as long as the ticket set does
// not change in between.
func (d *raffleDomain) PreviewWinner(
	ctx context.Context, req *model.PreviewRaffleWinnerRequest,
) (*model.PreviewRaffleWinnerResponse, error) {
	if req.RefID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty reference id")
	}

	receipt, err := d.getReceipt(ctx, req.RefID)
	if err != nil {
		return nil, err
	}

	if receipt != nil {
		plan, err := prizePlanFromMap(receipt.PrizePlan)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot decode receipt prize plan: %v", err)
			return nil, errorx.Unknown
		}

		return &model.PreviewRaffleWinnerResponse{
			WinnerID:  receipt.WinnerID,
			PrizePlan: *plan,
		}, nil
	}

	raffle, err := d.getDrawableRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	ticket, err := d.pickTicket(ctx, raffle.ID, req.RefID)
	if err != nil {
		return nil, err
	}

	plan, err := resolvePrize(raffle.PrizeType, raffle.PrizeConfig)
	if err != nil {
		return nil, err
	}

	return &model.PreviewRaffleWinnerResponse{
		WinnerID:  ticket.UserID,
		PrizePlan: *plan,
	}, nil
}

// ConfirmWinner applies the draw exactly once per reference id. A retry with
// the same reference id, whether it lost a race or the first response was
// dropped, resolves to the recorded result.
func (d *raffleDomain) ConfirmWinner(
	ctx context.Context, req *model.ConfirmRaffleWinnerRequest,
) (*model.ConfirmRaffleWinnerResponse, error) {
	if req.RefID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty reference id")
	}

	receipt, err := d.getReceipt(ctx, req.RefID)
	if err != nil {
		return nil, err
	}

	if receipt != nil {
		return d.receiptResponse(ctx, receipt)
	}

	lockKey := "draw:" + req.RaffleID
	if !d.locker.Lock(ctx, lockKey) {
		return nil, errorx.New(errorx.DrawInProgress, "Another draw is in progress")
	}
	defer d.locker.Unlock(ctx, lockKey)

	// Re-check under the lock. The first check only short-circuits the
	// common retry; this one closes the race window.
	receipt, err = d.getReceipt(ctx, req.RefID)
	if err != nil {
		return nil, err
	}

	if receipt != nil {
		return d.receiptResponse(ctx, receipt)
	}

	raffle, err := d.getDrawableRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	winnerID := req.WinnerID
	if winnerID != "" {
		if _, err := d.raffleRepo.GetAnyTicketOfUser(ctx, raffle.ID, winnerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errorx.New(errorx.BadRequest, "Forced winner holds no ticket")
			}

			xcontext.Logger(ctx).Errorf("Cannot check forced winner ticket: %v", err)
			return nil, errorx.Unknown
		}
	} else {
		ticket, err := d.pickTicket(ctx, raffle.ID, req.RefID)
		if err != nil {
			return nil, err
		}

		winnerID = ticket.UserID
	}

	plan, err := resolvePrize(raffle.PrizeType, raffle.PrizeConfig)
	if err != nil {
		return nil, err
	}

	// Distribute before committing the terminal state. If distribution
	// fails nothing is recorded and the same reference id can be retried;
	// the ledger dedupes the credit on that id.
	if plan.CoinAmount > 0 {
		_, err := d.ledgerCaller.AddCoins(ctx, winnerID,
			uint64(plan.CoinAmount), "system:raffle:"+raffle.ID, req.RefID)
		if err != nil {
			return nil, err
		}
	}

	if plan.ItemID != "" {
		if err := d.inventoryCaller.GrantItem(ctx, winnerID, plan.ItemID, raffle.ID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	plainCtx := ctx
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.raffleRepo.CheckAndSetWinner(ctx, raffle.ID, winnerID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Another process finished this draw between our validation and
			// the terminal write. Release our transaction and return the
			// committed result instead.
			xcontext.WithRollbackDBTransaction(ctx)
			return d.recoverCommittedDraw(plainCtx, req.RefID, raffle.ID)
		}

		xcontext.Logger(ctx).Errorf("Cannot set raffle winner: %v", err)
		return nil, errorx.Unknown
	}

	err = d.receiptRepo.Create(ctx, &entity.DrawReceipt{
		Base:       entity.Base{ID: uuid.NewString()},
		RefID:      req.RefID,
		ResourceID: raffle.ID,
		WinnerID:   winnerID,
		PrizePlan:  prizePlanToMap(plan),
	})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot create draw receipt for ref %s: %v", req.RefID, err)
		xcontext.WithRollbackDBTransaction(ctx)
		return d.recoverCommittedDraw(plainCtx, req.RefID, raffle.ID)
	}

	xcontext.WithCommitDBTransaction(ctx)

	d.notificationCaller.Notify(ctx, winnerID,
		"You won a raffle!", fmt.Sprintf("You are the winner of %s", raffle.Title))

	return &model.ConfirmRaffleWinnerResponse{
		WinnerID:  winnerID,
		PrizePlan: *plan,
	}, nil
}

func (d *raffleDomain) Delete(
	ctx context.Context, req *model.DeleteRaffleRequest,
) (*model.DeleteRaffleResponse, error) {
	raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	if raffle.Status == entity.RaffleActive {
		return nil, errorx.New(errorx.BadRequest, "Cannot delete a running raffle")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.raffleRepo.DeleteWithTickets(ctx, raffle.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete raffle: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)
	return &model.DeleteRaffleResponse{}, nil
}

func (d *raffleDomain) getReceipt(ctx context.Context, refID string) (*entity.DrawReceipt, error) {
	receipt, err := d.receiptRepo.GetByRefID(ctx, refID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw receipt: %v", err)
		return nil, errorx.Unknown
	}

	return receipt, nil
}

func (d *raffleDomain) receiptResponse(
	ctx context.Context, receipt *entity.DrawReceipt,
) (*model.ConfirmRaffleWinnerResponse, error) {
	plan, err := prizePlanFromMap(receipt.PrizePlan)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot decode receipt prize plan: %v", err)
		return nil, errorx.Unknown
	}

	return &model.ConfirmRaffleWinnerResponse{
		WinnerID:  receipt.WinnerID,
		PrizePlan: *plan,
	}, nil
}

// recoverCommittedDraw resolves a lost draw race by re-reading what the other
// process committed, first by the reference id and then by the raffle itself.
// It runs outside the caller's transaction so the committed rows are visible.
func (d *raffleDomain) recoverCommittedDraw(
	ctx context.Context, refID, raffleID string,
) (*model.ConfirmRaffleWinnerResponse, error) {
	receipt, err := d.getReceipt(ctx, refID)
	if err != nil {
		return nil, err
	}

	if receipt == nil {
		receipt, err = d.receiptRepo.GetByResourceID(ctx, raffleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errorx.New(errorx.AlreadyDrawn, "Raffle has already been drawn")
			}

			xcontext.Logger(ctx).Errorf("Cannot get the receipt of raffle %s: %v", raffleID, err)
			return nil, errorx.Unknown
		}
	}

	return d.receiptResponse(ctx, receipt)
}

func (d *raffleDomain) getDrawableRaffle(ctx context.Context, raffleID string) (*entity.Raffle, error) {
	raffle, err := d.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	if raffle.Status == entity.RaffleFinished || raffle.WinnerID.Valid {
		return nil, errorx.New(errorx.AlreadyDrawn, "Raffle has already been drawn")
	}

	// An administrator may cut a running raffle short, but a raffle that
	// never opened or closed without tickets has nothing to draw.
	if raffle.Status != entity.RaffleAwaitingDraw && raffle.Status != entity.RaffleActive {
		return nil, errorx.New(errorx.BadRequest, "Raffle is not ready for a draw")
	}

	return raffle, nil
}

// pickTicket maps the reference id onto one ticket of the raffle. Every ticket
// has the same chance, so a user's odds scale with the tickets they hold.
func (d *raffleDomain) pickTicket(
	ctx context.Context, raffleID, refID string,
) (*entity.RaffleTicket, error) {
	count, err := d.raffleRepo.CountTickets(ctx, raffleID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count raffle tickets: %v", err)
		return nil, errorx.Unknown
	}

	if count == 0 {
		return nil, errorx.New(errorx.BadRequest, "Raffle has no tickets to draw from")
	}

	offset := crypto.SeededIntn(refID, int(count))
	ticket, err := d.raffleRepo.GetTicketByOffset(ctx, raffleID, offset)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get the drawn ticket: %v", err)
		return nil, errorx.Unknown
	}

	return ticket, nil
}
