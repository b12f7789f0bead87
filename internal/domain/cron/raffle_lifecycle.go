package cron

import (
	"context"
	"time"

	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/internal/repository"
	"github.com/prizelab/backend/pkg/xcontext"
)

// RaffleLifecycleCronJob sweeps raffles through their time-driven transitions:
// scheduled raffles whose window has opened become active, and active raffles
// whose window has closed become awaiting_draw, or ended when nobody bought a
// ticket.
type RaffleLifecycleCronJob struct {
	raffleRepo repository.RaffleRepository
}

func NewRaffleLifecycleCronJob(raffleRepo repository.RaffleRepository) *RaffleLifecycleCronJob {
	return &RaffleLifecycleCronJob{raffleRepo: raffleRepo}
}

func (job *RaffleLifecycleCronJob) Do(ctx context.Context) {
	now := time.Now()

	shouldStart, err := job.raffleRepo.GetShouldStart(ctx, now)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get should-start raffles: %v", err)
		return
	}

	for _, raffle := range shouldStart {
		err := job.raffleRepo.UpdateStatus(ctx, raffle.ID, entity.RaffleScheduled, entity.RaffleActive)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot start raffle %s: %v", raffle.ID, err)
			continue
		}

		xcontext.Logger(ctx).Infof("Started raffle %s", raffle.ID)
	}

	shouldFinish, err := job.raffleRepo.GetShouldFinish(ctx, now)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get should-finish raffles: %v", err)
		return
	}

	for _, raffle := range shouldFinish {
		count, err := job.raffleRepo.CountTickets(ctx, raffle.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count tickets of raffle %s: %v", raffle.ID, err)
			continue
		}

		// A raffle nobody entered has nothing to draw.
		target := entity.RaffleAwaitingDraw
		if count == 0 {
			target = entity.RaffleEnded
		}

		err = job.raffleRepo.UpdateStatus(ctx, raffle.ID, entity.RaffleActive, target)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot finish raffle %s: %v", raffle.ID, err)
			continue
		}

		xcontext.Logger(ctx).Infof("Moved raffle %s to %s", raffle.ID, target)
	}
}

func (job *RaffleLifecycleCronJob) RunNow() bool {
	return true
}

func (job *RaffleLifecycleCronJob) Next() time.Time {
	return time.Now().Add(time.Minute)
}
