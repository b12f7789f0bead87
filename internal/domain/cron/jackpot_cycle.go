package cron

import (
	"context"
	"errors"
	"time"

	"github.com/prizelab/backend/internal/domain"
	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/internal/model"
	"github.com/prizelab/backend/internal/repository"
	"github.com/prizelab/backend/pkg/errorx"
	"github.com/prizelab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// JackpotCycleCronJob activates scheduled jackpot cycles and triggers the
// draw when the current round is due.
type JackpotCycleCronJob struct {
	jackpotRepo   repository.JackpotRepository
	jackpotDomain domain.JackpotDomain
}

func NewJackpotCycleCronJob(
	jackpotRepo repository.JackpotRepository,
	jackpotDomain domain.JackpotDomain,
) *JackpotCycleCronJob {
	return &JackpotCycleCronJob{jackpotRepo: jackpotRepo, jackpotDomain: jackpotDomain}
}

func (job *JackpotCycleCronJob) Do(ctx context.Context) {
	jackpot, err := job.jackpotRepo.GetCurrent(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get current jackpot: %v", err)
		}

		return
	}

	now := time.Now()
	if jackpot.Status == entity.JackpotWaitingStart && !now.Before(jackpot.NextStartDate) {
		err := job.jackpotRepo.UpdateStatus(ctx, jackpot.ID,
			entity.JackpotWaitingStart, entity.JackpotActive)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot activate jackpot cycle %s: %v", jackpot.ID, err)
			return
		}

		xcontext.Logger(ctx).Infof("Activated jackpot cycle %s", jackpot.ID)
		jackpot.Status = entity.JackpotActive
	}

	if jackpot.Status == entity.JackpotActive && !now.Before(jackpot.NextDraw) {
		resp, err := job.jackpotDomain.Draw(ctx, &model.DrawJackpotRequest{})
		if err != nil {
			// An empty round rolls over silently; everything else is a
			// real failure.
			var errx errorx.Error
			if errors.As(err, &errx) && errx.Code == errorx.BadRequest {
				xcontext.Logger(ctx).Infof("Jackpot round rolled over without tickets")
				return
			}

			xcontext.Logger(ctx).Errorf("Cannot draw jackpot %s: %v", jackpot.ID, err)
			return
		}

		xcontext.Logger(ctx).Infof("Jackpot %s paid %d to %s",
			jackpot.ID, resp.PrizeAmount, resp.WinnerID)
	}
}

func (job *JackpotCycleCronJob) RunNow() bool {
	return false
}

func (job *JackpotCycleCronJob) Next() time.Time {
	return time.Now().Add(time.Minute)
}
