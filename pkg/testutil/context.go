package testutil

import (
	"context"
	"time"

	"github.com/prizelab/backend/config"
	"github.com/prizelab/backend/pkg/logger"
	"github.com/prizelab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

func MockConfigs() config.Configs {
	configs := config.Default()
	configs.Jackpot.BaselineValue = 1000
	configs.Jackpot.DrawInterval = config.Duration{Duration: 24 * time.Hour}
	return configs
}

func NewMockContext(db *gorm.DB) context.Context {
	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, MockConfigs())
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.ERROR))
	if db != nil {
		ctx = xcontext.WithDB(ctx, db)
	}

	return ctx
}

func NewMockContextWithUserID(db *gorm.DB, userID string) context.Context {
	return xcontext.WithRequestUserID(NewMockContext(db), userID)
}
