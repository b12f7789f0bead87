package xcontext

import (
	"context"
	"net/http"

	"github.com/prizelab/backend/config"
	"github.com/prizelab/backend/pkg/logger"
	"gorm.io/gorm"
)

type (
	configsKey    struct{}
	loggerKey     struct{}
	dbKey         struct{}
	txKey         struct{}
	userIDKey     struct{}
	httpClientKey struct{}
)

func WithConfigs(ctx context.Context, configs config.Configs) context.Context {
	return context.WithValue(ctx, configsKey{}, configs)
}

func Configs(ctx context.Context) config.Configs {
	configs := ctx.Value(configsKey{})
	if configs == nil {
		return config.Configs{}
	}

	return configs.(config.Configs)
}

func WithLogger(ctx context.Context, l logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func Logger(ctx context.Context) logger.Logger {
	l := ctx.Value(loggerKey{})
	if l == nil {
		return logger.NewLogger(logger.INFO)
	}

	return l.(logger.Logger)
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the transaction if the context carries one, otherwise the root
// database handle.
func DB(ctx context.Context) *gorm.DB {
	if tx := ctx.Value(txKey{}); tx != nil {
		return tx.(*gorm.DB)
	}

	db := ctx.Value(dbKey{})
	if db == nil {
		panic("no database in context")
	}

	return db.(*gorm.DB)
}

// WithDBTransaction begins a database transaction and stores it in the
// returned context. Callers must defer WithRollbackDBTransaction on the
// returned context; rolling back after a commit is a no-op.
func WithDBTransaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, DB(ctx).Begin())
}

func WithCommitDBTransaction(ctx context.Context) context.Context {
	if tx := ctx.Value(txKey{}); tx != nil {
		tx.(*gorm.DB).Commit()
		return context.WithValue(ctx, txKey{}, nil)
	}

	return ctx
}

func WithRollbackDBTransaction(ctx context.Context) context.Context {
	if tx := ctx.Value(txKey{}); tx != nil {
		// Rollback of a committed transaction returns an error which is
		// safely ignored here.
		tx.(*gorm.DB).Rollback()
		return context.WithValue(ctx, txKey{}, nil)
	}

	return ctx
}

func WithRequestUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func RequestUserID(ctx context.Context) string {
	id := ctx.Value(userIDKey{})
	if id == nil {
		return ""
	}

	return id.(string)
}

func WithHTTPClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, httpClientKey{}, client)
}

func HTTPClient(ctx context.Context) *http.Client {
	client := ctx.Value(httpClientKey{})
	if client == nil {
		return http.DefaultClient
	}

	return client.(*http.Client)
}
