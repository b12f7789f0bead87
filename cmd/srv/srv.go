package main

import (
	"context"
	"net/http"

	"github.com/prizelab/backend/config"
	"github.com/prizelab/backend/internal/client"
	"github.com/prizelab/backend/internal/domain"
	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/internal/model"
	"github.com/prizelab/backend/internal/repository"
	"github.com/prizelab/backend/pkg/api"
	"github.com/prizelab/backend/pkg/jwt"
	"github.com/prizelab/backend/pkg/locker"
	"github.com/prizelab/backend/pkg/logger"
	"github.com/prizelab/backend/pkg/ratelimiter"
	"github.com/prizelab/backend/pkg/router"
	"github.com/prizelab/backend/pkg/xcontext"
	"github.com/prizelab/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	ctx context.Context

	raffleRepo  repository.RaffleRepository
	jackpotRepo repository.JackpotRepository
	receiptRepo repository.DrawReceiptRepository

	ledgerCaller       client.LedgerCaller
	inventoryCaller    client.InventoryCaller
	notificationCaller client.NotificationCaller

	raffleDomain  domain.RaffleDomain
	jackpotDomain domain.JackpotDomain
	userDomain    domain.UserDomain

	locker      locker.Locker
	tokenEngine *jwt.Engine[model.AccessToken]

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(ct *cli.Context) error {
	configs, err := config.Load(ct.String("config"))
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithConfigs(s.ctx, configs)
	return nil
}

func (s *srv) loadLogger() {
	level := logger.DEBUG
	if xcontext.Configs(s.ctx).Env == "prod" {
		level = logger.INFO
	}

	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(level))
}

func (s *srv) loadDatabase() error {
	databaseConfigs := xcontext.Configs(s.ctx).Database
	db, err := gorm.Open(
		mysql.Open(databaseConfigs.ConnectionString()), &gorm.Config{})
	if err != nil {
		return err
	}

	if err := entity.MigrateTable(db); err != nil {
		return err
	}

	s.ctx = xcontext.WithDB(s.ctx, db)
	return nil
}

func (s *srv) loadLocker() error {
	configs := xcontext.Configs(s.ctx).Lock
	if configs.Driver == "redis" {
		redisClient, err := xredis.NewClient(s.ctx)
		if err != nil {
			return err
		}

		s.locker = locker.NewRedisLocker(redisClient, configs.Lease.Duration)
		return nil
	}

	s.locker = locker.NewMemoryLocker()
	return nil
}

func (s *srv) loadRepos() {
	s.raffleRepo = repository.NewRaffleRepository()
	s.jackpotRepo = repository.NewJackpotRepository()
	s.receiptRepo = repository.NewDrawReceiptRepository()
}

func (s *srv) loadClients() {
	configs := xcontext.Configs(s.ctx)
	limiter := ratelimiter.New(configs.Ledger.TrustedSourcePrefixes)

	s.ledgerCaller = client.NewLedgerCaller(api.NewGenerator(configs.Ledger.URL), limiter)
	s.inventoryCaller = client.NewInventoryCaller(api.NewGenerator(configs.Inventory.URL))
	s.notificationCaller = client.NewNotificationCaller(api.NewGenerator(configs.Notification.URL))
}

func (s *srv) loadDomains() {
	s.raffleDomain = domain.NewRaffleDomain(s.raffleRepo, s.receiptRepo,
		s.ledgerCaller, s.inventoryCaller, s.notificationCaller, s.locker)
	s.jackpotDomain = domain.NewJackpotDomain(s.jackpotRepo,
		s.ledgerCaller, s.notificationCaller, s.locker)
	s.userDomain = domain.NewUserDomain(s.ledgerCaller)
}

func (s *srv) loadTokenEngine() {
	configs := xcontext.Configs(s.ctx).Auth
	s.tokenEngine = jwt.NewEngine[model.AccessToken](
		configs.TokenSecret, configs.TokenExpiration.Duration)
}
