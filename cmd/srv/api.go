package main

import (
	"net/http"

	"github.com/prizelab/backend/internal/middleware"
	"github.com/prizelab/backend/pkg/router"
	"github.com/prizelab/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(ct *cli.Context) error {
	if err := s.loadConfig(ct); err != nil {
		return err
	}

	s.loadLogger()
	if err := s.loadDatabase(); err != nil {
		return err
	}

	if err := s.loadLocker(); err != nil {
		return err
	}

	s.loadRepos()
	s.loadClients()
	s.loadDomains()
	s.loadTokenEngine()
	s.loadRouter()

	configs := xcontext.Configs(s.ctx).ApiServer
	s.server = &http.Server{
		Addr:    configs.Address(),
		Handler: s.router.Handler(),
	}

	xcontext.Logger(s.ctx).Infof("Starting API server on %s", configs.Address())
	if err := s.server.ListenAndServe(); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("API server stopped")
	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.Before(middleware.WithAuthentication(s.tokenEngine))

	// Public API
	publicRouter := s.router.Branch()
	{
		router.GET(publicRouter, "/getRaffle", s.raffleDomain.Get)
		router.GET(publicRouter, "/getJackpot", s.jackpotDomain.Get)
	}

	// These following APIs need authentication.
	authRouter := s.router.Branch()
	authRouter.Before(middleware.Authenticate())
	{
		// Raffle API
		router.GET(authRouter, "/getMyRaffleTickets", s.raffleDomain.GetMyTickets)
		router.POST(authRouter, "/buyRaffleTickets", s.raffleDomain.BuyTickets)

		// Jackpot API
		router.POST(authRouter, "/buyJackpotTickets", s.jackpotDomain.BuyTickets)

		// User API
		router.POST(authRouter, "/dailyCheckin", s.userDomain.DailyCheckin)

		// Operation API
		router.POST(authRouter, "/createRaffle", s.raffleDomain.Create)
		router.POST(authRouter, "/deleteRaffle", s.raffleDomain.Delete)
		router.GET(authRouter, "/previewRaffleWinner", s.raffleDomain.PreviewWinner)
		router.POST(authRouter, "/confirmRaffleWinner", s.raffleDomain.ConfirmWinner)
		router.POST(authRouter, "/scheduleJackpotCycle", s.jackpotDomain.ScheduleNewCycle)
		router.POST(authRouter, "/editJackpotCycle", s.jackpotDomain.EditRunningCycle)
		router.POST(authRouter, "/injectJackpot", s.jackpotDomain.Inject)
		router.POST(authRouter, "/drawJackpot", s.jackpotDomain.Draw)
	}
}
