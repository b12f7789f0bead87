package main

import (
	"github.com/prizelab/backend/internal/domain/cron"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(ct *cli.Context) error {
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

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewRaffleLifecycleCronJob(s.raffleRepo))
	cronJobManager.Register(cron.NewJackpotCycleCronJob(s.jackpotRepo, s.jackpotDomain))
	cronJobManager.Start(s.ctx)

	return nil
}
