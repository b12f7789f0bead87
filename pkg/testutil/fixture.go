package testutil

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func CreateFixtureDb() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	if err := entity.MigrateTable(db); err != nil {
		panic(err)
	}

	return db
}

// SampleRaffle creates a raffle with sensible defaults. Non-zero fields of
// init overwrite the defaults.
func SampleRaffle(db *gorm.DB, init *entity.Raffle) entity.Raffle {
	raffleRepo := repository.NewRaffleRepository()

	now := time.Now()
	sample := &entity.Raffle{
		Base:        entity.Base{ID: uuid.NewString()},
		Title:       uuid.NewString(),
		TicketPrice: 10,
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(time.Hour),
		Status:      entity.RaffleActive,
		PrizeType:   entity.PrizeCoins,
		PrizeConfig: entity.Map{"amount": 500, "title": "500 coins"},
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := raffleRepo.Create(mockContextWithDb(db), sample); err != nil {
		panic(err)
	}

	return *sample
}

// SampleJackpot creates a jackpot cycle with sensible defaults. Non-zero
// fields of init overwrite the defaults.
func SampleJackpot(db *gorm.DB, init *entity.Jackpot) entity.Jackpot {
	jackpotRepo := repository.NewJackpotRepository()

	now := time.Now()
	sample := &entity.Jackpot{
		Base:          entity.Base{ID: uuid.NewString()},
		CurrentValue:  1000,
		TicketPrice:   5,
		Status:        entity.JackpotActive,
		NextDraw:      now.Add(24 * time.Hour),
		NextStartDate: now.Add(-time.Hour),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := jackpotRepo.Create(mockContextWithDb(db), sample); err != nil {
		panic(err)
	}

	return *sample
}

func InsertRaffleTickets(db *gorm.DB, raffleID, userID string, quantity int) {
	raffleRepo := repository.NewRaffleRepository()

	tickets := make([]*entity.RaffleTicket, 0, quantity)
	for i := 0; i < quantity; i++ {
		tickets = append(tickets, &entity.RaffleTicket{
			Base:     entity.Base{ID: uuid.NewString()},
			RaffleID: raffleID,
			UserID:   userID,
		})
	}

	if err := raffleRepo.CreateTickets(mockContextWithDb(db), tickets); err != nil {
		panic(err)
	}
}

func InsertJackpotTickets(db *gorm.DB, jackpotID, userID string, quantity int) {
	jackpotRepo := repository.NewJackpotRepository()

	tickets := make([]*entity.JackpotTicket, 0, quantity)
	for i := 0; i < quantity; i++ {
		tickets = append(tickets, &entity.JackpotTicket{
			Base:      entity.Base{ID: uuid.NewString()},
			JackpotID: jackpotID,
			UserID:    userID,
		})
	}

	if err := jackpotRepo.CreateTickets(mockContextWithDb(db), tickets); err != nil {
		panic(err)
	}
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < originValue.NumField(); i++ {
		field := overwriteValue.Field(i)
		if !field.IsZero() {
			originValue.Field(i).Set(field)
		}
	}
}

func mockContextWithDb(db *gorm.DB) context.Context {
	return NewMockContext(db)
}
