package domain

import (
	"fmt"
	"strings"

	"github.com/fatih/structs"
	"github.com/mitchellh/mapstructure"
	"github.com/prizelab/backend/internal/entity"
	"github.com/prizelab/backend/internal/model"
	"github.com/prizelab/backend/pkg/errorx"
)

type coinsPrize struct {
	Amount int64  `mapstructure:"amount"`
	Title  string `mapstructure:"title"`
}

type itemPrize struct {
	ItemID string `mapstructure:"item_id"`
	Title  string `mapstructure:"title"`
	Image  string `mapstructure:"image"`
}

type hybridPrize struct {
	Amount int64  `mapstructure:"amount"`
	ItemID string `mapstructure:"item_id"`
	Title  string `mapstructure:"title"`
	Image  string `mapstructure:"image"`
}

type customPrize struct {
	Title        string `mapstructure:"title"`
	Image        string `mapstructure:"image"`
	Instructions string `mapstructure:"instructions"`
}

// resolvePrize turns the stored prize configuration into a concrete plan. A
// misconfigured prize (missing item id, non-positive coin amount) degrades to
// a warning instead of an error, so a draw is never blocked: the valid
// components are still distributed and the administrator sees what is wrong.
// Only an undecodable configuration or an unknown type fails.
func resolvePrize(prizeType entity.PrizeType, config entity.Map) (*model.PrizePlan, error) {
	var warnings []string

	plan := &model.PrizePlan{Type: string(prizeType)}
	switch prizeType {
	case entity.PrizeCoins:
		var prize coinsPrize
		if err := mapstructure.Decode(map[string]any(config), &prize); err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid prize configuration: %v", err)
		}

		if prize.Amount > 0 {
			plan.CoinAmount = prize.Amount
		} else {
			warnings = append(warnings, "coin amount must be positive")
		}

		plan.DisplayTitle = prize.Title
		if plan.DisplayTitle == "" {
			plan.DisplayTitle = fmt.Sprintf("%d coins", plan.CoinAmount)
		}

	case entity.PrizeItem:
		var prize itemPrize
		if err := mapstructure.Decode(map[string]any(config), &prize); err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid prize configuration: %v", err)
		}

		if prize.ItemID != "" {
			plan.ItemID = prize.ItemID
		} else {
			warnings = append(warnings, "prize has no item id")
		}

		plan.DisplayTitle = prize.Title
		plan.DisplayImage = prize.Image
		if plan.DisplayTitle == "" {
			plan.DisplayTitle = prize.ItemID
		}

	case entity.PrizeHybrid:
		var prize hybridPrize
		if err := mapstructure.Decode(map[string]any(config), &prize); err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid prize configuration: %v", err)
		}

		if prize.Amount > 0 {
			plan.CoinAmount = prize.Amount
		} else {
			warnings = append(warnings, "coin amount must be positive")
		}

		if prize.ItemID != "" {
			plan.ItemID = prize.ItemID
		} else {
			warnings = append(warnings, "prize has no item id")
		}

		plan.DisplayTitle = prize.Title
		plan.DisplayImage = prize.Image
		if plan.DisplayTitle == "" {
			plan.DisplayTitle = fmt.Sprintf("%s + %d coins", prize.ItemID, plan.CoinAmount)
		}

	case entity.PrizeCustom:
		var prize customPrize
		if err := mapstructure.Decode(map[string]any(config), &prize); err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid prize configuration: %v", err)
		}

		plan.DisplayTitle = prize.Title
		plan.DisplayImage = prize.Image
		if plan.DisplayTitle == "" {
			plan.DisplayTitle = "Custom prize"
			warnings = append(warnings, "prize has no title")
		}

		warnings = append(warnings, "custom prize requires manual fulfillment")

	default:
		return nil, errorx.New(errorx.BadRequest, "Unknown prize type %s", prizeType)
	}

	plan.Warning = strings.Join(warnings, "; ")
	return plan, nil
}

func prizePlanToMap(plan *model.PrizePlan) entity.Map {
	return entity.Map(structs.Map(plan))
}

func prizePlanFromMap(stored entity.Map) (*model.PrizePlan, error) {
	var plan model.PrizePlan
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "structs",
		Result:  &plan,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]any(stored)); err != nil {
		return nil, err
	}

	return &plan, nil
}
