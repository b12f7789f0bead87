package domain

import (
	"testing"

	"github.com/prizelab/backend/internal/entity"
	"github.com/stretchr/testify/require"
)

func TestResolvePrize_Coins(t *testing.T) {
	plan, err := resolvePrize(entity.PrizeCoins, entity.Map{"amount": 500, "title": "Gold pile"})
	require.NoError(t, err)
	require.Equal(t, int64(500), plan.CoinAmount)
	require.Equal(t, "Gold pile", plan.DisplayTitle)
	require.Empty(t, plan.Warning)

	// A non-positive amount is a data-integrity warning, not a failure: the
	// draw still proceeds, just with nothing to distribute.
	plan, err = resolvePrize(entity.PrizeCoins, entity.Map{"amount": 0})
	require.NoError(t, err)
	require.Equal(t, int64(0), plan.CoinAmount)
	require.NotEmpty(t, plan.Warning)
}

func TestResolvePrize_Item(t *testing.T) {
	plan, err := resolvePrize(entity.PrizeItem, entity.Map{"item_id": "sword-01", "title": "Sword"})
	require.NoError(t, err)
	require.Equal(t, "sword-01", plan.ItemID)
	require.Equal(t, int64(0), plan.CoinAmount)
	require.Empty(t, plan.Warning)

	plan, err = resolvePrize(entity.PrizeItem, entity.Map{"title": "Sword"})
	require.NoError(t, err)
	require.Empty(t, plan.ItemID)
	require.NotEmpty(t, plan.Warning)
}

func TestResolvePrize_Hybrid(t *testing.T) {
	plan, err := resolvePrize(entity.PrizeHybrid,
		entity.Map{"amount": 100, "item_id": "shield-01"})
	require.NoError(t, err)
	require.Equal(t, int64(100), plan.CoinAmount)
	require.Equal(t, "shield-01", plan.ItemID)
	require.Empty(t, plan.Warning)

	// The valid coin component survives a missing item id.
	plan, err = resolvePrize(entity.PrizeHybrid, entity.Map{"amount": 100})
	require.NoError(t, err)
	require.Equal(t, int64(100), plan.CoinAmount)
	require.Empty(t, plan.ItemID)
	require.NotEmpty(t, plan.Warning)
}

func TestResolvePrize_Custom(t *testing.T) {
	plan, err := resolvePrize(entity.PrizeCustom, entity.Map{"title": "Dinner with the team"})
	require.NoError(t, err)
	require.Equal(t, "Dinner with the team", plan.DisplayTitle)
	require.NotEmpty(t, plan.Warning)
}

func TestResolvePrize_UnknownType(t *testing.T) {
	_, err := resolvePrize(entity.PrizeType("nft"), entity.Map{})
	require.Error(t, err)
}

func TestPrizePlanMapRoundtrip(t *testing.T) {
	plan, err := resolvePrize(entity.PrizeHybrid,
		entity.Map{"amount": 250, "item_id": "crown", "title": "Royal bundle"})
	require.NoError(t, err)

	restored, err := prizePlanFromMap(prizePlanToMap(plan))
	require.NoError(t, err)
	require.Equal(t, plan, restored)
}
