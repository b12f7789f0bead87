package client

import (
	"context"

	"github.com/prizelab/backend/pkg/api"
	"github.com/prizelab/backend/pkg/errorx"
	"github.com/prizelab/backend/pkg/xcontext"
)

type InventoryCaller interface {
	GrantItem(ctx context.Context, userID, itemID, sourceRaffleID string) error
}

type inventoryCaller struct {
	generator api.Generator
}

func NewInventoryCaller(generator api.Generator) *inventoryCaller {
	return &inventoryCaller{generator: generator}
}

func (c *inventoryCaller) GrantItem(ctx context.Context, userID, itemID, sourceRaffleID string) error {
	resp, err := c.generator.New("/grant_item").Body(api.JSON{
		"user_id":          userID,
		"item_id":          itemID,
		"source_raffle_id": sourceRaffleID,
	}).POST(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot call inventory grant_item: %v", err)
		return errorx.New(errorx.Unavailable, "Inventory service is unreachable: %v", err)
	}

	success, _ := resp.Body.GetBool("success")
	if !success {
		remoteErr, _ := resp.Body.GetString("error")
		return errorx.New(errorx.Unavailable, "Inventory rejected grant_item: %s", remoteErr)
	}

	return nil
}
