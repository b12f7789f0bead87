package client

import (
	"context"

	"github.com/prizelab/backend/pkg/api"
	"github.com/prizelab/backend/pkg/xcontext"
)

// NotificationCaller is fire-and-forget: a failed notification must never roll
// back the operation that triggered it, so Notify only logs failures.
type NotificationCaller interface {
	Notify(ctx context.Context, userID, title, message string)
}

type notificationCaller struct {
	generator api.Generator
}

func NewNotificationCaller(generator api.Generator) *notificationCaller {
	return &notificationCaller{generator: generator}
}

func (c *notificationCaller) Notify(ctx context.Context, userID, title, message string) {
	_, err := c.generator.New("/notify").Body(api.JSON{
		"user_id": userID,
		"title":   title,
		"message": message,
	}).POST(ctx)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot notify user %s: %v", userID, err)
	}
}
