package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pranganb/vtube/internal/mq"
	"github.com/pranganb/vtube/types"
)

// EventPublisher is the broker side of account events.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Events publishes account events. Publishing is best effort: failures are
// logged and never surface to the caller. A nil *Events is a no-op.
type Events struct {
	publisher EventPublisher
	channel   string
	logger    *slog.Logger
	now       func() time.Time
}

func NewEvents(publisher EventPublisher, channel string, logger *slog.Logger) *Events {
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		now:       time.Now,
	}
}

func (e *Events) emit(ctx context.Context, eventType string, user types.User) {
	if e == nil || e.publisher == nil {
		return
	}

	payload, err := json.Marshal(types.AccountEvent{
		Type:       eventType,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: e.now().UTC(),
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "encode account event", "type", eventType, "error", err)
		return
	}

	attrs := map[string]string{
		mq.AttrEvent:       eventType,
		mq.AttrUserID:      user.ID,
		mq.AttrContentType: "application/json",
	}
	if _, err := e.publisher.Publish(ctx, e.channel, payload, attrs); err != nil {
		e.logger.WarnContext(ctx, "publish account event", "type", eventType, "user_id", user.ID, "error", err)
	}
}
