package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emsdesk/apiserver/types"
)

// Publisher delivers a message to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Events publishes domain events. A nil *Events, or one without a
// publisher, drops every event.
type Events struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewEvents(publisher Publisher, logger *slog.Logger) *Events {
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{publisher: publisher, logger: logger, now: time.Now}
}

// Emit publishes an event. Failures are logged, not returned.
func (e *Events) Emit(ctx context.Context, channel, entityID, actor string, data map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	event := types.Event{
		ID:         uuid.NewString(),
		Type:       channel,
		EntityID:   entityID,
		Actor:      actor,
		OccurredAt: e.now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(event)
	if err != nil {
		e.logger.WarnContext(ctx, "encode event", "type", channel, "error", err)
		return
	}

	attrs := map[string]string{"type": channel, "content-type": "application/json"}
	if _, err := e.publisher.Publish(ctx, channel, body, attrs); err != nil {
		e.logger.WarnContext(ctx, "publish event", "type", channel, "entity", entityID, "error", err)
	}
}
