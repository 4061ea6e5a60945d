package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"msgboard/internal/apperr"
	"msgboard/internal/model"
	"msgboard/internal/render"
	"msgboard/internal/stream"
)

// eventMessage is the event type carrying a new message. Unnamed events
// are treated the same way.
const eventMessage = "message"

// Live renders pushed messages. Streamed messages are rendered without an
// author label and are not deduplicated against the history.
type Live struct {
	renderer render.Renderer
	log      *slog.Logger
}

func NewLive(renderer render.Renderer, log *slog.Logger) *Live {
	return &Live{renderer: renderer, log: log}
}

// Run consumes events until the channel is closed or ctx is done.
func (l *Live) Run(ctx context.Context, events <-chan stream.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.Handle(ev)
		}
	}
}

// Handle renders one event. It reports whether a record was appended.
func (l *Live) Handle(ev stream.Event) bool {
	if ev.Type != "" && ev.Type != eventMessage {
		l.log.Debug("Ignoring push event", "type", ev.Type, "id", ev.ID)
		return false
	}

	var msg model.Message
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		l.log.Error("Dropping malformed push event",
			"id", ev.ID, "error", errors.Join(apperr.ErrParse, err))
		return false
	}

	l.renderer.Append(model.DisplayRecord{Content: msg.Content})
	return true
}
