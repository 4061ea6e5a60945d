// Package feed produces the display records of the message list: the
// one-shot history, the live push stream and the user's own submissions.
package feed

import (
	"context"
	"fmt"
	"log/slog"

	"msgboard/internal/apperr"
	"msgboard/internal/model"
	"msgboard/internal/render"
)

// HistoryStore serves the stored message history
type HistoryStore interface {
	History(ctx context.Context) ([]model.Message, error)
}

// Directory resolves an address token into a display label
type Directory interface {
	Lookup(ctx context.Context, address string) (string, error)
}

type History struct {
	store     HistoryStore
	directory Directory
	renderer  render.Renderer
	log       *slog.Logger

	// SkipUnresolved renders nothing for a message whose author lookup
	// failed and carries on with the next one, instead of aborting.
	SkipUnresolved bool
}

func NewHistory(store HistoryStore, directory Directory, renderer render.Renderer, log *slog.Logger) *History {
	return &History{store: store, directory: directory, renderer: renderer, log: log}
}

// Run fetches the history once and renders it in server order. Lookups
// are sequential: a record is appended only after every earlier one.
func (h *History) Run(ctx context.Context) error {
	messages, err := h.store.History(ctx)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	rendered := 0
	for i, msg := range messages {
		label, err := h.directory.Lookup(ctx, msg.UserIP)
		if err != nil {
			if h.SkipUnresolved && ctx.Err() == nil {
				h.log.Warn("Skipping message with unresolved author",
					"index", i, "address", msg.UserIP, "kind", apperr.Kind(err), "error", err)
				continue
			}
			return fmt.Errorf("resolve author of message %d (%s): %w", i, msg.UserIP, err)
		}

		h.renderer.Append(model.DisplayRecord{Label: label, Content: msg.Content})
		rendered++
	}

	h.log.Info("History rendered", "messages", len(messages), "rendered", rendered)
	return nil
}
