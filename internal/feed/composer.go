package feed

import (
	"context"
	"fmt"
	"log/slog"

	"msgboard/internal/model"
	"msgboard/internal/render"
)

// Input is the field a submission is read from
type Input interface {
	Value() string
	Clear()
}

// AddressResolver discovers the caller's network address
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// MessageStore accepts new messages
type MessageStore interface {
	Post(ctx context.Context, msg model.PostRequest) error
}

type Composer struct {
	resolver AddressResolver
	store    MessageStore
	renderer render.Renderer
	log      *slog.Logger
}

func NewComposer(resolver AddressResolver, store MessageStore, renderer render.Renderer, log *slog.Logger) *Composer {
	return &Composer{resolver: resolver, store: store, renderer: renderer, log: log}
}

// Submit posts the input's content verbatim, tagged with a freshly
// resolved address. Once the address is known the input is cleared and
// the content echoed locally whatever the outcome of the post; a post
// failure is still returned. If the address cannot be resolved nothing
// is sent, cleared or echoed.
func (c *Composer) Submit(ctx context.Context, in Input) error {
	content := in.Value()

	addr, err := c.resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve caller address: %w", err)
	}

	postErr := c.store.Post(ctx, model.PostRequest{Content: content, Address: addr})

	in.Clear()
	c.renderer.Append(model.DisplayRecord{Content: content})

	if postErr != nil {
		return fmt.Errorf("post message: %w", postErr)
	}
	c.log.Debug("Message posted", "address", addr)
	return nil
}
