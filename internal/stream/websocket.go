package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"msgboard/internal/apperr"
	"msgboard/internal/model"
)

// SubscribeWebSocket follows the websocket push endpoint, which carries
// the same events as the SSE endpoint framed as model.StreamEvent JSON.
func SubscribeWebSocket(ctx context.Context, dialer *websocket.Dialer, url string, log *slog.Logger) *Subscription {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	log = log.With("transport", "websocket", "url", url)

	return start(ctx, log, func(ctx context.Context, s *Subscription) error {
		conn, resp, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
				return fatal(&apperr.StatusError{Op: "GET " + url, Status: resp.StatusCode})
			}
			return fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
		}
		defer conn.Close()

		// ReadMessage only returns on a frame or a closed connection
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		s.setState(Open)

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
			}

			var frame model.StreamEvent
			if err := json.Unmarshal(raw, &frame); err != nil {
				s.log.Error("Dropping malformed frame", "error", errors.Join(apperr.ErrParse, err))
				continue
			}
			if frame.ID != "" {
				s.lastEventID = frame.ID
			}

			if !s.emit(ctx, Event{Type: frame.Type, ID: frame.ID, Data: frame.Data}) {
				return ctx.Err()
			}
		}
	})
}
