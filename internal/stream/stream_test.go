package stream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"msgboard/internal/apperr"
	"msgboard/internal/model"
)

func nextEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEventReader(t *testing.T) {
	req := require.New(t)
	body := strings.Join([]string{
		": keep-alive comment",
		"retry: 1500",
		"",
		"event: message",
		"id: 7",
		`data: {"Content":"hi"}`,
		"",
		"data:first",
		"data: second",
		"",
		"event: message_deleted\r",
		"data: 7\r",
		"\r",
		"id: 8",
		"",
		"data: unterminated",
	}, "\n")

	r := newEventReader(strings.NewReader(body))

	ev, err := r.next()
	req.NoError(err)
	req.Equal(Event{Type: "message", ID: "7", Data: []byte(`{"Content":"hi"}`)}, ev)
	req.Equal(1500*time.Millisecond, r.retry)

	ev, err = r.next()
	req.NoError(err)
	req.Equal(Event{ID: "7", Data: []byte("first\nsecond")}, ev)

	ev, err = r.next()
	req.NoError(err)
	req.Equal(Event{Type: "message_deleted", ID: "7", Data: []byte("7")}, ev)

	_, err = r.next()
	req.ErrorIs(err, io.EOF)
	req.Equal("8", r.lastEventID)
}

func TestSubscribeSSE_ReconnectsWithLastEventID(t *testing.T) {
	req := require.New(t)
	var connections atomic.Int32
	lastIDs := make(chan string, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := connections.Add(1)
		lastIDs <- r.Header.Get("Last-Event-ID")
		w.Header().Set("Content-Type", "text/event-stream")
		// the first connection ends after one event, like a one-shot server handler
		if n == 1 {
			io.WriteString(w, "retry: 10\nevent: message\nid: 1\ndata: {\"Content\":\"first\"}\n\n")
			return
		}
		io.WriteString(w, "event: message\nid: 2\ndata: {\"Content\":\"second\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	sub := SubscribeSSE(context.Background(), srv.Client(), srv.URL+"/events/", logs.GetLoggerFromLevel(slog.LevelDebug))
	defer sub.Close()

	req.Equal(`{"Content":"first"}`, string(nextEvent(t, sub).Data))
	second := nextEvent(t, sub)
	req.Equal("message", second.Type)
	req.Equal(`{"Content":"second"}`, string(second.Data))
	req.Equal(Open, sub.State())

	req.Equal("", <-lastIDs)
	req.Equal("1", <-lastIDs)

	req.NoError(sub.Close())
	req.Equal(Closed, sub.State())
	req.NoError(sub.Err())
	_, ok := <-sub.Events()
	req.False(ok)
}

func TestSubscribeSSE_NonSuccessStatusCloses(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	sub := SubscribeSSE(context.Background(), srv.Client(), srv.URL+"/events/", logs.GetLoggerFromLevel(slog.LevelDebug))

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
	req.Equal(Closed, sub.State())
	req.ErrorIs(sub.Err(), apperr.ErrRemoteRejection)
}

func TestSubscribeSSE_WrongContentTypeCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "{}")
	}))
	defer srv.Close()

	sub := SubscribeSSE(context.Background(), srv.Client(), srv.URL, logs.GetLoggerFromLevel(slog.LevelDebug))
	<-sub.Done()
	require.ErrorIs(t, sub.Err(), apperr.ErrParse)
}

func TestSubscribeWebSocket(t *testing.T) {
	req := require.New(t)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(model.StreamEvent{Type: "message", ID: "3", Data: []byte(`{"Content":"over ws"}`)})
		conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	sub := SubscribeWebSocket(context.Background(), nil, url, logs.GetLoggerFromLevel(slog.LevelDebug))
	defer sub.Close()

	ev := nextEvent(t, sub)
	req.Equal("message", ev.Type)
	req.Equal("3", ev.ID)
	req.JSONEq(`{"Content":"over ws"}`, string(ev.Data))
	req.Equal(Open, sub.State())

	req.NoError(sub.Close())
	req.Equal(Closed, sub.State())
}

func TestSubscribeWebSocket_HandshakeRejectedCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sub := SubscribeWebSocket(context.Background(), nil, url, logs.GetLoggerFromLevel(slog.LevelDebug))
	<-sub.Done()
	require.ErrorIs(t, sub.Err(), apperr.ErrRemoteRejection)
}
