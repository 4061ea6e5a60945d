package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"msgboard/internal/apperr"
)

// MaxLineSize bounds a single text/event-stream line
const MaxLineSize = 64 * 1024

// eventReader parses a text/event-stream body
type eventReader struct {
	scanner     *bufio.Scanner
	lastEventID string
	retry       time.Duration
}

func newEventReader(r io.Reader) *eventReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), MaxLineSize)
	s.Split(scanLines)
	return &eventReader{scanner: s}
}

// next returns the next dispatched event. Blocks without a data field are
// not dispatched, but their id and retry fields still apply.
func (r *eventReader) next() (Event, error) {
	var (
		eventType string
		data      [][]byte
		hasData   bool
	)

	for r.scanner.Scan() {
		line := r.scanner.Bytes()

		if len(line) == 0 {
			if !hasData {
				eventType = ""
				continue
			}
			return Event{
				Type: eventType,
				ID:   r.lastEventID,
				Data: bytes.Join(data, []byte("\n")),
			}, nil
		}

		// comment
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			value = bytes.TrimPrefix(value, []byte(" "))
		}

		switch string(field) {
		case "event":
			eventType = string(value)
		case "data":
			data = append(data, append([]byte(nil), value...))
			hasData = true
		case "id":
			if bytes.IndexByte(value, 0) < 0 {
				r.lastEventID = string(value)
			}
		case "retry":
			if ms, err := strconv.Atoi(string(value)); err == nil && ms >= 0 {
				r.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	// an unterminated block at end of stream is discarded
	return Event{}, io.EOF
}

// scanLines splits on LF, CRLF or a lone CR
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// CR: need one more byte to know whether an LF follows
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// SubscribeSSE follows a text/event-stream endpoint. The connection is
// re-established after the server ends the stream, waiting the advertised
// retry delay and sending Last-Event-ID. A non-200 answer or another
// content type closes the subscription.
func SubscribeSSE(ctx context.Context, client *http.Client, url string, log *slog.Logger) *Subscription {
	if client == nil {
		client = http.DefaultClient
	}
	log = log.With("transport", "sse", "url", url)

	return start(ctx, log, func(ctx context.Context, s *Subscription) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fatal(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
		if s.lastEventID != "" {
			req.Header.Set("Last-Event-ID", s.lastEventID)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fatal(&apperr.StatusError{Op: "GET " + url, Status: resp.StatusCode})
		}
		mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if err != nil || !strings.EqualFold(mediaType, "text/event-stream") {
			return fatal(fmt.Errorf("%w: unexpected content type %q", apperr.ErrParse, resp.Header.Get("Content-Type")))
		}

		s.setState(Open)

		reader := newEventReader(resp.Body)
		reader.lastEventID = s.lastEventID
		for {
			ev, err := reader.next()
			s.lastEventID = reader.lastEventID
			if reader.retry > 0 {
				s.setRetry(reader.retry)
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
			}
			if !s.emit(ctx, ev) {
				return ctx.Err()
			}
		}
	})
}
