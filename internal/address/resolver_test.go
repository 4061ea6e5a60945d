package address

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"msgboard/internal/apperr"
)

type fakeGatherer struct {
	candidates []string
	complete   bool
	err        error
	closed     int
}

func (f *fakeGatherer) Gather(onCandidate func(string), done func()) (io.Closer, error) {
	if f.err != nil {
		return nil, f.err
	}
	go func() {
		for _, c := range f.candidates {
			onCandidate(c)
		}
		if f.complete {
			done()
		}
	}()
	return f, nil
}

func (f *fakeGatherer) Close() error {
	f.closed++
	return nil
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		descriptor string
		want       string
		ok         bool
	}{
		{"candidate:1 1 UDP 2122260223 203.0.113.7 54321 typ host", "203.0.113.7", true},
		{"candidate:842163049 1 udp 1677729535 198.51.100.20 61223 typ srflx raddr 0.0.0.0 rport 0", "198.51.100.20", true},
		{"candidate:2 1 udp 2122262783 2001:db8::1 50000 typ host", "2001:db8::1", true},
		{"candidate:3 1 udp 2122260223 4b2f6c1e-8c1b-4c1e-9f59-8d3c2f3a6f0a.local 54321 typ host", "", false},
		{"candidate:1 1 UDP", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseCandidate(tt.descriptor)
		require.Equal(t, tt.ok, ok, tt.descriptor)
		require.Equal(t, tt.want, got, tt.descriptor)
	}
}

func TestResolver_FirstUsableCandidate(t *testing.T) {
	req := require.New(t)
	g := &fakeGatherer{candidates: []string{
		"candidate:0 1 udp 2122260223 abc.local 54321 typ host",
		"candidate:1 1 UDP 2122260223 203.0.113.7 54321 typ host",
		"candidate:2 1 UDP 2122260223 203.0.113.8 54322 typ host",
	}}
	r := NewResolver(g, time.Second, logs.GetLoggerFromLevel(slog.LevelDebug))

	addr, err := r.Resolve(context.Background())
	req.NoError(err)
	req.Equal("203.0.113.7", addr)
	req.Equal(1, g.closed)
}

func TestResolver_GatheringCompleteWithoutUsableCandidate(t *testing.T) {
	req := require.New(t)
	g := &fakeGatherer{
		candidates: []string{"candidate:0 1 udp 2122260223 abc.local 54321 typ host"},
		complete:   true,
	}
	r := NewResolver(g, time.Second, logs.GetLoggerFromLevel(slog.LevelDebug))

	_, err := r.Resolve(context.Background())
	req.ErrorIs(err, apperr.ErrNoCandidate)
	req.Equal(1, g.closed)
}

func TestResolver_TimesOutWhenNoCandidateArrives(t *testing.T) {
	req := require.New(t)
	g := &fakeGatherer{}
	r := NewResolver(g, 20*time.Millisecond, logs.GetLoggerFromLevel(slog.LevelDebug))

	start := time.Now()
	_, err := r.Resolve(context.Background())
	req.ErrorIs(err, apperr.ErrResolutionTimeout)
	req.Equal("resolution_timeout", apperr.Kind(err))
	req.Less(time.Since(start), time.Second)
	req.Equal(1, g.closed)
}

func TestResolver_NegotiationError(t *testing.T) {
	boom := errors.New("no network interfaces")
	r := NewResolver(&fakeGatherer{err: boom}, time.Second, logs.GetLoggerFromLevel(slog.LevelDebug))

	_, err := r.Resolve(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestResolver_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResolver(&fakeGatherer{}, time.Second, logs.GetLoggerFromLevel(slog.LevelDebug))

	_, err := r.Resolve(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
