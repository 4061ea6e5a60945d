package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mama165/sdk-go/logs"

	"msgboard/internal/address"
	"msgboard/internal/api"
	"msgboard/internal/apperr"
	"msgboard/internal/config"
	"msgboard/internal/feed"
	"msgboard/internal/render"
	"msgboard/internal/stream"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const (
	cmdQuit = "/quit"
	cmdName = "/name"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// lineInput holds the line being submitted
type lineInput struct {
	value string
}

func (l *lineInput) Value() string { return l.value }
func (l *lineInput) Clear()        { l.value = "" }

func run() (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return exitConfig, err
	}

	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := api.New(cfg.BaseURL, nil, cfg.RequestTimeout, log)
	if err != nil {
		return exitConfig, err
	}

	renderer := render.NewWriter(os.Stdout)
	resolver := address.NewResolver(address.NewPionGatherer(cfg.ICEServers), cfg.ResolveTimeout, log)

	// the push channel outlives any request timeout
	var sub *stream.Subscription
	switch cfg.StreamTransport {
	case config.TransportWebSocket:
		sub = stream.SubscribeWebSocket(ctx, nil, client.WebSocketURL(), log)
	default:
		sub = stream.SubscribeSSE(ctx, &http.Client{}, client.EventsURL(), log)
	}
	defer sub.Close()

	history := feed.NewHistory(client, client, renderer, log)
	history.SkipUnresolved = cfg.SkipUnresolved
	live := feed.NewLive(renderer, log)

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := history.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("History sync failed", "kind", apperr.Kind(err), "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = live.Run(ctx, sub.Events())
		if err := sub.Err(); err != nil {
			log.Error("Live stream closed", "kind", apperr.Kind(err), "error", err)
		}
	}()

	log.Info(fmt.Sprintf(">>> Connected to %s (%s). Type a message, %s <username> or %s",
		cfg.BaseURL, cfg.StreamTransport, cmdName, cmdQuit))

	composer := feed.NewComposer(resolver, client, renderer, log)
	lines := readLines(os.Stdin)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if !handleLine(ctx, log, line, composer, resolver, client) {
				break loop
			}
		}
	}

	log.Info("Stopping client...")
	stop()
	_ = sub.Close()
	wg.Wait()
	return exitOK, nil
}

// handleLine reports false when the user asked to quit.
func handleLine(ctx context.Context, log *slog.Logger, line string,
	composer *feed.Composer, resolver *address.Resolver, client *api.Client) bool {

	switch {
	case line == cmdQuit:
		return false
	case strings.HasPrefix(line, cmdName+" "):
		username := strings.TrimSpace(strings.TrimPrefix(line, cmdName+" "))
		addr, err := resolver.Resolve(ctx)
		if err != nil {
			log.Error("Could not resolve address", "kind", apperr.Kind(err), "error", err)
			return true
		}
		if err := client.SetUser(ctx, addr, username); err != nil {
			log.Error("Could not set username", "kind", apperr.Kind(err), "error", err)
			return true
		}
		log.Info("Username set", "address", addr, "username", username)
	default:
		if err := composer.Submit(ctx, &lineInput{value: line}); err != nil {
			log.Error("Submission failed", "kind", apperr.Kind(err), "error", err)
		}
	}
	return true
}

// readLines streams stdin lines until EOF. A pending read is not
// interrupted on shutdown.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
