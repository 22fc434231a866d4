// ABOUTME: Entry point for the coven-link console client
// ABOUTME: Connects an operator session to a gateway and drives a chat REPL

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-link/internal/client"
	"github.com/2389/coven-link/internal/config"
	"github.com/2389/coven-link/internal/events"
	"github.com/2389/coven-link/internal/identity"
	"github.com/2389/coven-link/internal/router"
	"github.com/2389/coven-link/internal/session"
	"github.com/2389/coven-link/internal/transcript"
	"github.com/2389/coven-link/internal/wire"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the link config file.
// Priority: COVEN_LINK_CONFIG env var > XDG_CONFIG_HOME/coven/link.yaml > ~/.config/coven/link.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_LINK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "link.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "link.yaml")
}

func main() {
	command := "chat"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "chat":
		err = runChat(ctx)
	case "sessions":
		err = runSessions(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprintln(os.Stderr, "Usage: coven-link [command]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  chat      Connect and start an interactive chat (default)")
		fmt.Fprintln(os.Stderr, "  sessions  List chat sessions on the gateway")
		fmt.Fprintln(os.Stderr, "  version   Print the version")
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect loads config and identity and brings up an operator session.
func connect(ctx context.Context, logger *slog.Logger, cfg *config.Config, onState func(session.State), onEvent func(*wire.Event)) (*session.Session, error) {
	var id *identity.Identity
	if cfg.Identity.KeyPath != "" {
		loaded, err := identity.Load(cfg.Identity.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("loading identity: %w", err)
		}
		id = loaded
		logger.Info("loaded device identity", "fingerprint", id.Fingerprint())
	}

	if cfg.Gateway.Token != "" {
		if expiry, err := identity.TokenExpiry(cfg.Gateway.Token); err == nil {
			logger.Debug("token expiry", "at", expiry)
		}
	}

	sess := session.New(session.Options{
		URL:               cfg.Gateway.URL,
		Role:              session.RoleOperator,
		Scopes:            cfg.Client.Scopes,
		ClientID:          cfg.Client.ID,
		ClientMode:        cfg.Client.Mode,
		ClientVersion:     cfg.Client.Version,
		Platform:          cfg.Client.Platform,
		Token:             cfg.Gateway.Token,
		Identity:          id,
		HandshakeTimeout:  cfg.Session.HandshakeTimeout,
		CommandTimeout:    cfg.Session.CommandTimeout,
		HeartbeatInterval: cfg.Session.HeartbeatInterval,
		HeartbeatTimeout:  cfg.Session.HeartbeatTimeout,
		ReconnectBase:     cfg.Session.ReconnectBase,
		ReconnectCap:      cfg.Session.ReconnectCap,
		MaxReconnects:     cfg.Session.MaxReconnects,
		OnState:           onState,
		OnEvent:           onEvent,
		Logger:            logger,
	})

	if err := sess.Connect(ctx); err != nil {
		sess.Disconnect()
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Gateway.URL, err)
	}
	return sess, nil
}

// conversationFanout feeds canonical events to the console and the transcript.
type conversationFanout struct {
	sinks []router.ConversationSink
}

func (f *conversationFanout) PostEvent(evt *events.Canonical) {
	for _, sink := range f.sinks {
		sink.PostEvent(evt)
	}
}

func runChat(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	cons := newConsole()
	record := transcript.New(logger)
	defer record.Close()

	translator := events.NewTranslator(logger)
	rtr := router.New(&conversationFanout{sinks: []router.ConversationSink{cons, record}}, cons, cons, logger)

	// State changes arrive on session goroutines; the REPL below only
	// reads from stdin, so the console serializes output itself.
	reconnected := make(chan struct{}, 1)
	onState := func(state session.State) {
		cons.showState(state.String())
		if state == session.StateConnected {
			// A fresh connection restarts the event sequence space.
			rtr.ResetSequence()
			select {
			case reconnected <- struct{}{}:
			default:
			}
		}
	}
	onEvent := func(evt *wire.Event) {
		if canonical, ok := translator.Translate(evt); ok {
			rtr.Dispatch(canonical)
		}
	}

	sess, err := connect(ctx, logger, cfg, onState, onEvent)
	if err != nil {
		return err
	}
	defer sess.Disconnect()
	<-reconnected

	api := client.New(sess)
	sessionKey, err := pickSession(ctx, api)
	if err != nil {
		return err
	}
	logger.Info("chatting", "session", sessionKey)

	if messages, err := api.History(ctx, sessionKey); err == nil {
		record.MergeHistory(messages)
	} else {
		logger.Warn("initial history load failed", "error", err)
	}

	// Replay history whenever a connection re-establishes.
	var wg sync.WaitGroup
	wg.Add(1)
	replayCtx, stopReplay := context.WithCancel(context.Background())
	defer func() {
		stopReplay()
		wg.Wait()
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-replayCtx.Done():
				return
			case <-reconnected:
			}
			messages, err := api.History(replayCtx, sessionKey)
			if err != nil {
				logger.Warn("history replay failed", "error", err)
				continue
			}
			record.MergeHistory(messages)
		}
	}()

	return repl(ctx, api, record, sessionKey)
}

func repl(ctx context.Context, api *client.Client, record *transcript.Transcript, sessionKey string) error {
	var lastRun string
	scanner := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.FgGreen, color.Bold)

	for {
		prompt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/q":
			return nil

		case line == "/abort":
			if lastRun == "" {
				fmt.Println("no run to abort")
				continue
			}
			if err := api.AbortChat(ctx, sessionKey, lastRun); err != nil {
				fmt.Fprintf(os.Stderr, "abort failed: %v\n", err)
			}

		case strings.HasPrefix(line, "/export "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/export "))
			if err := exportTranscript(record, path); err != nil {
				fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			} else {
				fmt.Printf("wrote %s\n", path)
			}

		case strings.HasPrefix(line, "/"):
			fmt.Println("commands: /abort, /export <file>, /quit")

		default:
			record.AddUser(line)
			result, err := api.SendChat(ctx, sessionKey, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				continue
			}
			lastRun = result.RunID
		}
	}
}

// pickSession reuses the first existing session or creates one.
func pickSession(ctx context.Context, api *client.Client) (string, error) {
	sessions, err := api.ListSessions(ctx)
	if err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) > 0 {
		return sessions[0].Key, nil
	}
	created, err := api.CreateSession(ctx, "coven-link")
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return created.Key, nil
}

func exportTranscript(record *transcript.Transcript, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := record.ExportHTML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runSessions(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	sess, err := connect(ctx, logger, cfg, nil, nil)
	if err != nil {
		return err
	}
	defer sess.Disconnect()

	sessions, err := client.New(sess).ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	for _, s := range sessions {
		if s.Label != "" {
			fmt.Printf("%s  %s\n", s.Key, color.HiBlackString(s.Label))
		} else {
			fmt.Println(s.Key)
		}
	}
	return nil
}
