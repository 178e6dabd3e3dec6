// Command trackstream-monitor is a terminal dashboard over a live
// trackstream.Session: a demo/collaborator, not part of the core SDK.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackstream"
	"trackstream/internal/config"
	"trackstream/internal/logging"
	"trackstream/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML defaults file")
	connArg := flag.String("conn", "", "connection string: <port> | <mcast-ip>:<port> | <host>:<port> | <host>:<port>:fw")
	logLevel := flag.String("log-level", "", "debug|info|warn|error")
	flag.Parse()

	connStr := *connArg
	level := logging.Info
	var opts trackstream.Options

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trackstream-monitor: loading config: %v\n", err)
			os.Exit(1)
		}
		if connStr == "" {
			connStr = cfg.Connection.String
		}
		if *logLevel == "" {
			*logLevel = cfg.LogLevel
		}
		opts.DataTimeout = time.Duration(cfg.Timeouts.DataMs) * time.Millisecond
		opts.CommandTimeout = time.Duration(cfg.Timeouts.CommandMs) * time.Millisecond
		opts.DataBufferSize = cfg.BufferSizeBytes
	}
	if connStr == "" {
		connStr = flag.Arg(0)
	}
	if connStr == "" {
		fmt.Fprintln(os.Stderr, "trackstream-monitor: missing connection string (use -conn or a positional argument)")
		os.Exit(1)
	}

	switch *logLevel {
	case "debug":
		level = logging.Debug
	case "warn":
		level = logging.Warn
	case "error":
		level = logging.Error
	}
	opts.Logger = logging.New(os.Stderr, level)

	session, err := trackstream.New(connStr, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackstream-monitor: starting session: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	session.StartMeasurement()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			session.Receive(ctx)
		}
	}()

	model := tui.NewModel(session)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "trackstream-monitor: running TUI: %v\n", err)
		os.Exit(1)
	}
}
