// Command shellserver-repl is a small interactive shell driven by the
// shellserver daemon. The daemon renders the prompt, keeps the directory
// jump history and feeds the fuzzy path predictions shown while typing.
//
// Usage:
//
//	shellserver-repl              # interactive shell
//	shellserver-repl p docs       # print the directory of a path reference
//	cd "$(shellserver-repl pz proj)"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	shellserver "github.com/Paranoid-AF/shellserver"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	a.detach()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig(path string) (*shellserver.Config, error) {
	var (
		cfg *shellserver.Config
		err error
	)
	if path == "" {
		cfg, err = shellserver.LoadConfig()
	} else {
		cfg, err = shellserver.LoadConfigFile(path)
	}
	if err != nil {
		return nil, err
	}
	for _, w := range shellserver.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}
	return cfg, nil
}
