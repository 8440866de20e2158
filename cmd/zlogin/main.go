package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zlogin/internal/cli"
	"github.com/zarlcorp/zlogin/internal/tui"
	"golang.org/x/term"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zlogin"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	code := run(ctx, os.Args[1:])

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		code = 1
	}
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	if len(args) > 0 && args[0] == "version" {
		fmt.Printf("zlogin %s\n", version)
		return 0
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zlogin: %v\n", err)
		return 1
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(log)

	env := cli.Env{
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Log:    log,
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		p := tui.New(os.Stdin, os.Stderr)
		env.UI = p
		env.Unlocker = p
	} else {
		env.UI = cli.NewLineUI(os.Stdin, os.Stderr)
		env.Unlocker = cli.TerminalUnlocker(os.Stdin, os.Stderr)
	}

	if err := cli.Run(ctx, env, args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "zlogin: %v\n", err)
		return 1
	}
	return 0
}
