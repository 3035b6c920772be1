package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/alnah/avremote/internal/cli"
	"github.com/alnah/avremote/internal/interrupt"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels ctx, a second one forces exit.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()

	rootCmd := cli.StreamCmd(cli.DefaultEnv())
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		handler.Stop()
		os.Exit(cli.ExitCode(err))
	}
}
