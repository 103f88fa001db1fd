package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spam_filter/internal/cli"
	"spam_filter/pkg/apperr"
)

func main() {
	// Load .env file if exists (for local development)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx, cli.NewApp(), os.Args[1:])
	stop()

	if err != nil {
		appErr := apperr.AsAppError(err)
		fmt.Fprintf(os.Stderr, "spamfilter: %s: %v\n", appErr.Code, err)
		os.Exit(appErr.ExitCode)
	}
}
