package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/BartekS5/fastinsert/internal/cli"
	"github.com/BartekS5/fastinsert/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI with args and returns the exit code. The logger is
// flushed and its file closed on every path.
func run(args []string) int {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file found, using system environment variables")
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	return 0
}
