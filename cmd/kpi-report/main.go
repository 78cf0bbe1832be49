// Command kpi-report prints one dashboard view as JSON, reading the same
// environment as the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/godilite/helpdesk-kpi/internal/app"
	"github.com/godilite/helpdesk-kpi/internal/config"
	"github.com/godilite/helpdesk-kpi/internal/service"
	"github.com/joho/godotenv"
)

const (
	exitOK = iota
	exitError
	exitNoData
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadFromEnv()
	open := func() (views, error) {
		logger, err := config.NewLogger(cfg)
		if err != nil {
			return nil, err
		}
		return app.NewDashboard(cfg, logger.Named("kpi-report"))
	}

	cmd := newRootCmd(open, os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, service.ErrNoData) {
			fmt.Fprintln(os.Stderr, "no data for the selected filter")
			return exitNoData
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}
	return exitOK
}
