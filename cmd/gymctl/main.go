package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/app"
	"github.com/yigalul/gym-appointment/internal/cli"
	"github.com/yigalul/gym-appointment/pkg/config"
	"github.com/yigalul/gym-appointment/pkg/logger"
)

var CLI struct {
	Version  kong.VersionFlag
	Schedule cli.ScheduleCmd `cmd:"" help:"Run and inspect the weekly auto-scheduler."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("gymctl"),
		kong.Description("Operator tooling for the gym appointment backend"),
		kong.UsageOnError(),
		kong.Vars{"version": "v1.0.0"},
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logr)
	if err != nil {
		logr.Error("failed to build application", zap.Error(err))
		os.Exit(1)
	}
	a.Start(ctx)

	err = kctx.Run(&cli.Context{Ctx: ctx, Scheduler: a.AutoSchedule, Out: os.Stdout})
	a.Close(30 * time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
