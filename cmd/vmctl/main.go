package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"vmctl/internal/app"
	"vmctl/internal/config"
	"vmctl/internal/transports/cli"
	"vmctl/pkg/logger"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	lg := logger.New("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var a *app.App
	load := func(ctx context.Context, path string) (*cli.Env, error) {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		lg = logger.New(cfg.Agent.LogLevel)
		a, err = app.NewApp(ctx, cfg, app.Options{Logger: lg})
		if err != nil {
			return nil, err
		}
		return a.Env(), nil
	}

	root := cli.New(load, buildVersion())
	err := root.ExecuteContext(ctx)
	if a != nil {
		if cerr := a.Close(); cerr != nil {
			lg.Warn("close storage", "err", cerr)
		}
	}
	if err != nil {
		lg.Error("command failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
