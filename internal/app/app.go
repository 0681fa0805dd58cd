package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/user"
	"time"

	"vmctl/internal/config"
	"vmctl/internal/core"
	"vmctl/internal/dispatch"
	"vmctl/internal/modules/host"
	"vmctl/internal/modules/vm"
	"vmctl/internal/script"
	"vmctl/internal/storage"
	"vmctl/internal/storage/sqlite"
	"vmctl/internal/transports/cli"
)

// App агрегирует зависимости ядра.
type App struct {
	Registry *core.Registry
	VM       *vm.Manager
	Store    storage.Store
	Config   config.Config
}

// Options позволяет подменить транспорт до приложения (тесты).
type Options struct {
	Invoker  script.Invoker
	Selector vm.AppSelector
	Logger   *slog.Logger
}

// NewApp строит приложение: транспорт, диспетчер, модули, историю.
func NewApp(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	if opts.Invoker == nil {
		osa := script.NewOSAScript(cfg.App.OSAScript, cfg.App.Name, time.Duration(cfg.App.TimeoutMS)*time.Millisecond)
		opts.Invoker, opts.Selector = osa, osa
	}

	var st storage.Store
	if cfg.SQLite.Path != "" {
		s, err := sqlite.Open(ctx, cfg.SQLite.Path, cfg.SQLite.RetentionDays)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		st = s
	}

	regOpts := []core.Option{
		core.WithAuthorizer(core.NewDenylistAuthorizer(cfg.Security.Deny)),
		core.WithSubject(core.Subject{Source: "cli", ID: currentUser()}),
		core.WithLogger(lg),
	}
	if st != nil {
		regOpts = append(regOpts, core.WithAudit(st))
	}
	r := core.NewRegistry(regOpts...)

	hostMod := &host.Module{}
	if err := r.Register(ctx, hostMod); err != nil {
		closeStore(st)
		return nil, fmt.Errorf("register host module: %w", err)
	}
	d := dispatch.New(opts.Invoker, lg)
	mgr := vm.NewManager(d, hostMod, lg)
	if err := r.Register(ctx, vm.NewModule(mgr, opts.Selector, cfg.App.Name, cfg.App.Candidates)); err != nil {
		closeStore(st)
		return nil, fmt.Errorf("register vm module: %w", err)
	}

	return &App{Registry: r, VM: mgr, Store: st, Config: cfg}, nil
}

// Env отдает зависимости CLI.
func (a *App) Env() *cli.Env {
	env := &cli.Env{
		Registry:     a.Registry,
		Progress:     a.VM.Progress,
		PollInterval: time.Duration(a.Config.Progress.IntervalMS) * time.Millisecond,
	}
	if a.Store != nil {
		env.History = a.Store
	}
	return env
}

// Close высвобождает ресурсы приложения.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func closeStore(st storage.Store) {
	if st != nil {
		_ = st.Close()
	}
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
