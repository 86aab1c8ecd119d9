// Package app assembles the bot: infrastructure via the bootstrap pipeline,
// then the domain services and the Telegram surface.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/doxlab/passbot/core/bootstrap"
	"github.com/doxlab/passbot/core/cmd"
	tg "github.com/doxlab/passbot/core/telegram"
	"github.com/doxlab/passbot/core/telegram/router"
	"github.com/doxlab/passbot/core/telegram/state"
	"github.com/doxlab/passbot/internal/bot"
	"github.com/doxlab/passbot/internal/config"
	"github.com/doxlab/passbot/internal/flow"
	"github.com/doxlab/passbot/internal/service"
	"github.com/doxlab/passbot/internal/storage"
)

// App holds everything needed to build the Telegram run options.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	sessions state.Manager
	registry *tg.Registry
	fallback *bot.Fallback
}

// serviceProvider builds the domain service from bootstrapped storage.
var serviceProvider = bootstrap.TypedServiceProviderFunc[*service.PasswordService](
	func(ctx context.Context, cfg interface{}, st bootstrap.Storage) (*service.PasswordService, error) {
		store, ok := st.(storage.Store)
		if !ok {
			return nil, fmt.Errorf("app: unexpected storage type %T", st)
		}
		return service.New(store), nil
	},
)

// LoadConfig adapts config.Load to the runner's ConfigCarrier contract.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	return config.Load(path)
}

// Bootstrap initializes logging, storage, and the handler registry.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	store := storage.NewSQLStore(res.DB)
	sessions := state.NewMemoryManager()

	svc, err := serviceProvider.ProvideTyped(context.Background(), cfg, store)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	flows := flow.New(sessions, store, nil)

	handlers := bot.New(svc, flows)
	registry := tg.NewRegistry()
	handlers.Register(registry)

	return &App{
		cfg:      cfg,
		db:       res.DB,
		sessions: sessions,
		registry: registry,
		fallback: handlers.Fallback(),
	}, nil
}

// TelegramRunOptions builds the routes and middleware chain for the runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()

	middlewares := []tg.Middleware{
		{Name: "session", Use: state.WithSession(a.sessions)},
	}
	middlewares = append(middlewares, tg.DefaultMiddlewares(core, nil)...)

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a.sessions, a.registry, router.TextOptions{
		UnknownText:     a.fallback.UnknownText(),
		UnknownDocument: a.fallback.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: a.fallback.UnknownCallback(),
	}))

	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: middlewares,
		Routes:      routes,
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
