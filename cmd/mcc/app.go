package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jrsteele09/mcc-client/apiclient"
	"github.com/jrsteele09/mcc-client/internal/config"
	"github.com/jrsteele09/mcc-client/pages"
	"github.com/jrsteele09/mcc-client/router"
	"github.com/jrsteele09/mcc-client/sessions"
	"github.com/jrsteele09/mcc-client/storage"
	"github.com/jrsteele09/mcc-client/storage/filestore"
	"github.com/jrsteele09/mcc-client/storage/redisstore"
	"github.com/jrsteele09/mcc-client/storage/sqlitestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app is one command's wiring: durable state, the session, the gateway and the
// router, all talking to the console.
type app struct {
	cfg     config.Config
	state   *storage.State
	store   *sessions.Store
	client  *apiclient.Client
	manager *sessions.Manager
	router  *router.Router
	console *console
	close   func() error
}

type appOptions struct {
	loadPages bool
}

type appOption func(*appOptions)

// withPageLoading makes navigation fetch and print page data.
func withPageLoading() appOption {
	return func(o *appOptions) {
		o.loadPages = true
	}
}

func newApp(ctx context.Context, cfg config.Config, out *console, options ...appOption) (*app, error) {
	var opts appOptions
	for _, opt := range options {
		opt(&opts)
	}

	repo, closeRepo, err := openStateRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, console: out, close: closeRepo}
	a.state = storage.NewState(repo)

	if err := a.wire(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, opts appOptions) error {
	var err error
	if a.store, err = sessions.NewStore(a.state); err != nil {
		return err
	}

	jar, err := apiclient.NewPersistentJar(ctx, a.state, a.cfg.GetBaseURL())
	if err != nil {
		return err
	}
	if a.client, err = apiclient.New(a.cfg, a.store, apiclient.WithCookieJar(jar)); err != nil {
		return err
	}

	var routerOptions []router.RouterOption
	if opts.loadPages {
		loader, err := pages.NewLoader(a.client)
		if err != nil {
			return err
		}
		routerOptions = append(routerOptions, router.WithLoader(loader, a.console.showPage))
	}
	if a.router, err = router.New(a.state, routerOptions...); err != nil {
		return err
	}

	a.manager, err = sessions.NewManager(a.store, a.client, a.console,
		sessions.WithNavigator(a.router),
		sessions.WithNotifier(a.console),
	)
	return err
}

func (a *app) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// openStateRepo opens the configured state backend.
func openStateRepo(ctx context.Context, cfg config.StorageConfig) (storage.Repo, func() error, error) {
	switch cfg.GetStateBackend() {
	case config.StateBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.GetRedisAddr(), err)
		}
		return redisstore.NewWithPrefix(client, cfg.GetRedisPrefix()), client.Close, nil
	case config.StateBackendSQLite:
		store, err := sqlitestore.Open(ctx, cfg.GetSQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StateBackendFile:
		return filestore.New(cfg.GetStateDir()), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.GetStateBackend())
	}
}

func setupLogging(cfg config.EnvConfig, verbose bool) {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

var errNotSignedIn = errors.New("not signed in")
