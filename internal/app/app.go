package app

import (
	"context"
	"errors"
	"sync"

	"github.com/bassista/go_devbytes/internal/cache"
	"github.com/bassista/go_devbytes/internal/config"
	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/reporting"
	"github.com/bassista/go_devbytes/internal/store"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config   *config.Config
	Store    store.Store
	Repo     *cache.Repository
	Reporter *reporting.Reporter

	BaseCtx context.Context
	Cancel  context.CancelFunc

	shutdown sync.Once
}

func New(cfg *config.Config, st store.Store, repo *cache.Repository, rep *reporting.Reporter) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if st == nil {
		return nil, errors.New("store is nil")
	}
	if repo == nil {
		return nil, errors.New("cache repository is nil")
	}
	if rep == nil {
		rep = &reporting.Reporter{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:   cfg,
		Store:    st,
		Repo:     repo,
		Reporter: rep,
		BaseCtx:  ctx,
		Cancel:   cancel,
	}, nil
}

// Shutdown cancels background work, closes the store and flushes pending reports.
// It is safe to call more than once.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.shutdown.Do(func() {
		a.Cancel()
		if err := a.Store.Close(); err != nil {
			logger.WithComponent("app").Errorf("closing store: %v", err)
		}
		a.Reporter.Flush()
	})
}

// StartupRefresh triggers one refresh on BaseCtx when refresh.on_startup is set.
// The returned channel delivers its result; it is nil when nothing was started.
func (a *App) StartupRefresh() <-chan error {
	if !a.Config.Refresh.OnStartup {
		return nil
	}

	log := logger.WithComponent("app")
	log.Info("refreshing playlist on startup")
	result := a.Repo.RefreshAsync(a.BaseCtx)
	out := make(chan error, 1)
	go func() {
		err := <-result
		if err != nil {
			log.Warnf("startup refresh failed, serving the last committed playlist: %v", err)
		}
		out <- err
	}()
	return out
}
