package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/bassista/go_devbytes/internal/api/middleware"
	route "github.com/bassista/go_devbytes/internal/api/route"
	appctx "github.com/bassista/go_devbytes/internal/app"
	"github.com/bassista/go_devbytes/internal/cache"
	"github.com/bassista/go_devbytes/internal/config"
	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/remote"
	"github.com/bassista/go_devbytes/internal/reporting"
	"github.com/bassista/go_devbytes/internal/store"
	"github.com/gin-gonic/gin"

	"github.com/enrichman/httpgrace"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	if !logger.SetLevel(cfg.Misc.LogLevel) {
		logger.WithComponent("main").Warnf("invalid log level '%s', using 'info'", cfg.Misc.LogLevel)
	}
	logger.WithComponent("main").Debugf("log level set to: %s", logger.Logger.GetLevel().String())
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)

	reporter := reporting.FromEnv()

	st, err := store.NewStoreFromConfig(context.Background(), cfg.Store)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot open %s store: %v", cfg.Store.Type, err)
	}

	src, err := remote.NewSourceFromConfig(cfg.Remote)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init remote source: %v", err)
	}

	policy, err := cache.ParsePolicy(cfg.Refresh.Policy)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init cache: %v", err)
	}
	repo, err := cache.NewRepository(src, st, cache.Options{
		Policy:    policy,
		Timeout:   cfg.Refresh.Timeout,
		OnFailure: reporter.RefreshFailed,
	})
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init cache: %v", err)
	}

	app, err := appctx.New(cfg, st, repo, reporter)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	app.StartupRefresh()

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(app.Reporter))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSAllowedOrigins))
	route.SetupRoutes(r, app)

	srv := createGraceHttpServer(app.BaseCtx, app.Cancel, "main-server", app.Config.Server, r)
	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Error(err)
	}
}

// Cancelling ctx before shutdown ends open item streams so the drain does not wait for the timeout.
func createGraceHttpServer(ctx context.Context, cancel context.CancelFunc, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
			cancel()
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
