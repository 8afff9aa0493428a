// Package main is the urumid entrypoint: it wires the collaborators
// built across pkg/* into one HTTP server plus its background workers,
// and shuts them down cooperatively on signal.
//
// Grounded on the teacher's cmd/knitd/main.go wiring shape (load config,
// open the database, build collaborators, register routes, e.Start) and
// cmd/knitd_backend/main.go's signal.NotifyContext + goroutine + select
// shutdown idiom.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/kshitizz36/Urumi-AI/cmd/urumid/handlers"
	"github.com/kshitizz36/Urumi-AI/pkg/audit/postgres"
	"github.com/kshitizz36/Urumi-AI/pkg/config"
	"github.com/kshitizz36/Urumi-AI/pkg/conn/db/postgres/pool"
	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
	"github.com/kshitizz36/Urumi-AI/pkg/orchestrator"
	"github.com/kshitizz36/Urumi-AI/pkg/posthook"
	"github.com/kshitizz36/Urumi-AI/pkg/ratelimit"
	"github.com/kshitizz36/Urumi-AI/pkg/retry"
	storepg "github.com/kshitizz36/Urumi-AI/pkg/store/postgres"
	"github.com/kshitizz36/Urumi-AI/pkg/tenancy"
	"github.com/kshitizz36/Urumi-AI/pkg/utils/echoutil"
	"github.com/kshitizz36/Urumi-AI/pkg/workload/application"
	"github.com/kshitizz36/Urumi-AI/pkg/workload/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "can not read configuration: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dbPool, err := pgxpool.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can not connect to database: %s\n", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	p := pool.Wrap(dbPool)

	k8sClient, err := gateway.Connect(cfg.KubeconfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can not connect to cluster: %s\n", err)
		os.Exit(1)
	}

	retryPolicy := retry.Policy{
		MaxRetries: cfg.RetryMaxRetries,
		Initial:    cfg.RetryInitialDelay,
		Max:        cfg.RetryMaxDelay,
		Multiplier: 2,
		Jitter:     true,
	}
	gw := gateway.New(k8sClient, retryPolicy)

	storeRepo := storepg.New(p)
	auditLog := postgres.New(p)

	if err := storeRepo.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "can not initialize store schema: %s\n", err)
		os.Exit(1)
	}
	if err := auditLog.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "can not initialize audit schema: %s\n", err)
		os.Exit(1)
	}

	e := echo.New()
	logger := log.New("urumid")
	e.Logger = logger
	echoutil.SetLevel(e, cfg.LogLevel)

	orch := orchestrator.New(
		storeRepo, auditLog, gw,
		tenancy.New(gw), database.New(gw), application.New(gw),
		posthook.New(gw, cfg.PostInstallCommandTimeout, logger),
		cfg, logger,
	)

	reaper := orchestrator.NewReaper(storeRepo, auditLog, gw, cfg, logger)
	go func() {
		if err := reaper.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("reaper stopped: %v", err)
		}
	}()

	e.Use(middleware.Recover())
	e.Use(echoutil.LogHandlerFunc)
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.DELETE},
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.IPExtractor = echo.ExtractIPFromXFFHeader()

	handlers.Register(e, handlers.Deps{
		Orchestrator: orch,
		Audit:        auditLog,
		Gateway:      gw,
		Repository:   storeRepo,
		CreateLimit:  ratelimit.NewStore(5, 10*time.Minute),
		DeleteLimit:  ratelimit.NewStore(10, 10*time.Minute),
		GlobalLimit:  ratelimit.NewStore(100, 15*time.Minute),
	})

	for _, r := range e.Routes() {
		logger.Debugf("mount handler: %s %s", r.Method, r.Path)
	}

	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			ch <- err
		}
	}()

	exit := 0
	select {
	case <-ctx.Done():
		logger.Infof("shutdown signal received: %s", ctx.Err())
	case err := <-ch:
		if err != nil {
			logger.Errorf("server stopped with error: %v", err)
			exit = 1
		}
	}

	logger.Info("shutting down...")
	sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer scancel()
	if err := e.Shutdown(sctx); err != nil {
		logger.Errorf("http shutdown error: %v", err)
		exit = 1
	}
	if err := orch.Shutdown(sctx); err != nil {
		logger.Errorf("orchestrator shutdown error: %v", err)
		exit = 1
	}
	os.Exit(exit)
}
