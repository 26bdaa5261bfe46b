package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/journal"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/stream"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/utilities"
)

func main() {
	// best-effort: without a .env the real environment is used as is
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-dashboard-go")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := cfg.NewRemote(sugar)
	if err != nil {
		sugar.Fatalf("remote client: %v", err)
	}

	js, db, err := journal.Open(ctx, database.ConfigFromEnv(), sugar)
	if err != nil {
		sugar.Fatalf("journal: %v", err)
	}
	if db != nil {
		defer db.Close()
		sugar.Info("mutation journal enabled")
	}

	opts := cfg.ListOptions()
	opts.Logger = sugar
	list := user.NewOrchestrator(remote, opts)
	svc := user.NewUserService(remote, list, journal.AsRecorder(js), sugar)

	hub := stream.NewHub(func() stream.Message {
		return stream.Message{Type: "snapshot", Data: list.Snapshot()}
	}, sugar)
	go hub.Run(ctx)
	unsubscribe := list.Subscribe(func(s user.Snapshot) {
		hub.Publish(stream.Message{Type: "snapshot", Data: s})
	})
	defer unsubscribe()

	if err := list.Mount(ctx, cfg.ListMode()); err != nil {
		// the snapshot carries the error; a manual refresh can recover
		sugar.Warnw("initial fetch failed", "err", err)
	}

	go func() {
		if err := user.NewDriver(list, nil, sugar).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			sugar.Warnw("refresh driver stopped", "err", err)
		}
	}()

	handler := router.RegisterRoutes(router.Deps{Users: svc, Journal: js, Hub: hub, Logger: sugar})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", cfg.HTTPAddr, "mode", cfg.ListMode().String())

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	list.Unmount()

	sugar.Info("goodbye")
}
