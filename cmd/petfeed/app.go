package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pet-feeding/internal/bot"
	"pet-feeding/internal/config"
	"pet-feeding/internal/httpapi"
	"pet-feeding/internal/logger"
	"pet-feeding/internal/repository"
	"pet-feeding/internal/service"
)

const shutdownTimeout = 10 * time.Second

type application struct {
	cfg      config.Config
	log      *logrus.Logger
	store    *repository.Store
	feedings *service.FeedingService
	runner   *service.DeliveryRunner
	close    func()
}

func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.Environment)

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	store := repository.NewStore(db, cfg.BatchChunkSize)

	app := &application{
		cfg:      cfg,
		log:      log,
		store:    store,
		feedings: service.NewFeedingService(store, log, cfg.DuplicateWindow, cfg.Location()),
		runner: service.NewDeliveryRunner(
			service.NewDeliveryService(store, log),
			service.NewMissedFeedingService(store, log, cfg.MissedGrace),
			log,
		),
		close: func() {},
	}
	if sqlDB, err := db.DB(); err == nil {
		app.close = func() { _ = sqlDB.Close() }
	}
	return app, nil
}

// newBot returns nil when no Telegram token is configured.
func (a *application) newBot() (*bot.Bot, error) {
	if a.cfg.TelegramToken == "" {
		a.log.Warn("TELEGRAM_TOKEN not set, telegram bot disabled")
		return nil, nil
	}
	return bot.New(a.cfg.TelegramToken, a.store, a.feedings, a.cfg.Location(), a.log)
}

// deliver runs one trigger pass and pushes what it produced to Telegram.
func (a *application) deliver(ctx context.Context, tg *bot.Bot) (service.RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.DeliveryTimeout)
	defer cancel()

	result, err := a.runner.Run(ctx, time.Now())
	if err != nil {
		return result, err
	}
	if tg != nil {
		if _, err := tg.PushPending(ctx); err != nil {
			a.log.WithError(err).Warn("push notifications")
		}
	}
	return result, nil
}

func (a *application) serve(ctx context.Context) error {
	tg, err := a.newBot()
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	scheduler := service.NewSchedulerService(a.cfg.Location(), a.log)
	if _, err := scheduler.Schedule(a.cfg.DeliverySchedule, func() {
		if _, err := a.deliver(context.Background(), tg); err != nil && !errors.Is(err, context.Canceled) {
			a.log.WithError(err).Error("scheduled delivery")
		}
	}); err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Runner:     a.runner,
		Feedings:   a.feedings,
		Users:      a.store.Users,
		CronSecret: a.cfg.CronSecret,
		Log:        a.log,
	})
	server := &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.WithField("address", server.Addr).Info("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if tg != nil {
		g.Go(func() error {
			return tg.Start(gCtx)
		})
	}

	g.Go(func() error {
		scheduler.Start()
		a.log.WithField("schedule", a.cfg.DeliverySchedule).Info("delivery scheduler started")

		<-gCtx.Done()
		a.log.Info("shutting down")

		scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Error("HTTP server shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.log.WithError(err).Error("application error")
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
