// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mleitner/leavetray/internal/api"
	"github.com/mleitner/leavetray/internal/badge"
	"github.com/mleitner/leavetray/internal/config"
	"github.com/mleitner/leavetray/internal/countdown"
	"github.com/mleitner/leavetray/internal/log"
	"github.com/mleitner/leavetray/internal/notify"
	"github.com/mleitner/leavetray/internal/report"
	"github.com/mleitner/leavetray/internal/timeutil"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the countdown daemon and host API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "leavetray", Version: version})
	logger := log.WithComponent("daemon")

	renderer := badge.New()
	tray := api.NewTrayState()
	engine := countdown.New(countdown.Options{
		Sink:         tray,
		Notifier:     notify.New(),
		Render:       renderer.RenderLabel,
		TickInterval: cfg.TickInterval,
	})
	defer engine.Stop()

	client := report.New(report.Config{
		ServerURL:         cfg.Report.ServerURL,
		ReportPath:        cfg.Report.ReportPath,
		Username:          cfg.Report.Username,
		Password:          cfg.Report.Password,
		Domain:            cfg.Report.Domain,
		UseIntegratedAuth: cfg.Report.UseIntegratedAuth,
	})

	// Seed the countdown from config so the indicator is live right after
	// boot; the API can replace it at any time.
	if cfg.Shift.Start != "" && cfg.Shift.Leave != "" {
		start, _ := timeutil.Parse(cfg.Shift.Start) // validated by config.Load
		leave, _ := timeutil.Parse(cfg.Shift.Leave)
		engine.Submit(countdown.Shift{
			Start:        start,
			Leave:        leave,
			NotifyBefore: cfg.Shift.NotifyBeforeMinutes,
		})
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.New(engine, client, tray).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("event", "daemon.listen").
			Str("addr", cfg.Listen).
			Msg("host API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str("event", "daemon.shutdown").Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
