package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/techfix/techfix/internal/app"
	"github.com/techfix/techfix/internal/invoicing/export"
	jobmetrics "github.com/techfix/techfix/internal/jobs"
	"github.com/techfix/techfix/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	stores, err := app.OpenStores(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("open invoice stores", slog.Any("error", err))
		os.Exit(1)
	}
	defer stores.Close()

	money, err := export.NewMoney(cfg.InvoiceCurrency)
	if err != nil {
		logger.Error("invoice currency", slog.Any("error", err))
		os.Exit(1)
	}

	renderJob := jobs.NewInvoiceRenderJob(
		stores.Invoices,
		export.NewPDF(money, cfg.CompanyName),
		stores.PDFs,
		logger,
		jobmetrics.NewMetrics(nil),
	)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.AsynqRedis(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceRenderPDF, Handler: renderJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
