package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/techfix/techfix/internal/app"
	"github.com/techfix/techfix/internal/invoicing"
	"github.com/techfix/techfix/internal/invoicing/export"
	invoicehttp "github.com/techfix/techfix/internal/invoicing/http"
	"github.com/techfix/techfix/internal/observability"
	"github.com/techfix/techfix/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	metrics := observability.NewMetrics()

	stores, err := app.OpenStores(ctx, cfg, logger, metrics)
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

	jobClient := jobs.NewClient(cfg.AsynqRedis())
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	service := invoicing.NewService(stores.Invoices, invoicing.Options{
		Enqueuer: jobClient,
		Metrics:  metrics,
		Logger:   logger,
	})

	inspector := asynq.NewInspector(cfg.AsynqRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		InvoiceHandler: invoicehttp.NewHandler(invoicehttp.Config{
			Logger:   logger,
			Service:  service,
			PDFs:     stores.PDFs,
			Renderer: export.NewPDF(money, cfg.CompanyName),
			Money:    money,
			Metrics:  metrics,
		}),
		JobHandler: jobs.NewHandler(inspector, logger),
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("invoice_store", cfg.InvoiceStore))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
