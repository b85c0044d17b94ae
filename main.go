package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"fxrisk/config"
	"fxrisk/internal/metrics"
	"fxrisk/internal/notify"
	"fxrisk/internal/pipeline"
	"fxrisk/internal/store"
	"fxrisk/internal/tasty"
	"fxrisk/internal/writer"
	"fxrisk/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	job := flag.String("job", pipeline.JobRisk, "Job to run: risk, masterdata or nav")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	runID := uuid.NewString()
	log.WithFields(logger.Fields{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
		"env":     config.AppEnvironment(),
		"job":     *job,
		"run_id":  runID,
	}).Info("starting fxrisk")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}
	metrics.Init(ctx, cfg.Metrics.ListenAddr)

	if strings.ToLower(cfg.Logging.Level) == "debug" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	if err := run(ctx, cfg, *job, runID); err != nil {
		log.WithError(err).WithFields(logger.Fields{"job": *job, "run_id": runID}).Error("job failed")
		os.Exit(1)
	}
	logger.LogReport(context.WithoutCancel(ctx), log)
}

func run(ctx context.Context, cfg *config.Config, job, runID string) error {
	st, err := store.Open(cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := []pipeline.Option{pipeline.WithNotifier(notify.New(cfg.Notify.Discord))}
	if cfg.Storage.S3.Enabled {
		archive, err := writer.NewArchive(ctx, cfg.Storage.S3)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithArchive(archive))
	}

	report, err := pipeline.NewRunner(cfg, tasty.NewClient(cfg.API), st, runID, opts...).Run(ctx, job)
	if err != nil {
		return err
	}
	if report != nil {
		fmt.Print(report.Table)
	}
	return nil
}
