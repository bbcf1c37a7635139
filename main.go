package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"goldflow/config"
	"goldflow/logger"
	"goldflow/notifier"
	"goldflow/reader/goldapi"
	"goldflow/shopify"
	"goldflow/workflow"
	"goldflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	workflowName := flag.String("workflow", "auto", "Workflow to run: auto, manual or diamond")
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

	params, err := config.LoadRunParams()
	if err != nil {
		log.WithError(err).Error("Failed to load run parameters")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Goldflow.Name,
		"version":     cfg.Goldflow.Version,
		"workflow":    *workflowName,
		"environment": config.AppEnvironment(),
	}).Info("starting goldflow")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	archive, err := writer.NewArchiveWriter(cfg)
	if err != nil {
		log.WithError(err).Error("Failed to create archive writer")
		os.Exit(1)
	}

	client := shopify.NewClient(cfg)
	env := &workflow.Env{
		Cfg:        cfg,
		Params:     params,
		Log:        log,
		Shopify:    client,
		Rates:      goldapi.NewReader(cfg),
		Dispatcher: writer.NewDispatcher(client),
		Archive:    archive,
		Notifier:   notifier.NewNotifier(cfg),
	}

	var result workflow.Result
	switch strings.ToLower(*workflowName) {
	case "auto":
		result, err = workflow.Auto(ctx, env)
	case "manual":
		result, err = workflow.Manual(ctx, env)
	case "diamond":
		result, err = workflow.Diamond(ctx, env)
	default:
		log.WithFields(logger.Fields{"workflow": *workflowName}).Error("unknown workflow")
		os.Exit(1)
	}

	if err != nil {
		log.WithError(err).Error("workflow run failed")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"run_id":  result.RunID,
		"changes": result.Changes,
		"failed":  result.Failed,
	}).Info("goldflow finished")

	if result.Failed > 0 {
		os.Exit(1)
	}
}
