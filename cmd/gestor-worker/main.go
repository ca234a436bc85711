package main

import (
	"context"
	"errors"
	"os"

	"gestor/internal/amqp"
	"gestor/internal/cli"
	"gestor/internal/config"
	"gestor/internal/kafka"
	"gestor/internal/log"
	"gestor/internal/services"
	gsheet "gestor/internal/sheets/google"
	"gestor/internal/store"
	"gestor/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting gestor-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	}

	var kafkaConsumer *kafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaConsumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		defer kafkaConsumer.Close()
		logger.Info("Kafka consumer initialized", "topic", cfg.KafkaTopic, "group_id", cfg.KafkaGroupID)
	}

	processor := services.NewMirrorProcessor(repo, sheetsClient, services.MirrorProcessorConfig{
		PollInterval: cfg.MirrorInterval,
	})
	tables := make([]string, 0, len(store.Tables()))
	for name := range store.Tables() {
		tables = append(tables, name)
	}
	mirrorWorker := worker.NewMirrorWorker(processor, tables, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Warn("Mirror processor stop failed", log.FieldError, err)
		}
	})

	if err := mirrorWorker.StartupMirror(ctx); err != nil {
		logger.Error("Startup mirror failed", log.FieldError, err)
	}

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start mirror processor", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeSnapshotCommits(ctx, mirrorWorker.HandleSnapshotCommitted)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}
	if kafkaConsumer != nil {
		go func() {
			err := kafkaConsumer.Consume(ctx, mirrorWorker.HandleSnapshotEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Kafka consumption failed", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
}
