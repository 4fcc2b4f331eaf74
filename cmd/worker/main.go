package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codequery/codequery/internal/chunking"
	"github.com/codequery/codequery/internal/config"
	"github.com/codequery/codequery/internal/db"
	"github.com/codequery/codequery/internal/embeddings"
	"github.com/codequery/codequery/internal/ingestion"
	"github.com/codequery/codequery/internal/logging"
	"github.com/codequery/codequery/internal/pipeline"
	"github.com/codequery/codequery/internal/queue"
)

var rootCmd = &cobra.Command{
	Use:   "codequery-worker",
	Short: "Queue consumer running the repository analysis pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(logging.Default(config.LogLevel()))

		database, err := db.NewDatabase(db.Config{DSN: config.PostgresURL(), Debug: config.DBDebug()})
		if err != nil {
			return err
		}
		defer database.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := database.EnsureSchema(ctx, config.AutoMigrate()); err != nil {
			return err
		}

		store := db.NewStore(database)
		embedder := embeddings.New(config.OllamaURL(), config.EmbeddingModel(),
			config.EmbeddingDim(), config.EmbedBatchSize(), logger)
		cloner := ingestion.NewCloner(config.CloneDir(), config.CloneTimeout(), logger)
		chunker := chunking.New(config.ChunkWindowLines(), logger)
		runner := pipeline.NewRunner(store, cloner, chunker, embedder, ingestion.DiscoverFiles, logger)

		analysisQueue, err := queue.NewFromURL(config.RedisURL(), config.QueueName(), config.ProbeTimeout(), logger)
		if err != nil {
			return err
		}
		defer analysisQueue.Close()

		logger.Info("worker started", "queue", config.QueueName())
		if err := analysisQueue.Consume(ctx, runner); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func main() {
	config.Init(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
