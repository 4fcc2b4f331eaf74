package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codequery/codequery/internal/api"
	"github.com/codequery/codequery/internal/chunking"
	"github.com/codequery/codequery/internal/config"
	"github.com/codequery/codequery/internal/db"
	"github.com/codequery/codequery/internal/embeddings"
	"github.com/codequery/codequery/internal/ingestion"
	"github.com/codequery/codequery/internal/logging"
	"github.com/codequery/codequery/internal/pipeline"
	"github.com/codequery/codequery/internal/qa"
	"github.com/codequery/codequery/internal/queue"
)

var rootCmd = &cobra.Command{
	Use:   "codequery-server",
	Short: "HTTP API for repository analysis and code question answering",
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

		llm, err := qa.NewOllamaClient(config.OllamaURL(), config.LLMModel(), config.LLMCallTimeout(), logger)
		if err != nil {
			return err
		}
		engine := qa.NewEngine(embedder, store, llm, store, config.LLMModel(), logger)

		cloner := ingestion.NewCloner(config.CloneDir(), config.CloneTimeout(), logger)
		chunker := chunking.New(config.ChunkWindowLines(), logger)
		runner := pipeline.NewRunner(store, cloner, chunker, embedder, ingestion.DiscoverFiles, logger)

		analysisQueue, err := queue.NewFromURL(config.RedisURL(), config.QueueName(), config.ProbeTimeout(), logger)
		if err != nil {
			return err
		}
		defer analysisQueue.Close()
		dispatcher := queue.NewDispatcher(analysisQueue, runner, logger)

		server := api.NewServer(store, engine, dispatcher, database, analysisQueue, logger)

		httpServer := &http.Server{
			Addr:    config.HTTPAddr(),
			Handler: server.Router(),
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error(err, "http shutdown failed")
			}
		}()

		logger.Info("serving", "addr", config.HTTPAddr())
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
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
