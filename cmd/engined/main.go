package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/quarryhq/groundctl/internal/audit"
	"github.com/quarryhq/groundctl/internal/config"
	"github.com/quarryhq/groundctl/internal/engine"
	"github.com/quarryhq/groundctl/internal/evidence"
	"github.com/quarryhq/groundctl/internal/logging"
	"github.com/quarryhq/groundctl/internal/planner"
	"github.com/quarryhq/groundctl/internal/provider"
	"github.com/quarryhq/groundctl/internal/retrieval"
	"github.com/quarryhq/groundctl/internal/server"
)

// #region main
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Fatal("configuration invalid", "error", err)
	}
	logger := logging.New(cfg.Log.Level)

	corpusDB, err := evidence.OpenCorpusDB(cfg.DB.CorpusPath)
	if err != nil {
		logger.Fatal("open corpus", "path", cfg.DB.CorpusPath, "error", err)
	}
	defer corpusDB.Close()
	index, err := evidence.LoadCorpus(corpusDB)
	if err != nil {
		logger.Fatal("load corpus", "error", err)
	}
	logger.Info("corpus loaded", "blocks", index.Len(), "path", cfg.DB.CorpusPath)

	store, err := audit.NewStore(cfg.DB.AuditPath)
	if err != nil {
		logger.Fatal("open audit store", "path", cfg.DB.AuditPath, "error", err)
	}
	defer store.Close()

	client := provider.NewClient(cfg.Provider)
	adapter := evidence.NewAdapter(index, index, logger)
	retriever := retrieval.NewRetriever(adapter, client, client, cfg.Retrieval, logger)

	eng := engine.New(
		engine.Config{
			TurnBudget:    cfg.Engine.TurnBudget,
			AssistantName: cfg.Engine.AssistantName,
		},
		cfg.Retrieval,
		cfg.Calibrate,
		retriever,
		planner.New(cfg.Planner, logger),
		client,
		store,
		logger,
	)

	srv := server.New(eng, store, logger)
	logger.Info("listening", "addr", cfg.Server.Addr())
	if err := srv.Router().Run(cfg.Server.Addr()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// #endregion main
