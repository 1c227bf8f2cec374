package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/quarryhq/groundctl/internal/evidence"
	"github.com/quarryhq/groundctl/internal/logging"
)

// #region input

type seedBlock struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	SourceID string    `json:"source_id"`
	Section  string    `json:"section"`
	TenantID string    `json:"tenant_id"`
	TwinID   string    `json:"twin_id"`
	Type     string    `json:"type"`
	Vector   []float64 `json:"vector"`
}

// #endregion input

// #region main
func main() {
	dbPath := flag.String("db", "corpus.db", "corpus database path")
	input := flag.String("input", "", "JSON file with evidence blocks")
	flag.Parse()

	logger := logging.New("info")
	if *input == "" {
		logger.Fatal("missing -input file")
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		logger.Fatal("read input", "error", err)
	}
	var seeds []seedBlock
	if err := json.Unmarshal(raw, &seeds); err != nil {
		logger.Fatal("parse input", "error", err)
	}

	db, err := evidence.OpenCorpusDB(*dbPath)
	if err != nil {
		logger.Fatal("open corpus", "error", err)
	}
	defer db.Close()

	inserted := 0
	for _, s := range seeds {
		blockType := evidence.BlockType(s.Type)
		if blockType == "" {
			blockType = evidence.BlockAnswerText
		}
		b := evidence.Block{
			ID:       s.ID,
			Text:     s.Text,
			SourceID: s.SourceID,
			Section:  s.Section,
			TenantID: s.TenantID,
			TwinID:   s.TwinID,
			Type:     blockType,
		}
		if err := evidence.InsertBlock(db, b, s.Vector); err != nil {
			logger.Error("insert failed", "id", s.ID, "error", err)
			continue
		}
		inserted++
	}
	logger.Info("corpus seeded", "db", *dbPath, "inserted", inserted, "total", len(seeds))
}

// #endregion main
