package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/quarryhq/groundctl/internal/audit"
	"github.com/quarryhq/groundctl/internal/logging"
)

// #region main
func main() {
	dbPath := flag.String("db", "audit.db", "audit database path")
	conversation := flag.String("conversation", "", "show turns of one conversation")
	limit := flag.Int("limit", 20, "rows to show")
	asJSON := flag.Bool("json", false, "emit JSON instead of text")
	flag.Parse()

	logger := logging.New("warn")

	store, err := audit.NewStore(*dbPath)
	if err != nil {
		logger.Fatal("open audit store", "error", err)
	}
	defer store.Close()

	if *conversation != "" {
		showConversation(store, *conversation, *limit, *asJSON, logger)
		return
	}
	showRecent(store, *limit, *asJSON, logger)
}

// #endregion main

// #region views

func showConversation(store *audit.Store, conversationID string, limit int, asJSON bool, logger *log.Logger) {
	turns, err := store.ListTurns(conversationID, limit)
	if err != nil {
		logger.Fatal("list turns", "error", err)
	}
	if asJSON {
		json.NewEncoder(os.Stdout).Encode(turns)
		return
	}
	for _, t := range turns {
		fmt.Printf("%s  %s  [%s]\n  %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"), t.TurnID, t.Mode, t.QueryText)
	}
	fmt.Printf("%d turns\n", len(turns))
}

func showRecent(store *audit.Store, limit int, asJSON bool, logger *log.Logger) {
	audits, err := store.RecentAudits(limit)
	if err != nil {
		logger.Fatal("recent audits", "error", err)
	}
	if asJSON {
		json.NewEncoder(os.Stdout).Encode(audits)
		return
	}
	for _, a := range audits {
		reason := a.ReasonCode
		if reason == "" {
			reason = "-"
		}
		short := a.TurnID
		if len(short) > 8 {
			short = short[:8]
		}
		fmt.Printf("%s  %-8s  conf=%.2f  reason=%s  intent=%s\n",
			short, a.Action, a.Confidence, reason, a.Intent)
	}
	fmt.Printf("%d audit rows\n", len(audits))
}

// #endregion views
