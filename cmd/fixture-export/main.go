package main

import (
	"flag"

	"github.com/quarryhq/groundctl/internal/logging"
	"github.com/quarryhq/groundctl/internal/replay"
)

// #region main
func main() {
	out := flag.String("out", "fixtures.json", "output fixture file")
	flag.Parse()

	logger := logging.New("info")
	fixtures := replay.Canonical()
	if err := replay.Save(*out, fixtures); err != nil {
		logger.Fatal("write fixtures", "error", err)
	}
	logger.Info("fixtures exported", "path", *out, "count", len(fixtures))
}

// #endregion main
