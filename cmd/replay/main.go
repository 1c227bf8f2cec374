package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/quarryhq/groundctl/internal/logging"
	"github.com/quarryhq/groundctl/internal/replay"
)

// #region main
func main() {
	fixturePath := flag.String("fixtures", "", "fixture file (default: built-in scenarios)")
	verbose := flag.Bool("v", false, "print passing scenarios too")
	flag.Parse()

	logger := logging.New("warn")

	fixtures := replay.Canonical()
	if *fixturePath != "" {
		loaded, err := replay.Load(*fixturePath)
		if err != nil {
			logger.Fatal("load fixtures", "error", err)
		}
		fixtures = loaded
	}

	runner := replay.NewRunner(logger)
	results, failed := runner.RunAll(fixtures)

	for _, res := range results {
		if res.Pass {
			if *verbose {
				fmt.Printf("PASS  %s (action=%s)\n", res.Name, res.Decision.Action)
			}
			continue
		}
		fmt.Printf("FAIL  %s\n", res.Name)
		for _, d := range res.Diffs {
			fmt.Printf("      %s\n", d)
		}
	}

	fmt.Printf("%d scenarios, %d failed\n", len(results), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// #endregion main
