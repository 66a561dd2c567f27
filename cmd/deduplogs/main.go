// Command deduplogs removes duplicated records from a log file. Duplicates
// come from stream redelivery on reconnect, so they appear in bursts; the
// windowed mode handles arbitrarily large logs in constant memory.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/conversationai/perspective-modbot/internal/logstore"
)

func main() {
	inputPath := flag.String("input_path", "", "log file to deduplicate (required)")
	outputPath := flag.String("output_path", "", "output path; defaults to deduped__<input> beside the input")
	idKey := flag.String("id_key", "comment_id", "json key holding the record id")
	window := flag.Int("window", 500, "how far back to look for dupes; 0 to remember everything")
	flag.Parse()

	if err := run(*inputPath, *outputPath, *idKey, *window); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(inputPath, outputPath, idKey string, window int) error {
	if inputPath == "" {
		return fmt.Errorf("-input_path is required")
	}

	total, unique, err := logstore.CountIDs(inputPath, idKey)
	if err != nil {
		return err
	}
	if total == unique {
		fmt.Printf("total == unique (%d), no deduping required\n", unique)
		return nil
	}

	if outputPath == "" {
		outputPath = logstore.DedupOutputPath(inputPath)
	}
	stats, err := logstore.DedupFile(inputPath, outputPath, idKey, window)
	if err != nil {
		return err
	}
	fmt.Printf("  total:\t%d\n deduped:\t%d\n dropped:\t%d\n", stats.Total, stats.Unique, stats.Dupes)

	// The pre-scan counted the whole file; the windowed pass must agree, or
	// dupes were spread wider than the window and the output is incomplete.
	if stats.Total != total || stats.Unique != unique {
		return fmt.Errorf("counts did not line up: window %d too small? (saw %d/%d, expected %d/%d)",
			window, stats.Total, stats.Unique, total, unique)
	}
	return nil
}
