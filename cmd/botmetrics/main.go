// Command botmetrics reads a reconciled record log and reports per-rule
// precision and recall against moderator removals, plus optional
// precision-recall sweeps over the raw score columns.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/conversationai/perspective-modbot/internal/botmetrics"
	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/logstore"
)

func main() {
	actionsPath := flag.String("actions_path", "", "reconciled record log (required)")
	curves := flag.Bool("curves", false, "also print precision-recall sweeps per score column")
	flag.Parse()

	if err := run(*actionsPath, *curves); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(actionsPath string, curves bool) error {
	if actionsPath == "" {
		return fmt.Errorf("-actions_path is required")
	}

	records, err := logstore.ReadRecords[domain.ReconciledRecord](actionsPath)
	if err != nil {
		return err
	}

	summary := botmetrics.Compute(records)
	if summary.DroppedNoLabel > 0 {
		fmt.Printf("note: dropped %d records with no removed status (deleted or unreconciled)\n",
			summary.DroppedNoLabel)
	}
	fmt.Printf("number of examples: %d\n", summary.Examples)
	if summary.Examples > 0 {
		fmt.Printf("removed examples: %d (%.1f%%)\n",
			summary.Removed, 100*float64(summary.Removed)/float64(summary.Examples))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "rule\tprecision\trecall\tflags")
	for _, rs := range summary.Rules {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%d\n", rs.Rule, rs.Precision, rs.Recall, rs.Flags)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if curves {
		printCurves(records)
	}
	return nil
}

func printCurves(records []domain.ReconciledRecord) {
	for _, curve := range botmetrics.ComputeCurves(records, nil) {
		fmt.Printf("\n%s\n", curve.Model)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "threshold\tprecision\trecall\tflags")
		for _, p := range curve.Points {
			fmt.Fprintf(w, "%.2f\t%.3f\t%.3f\t%d\n", p.Threshold, p.Precision, p.Recall, p.Flags)
		}
		w.Flush()
	}
}
