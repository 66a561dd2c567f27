// Command checkactions reads a scored record log and augments each record
// with the comment's eventual moderation status, batching status lookups
// and waiting until comments are old enough for moderators to have acted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conversationai/perspective-modbot/internal/config"
	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/logstore"
	"github.com/conversationai/perspective-modbot/internal/platform"
	"github.com/conversationai/perspective-modbot/internal/recon"
	"github.com/conversationai/perspective-modbot/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	inputPath := flag.String("input_path", "", "scored record log to reconcile (required)")
	outputPath := flag.String("output_path", "", "reconciled log path; derived from input when empty")
	statusURL := flag.String("status_url", "", "base URL of the comment status API (required)")
	resume := flag.Bool("resume", false, "continue a partially-written output log")
	stopAtEOF := flag.Bool("stop_at_eof", false, "stop when the input ends instead of tailing")
	hoursToWait := flag.Float64("hours_to_wait", -1, "override the configured wait before status lookup")
	flag.Parse()

	if err := run(*configPath, *inputPath, *outputPath, *statusURL, *resume, *stopAtEOF, *hoursToWait); err != nil {
		var inconsistency *recon.ResumeInconsistencyError
		if errors.As(err, &inconsistency) {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			fmt.Fprintln(os.Stderr, "the output log does not match the input log; do not resume across different inputs")
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, inputPath, outputPath, statusURL string, resume, stopAtEOF bool, hoursToWait float64) error {
	if inputPath == "" {
		return fmt.Errorf("-input_path is required")
	}
	if statusURL == "" {
		return fmt.Errorf("-status_url is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return err
	}
	defer log.Sync()

	if outputPath == "" {
		outputPath, err = logstore.DeriveActionsPath(inputPath)
		if err != nil {
			return err
		}
	}

	opts := recon.Options{
		MaxBatchSize:     cfg.Reconcile.MaxBatchSize,
		MaxBatchDelay:    cfg.Reconcile.MaxBatchDelay,
		WaitDelta:        cfg.Reconcile.WaitDelta,
		HasModCreds:      cfg.Reconcile.HasModCreds,
		DropUnreconciled: cfg.Reconcile.DropUnreconciled,
		StopAtEOF:        stopAtEOF || cfg.Reconcile.StopAtEOF,
	}
	if hoursToWait >= 0 {
		opts.WaitDelta = time.Duration(hoursToWait * float64(time.Hour))
	}

	// Resume builds the skip set from the existing output before appending;
	// a fresh run refuses to touch an existing output file.
	var seen map[string]bool
	var out *logstore.Appender
	if resume {
		seen, err = logstore.ReadIDs(outputPath, "comment_id")
		if err != nil {
			return err
		}
		out, err = logstore.OpenAppend(outputPath)
	} else {
		out, err = logstore.CreateExclusive(outputPath)
	}
	if err != nil {
		return err
	}
	defer out.Close()
	log.Info("reconciling records",
		logger.String("input", inputPath),
		logger.String("output", outputPath),
		logger.Int("resume_ids", len(seen)),
		logger.Duration("wait_delta", opts.WaitDelta))

	src, err := recon.OpenSource(inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tel := telemetry.NewProvider()
	status := platform.NewStatusClient(statusURL, cfg.Service.Name+"/"+cfg.Service.Version, opts.HasModCreds, log)
	pipeline := recon.NewPipeline(src, status, out, opts, log, tel.Metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = pipeline.Run(ctx, seen)
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted; resume later with -resume")
		return nil
	}
	return err
}
