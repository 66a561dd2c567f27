// Command moderate streams comments, scores them, evaluates the configured
// rules, applies moderation actions, and writes the scored record log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conversationai/perspective-modbot/internal/api"
	"github.com/conversationai/perspective-modbot/internal/config"
	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/logstore"
	"github.com/conversationai/perspective-modbot/internal/moderator"
	"github.com/conversationai/perspective-modbot/internal/platform"
	"github.com/conversationai/perspective-modbot/internal/rules"
	"github.com/conversationai/perspective-modbot/internal/scoring"
	"github.com/conversationai/perspective-modbot/internal/server"
	"github.com/conversationai/perspective-modbot/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	commentsPath := flag.String("comments", "-", "JSONL comment stream; - for stdin")
	outputPath := flag.String("output_path", "", "score log path; derived from config when empty")
	flag.Parse()

	if err := run(*configPath, *commentsPath, *outputPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, commentsPath, outputPath string) error {
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

	ruleSet, err := rules.LoadRuleSet(cfg.Moderation.RulesFile)
	if err != nil {
		return err
	}
	log.Info("rule set loaded",
		logger.Int("rules", len(ruleSet.Rules)),
		logger.Int("ensembles", len(ruleSet.Ensembles)),
		logger.Strings("api_models", ruleSet.APIModels))

	stream, err := platform.OpenCommentFile(commentsPath)
	if err != nil {
		return err
	}
	defer stream.Close()

	if outputPath == "" {
		outputPath = logstore.ScoreLogPath(cfg.Moderation.OutputDir, cfg.Moderation.Subreddit, time.Now())
	}
	out, err := logstore.OpenAppend(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	log.Info("writing scored records", logger.String("path", out.Path()))

	tel := telemetry.NewProvider()
	scorer := scoring.NewClient(cfg.Scorer, log)
	dispatcher := moderator.NewDispatcher(platform.NewDryRunExecutor(log), log)
	mod := moderator.New(stream, scorer, ruleSet, dispatcher, out, moderator.Options{
		Language:     cfg.Scorer.Language,
		DedupWindow:  cfg.Moderation.DedupWindow,
		ApplyActions: cfg.Moderation.ApplyActions,
	}, log, tel.Metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *server.Server
	var srvErr <-chan error
	if cfg.Service.APIEnabled {
		handler := api.NewHandler(cfg.Service.Name, cfg.Service.Version, ruleSet, tel)
		srv = server.New(cfg.Service.Port, cfg.Service.Debug, log, handler.SetupRoutes)
		srvErr = srv.StartAsync()
	}

	runErr := mod.Run(ctx)

	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("server shutdown failed", logger.Error(err))
		}
		if err := <-srvErr; err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
