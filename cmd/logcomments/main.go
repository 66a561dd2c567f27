// Command logcomments streams comments straight into a comment log without
// applying any moderation actions. With -score it also attaches model
// scores, which makes the output usable as reconciliation input for offline
// rule tuning.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/conversationai/perspective-modbot/internal/config"
	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/logstore"
	"github.com/conversationai/perspective-modbot/internal/platform"
	"github.com/conversationai/perspective-modbot/internal/rules"
	"github.com/conversationai/perspective-modbot/internal/scoring"
)

// scoreChunk is how many comments are buffered before a pooled scoring
// call. Small enough to keep the log fresh, big enough to use the workers.
const scoreChunk = 20

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	commentsPath := flag.String("comments", "-", "JSONL comment stream; - for stdin")
	subreddits := flag.String("subreddits", "", "comma-separated subreddit names, or @file with one per line")
	outputPath := flag.String("output_path", "", "comment log path; derived when empty")
	score := flag.Bool("score", false, "also score each comment")
	flag.Parse()

	if err := run(*configPath, *commentsPath, *subreddits, *outputPath, *score); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, commentsPath, subreddits, outputPath string, score bool) error {
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

	names, err := subredditNames(subreddits, cfg.Moderation.Subreddit)
	if err != nil {
		return err
	}

	stream, err := platform.OpenCommentFile(commentsPath)
	if err != nil {
		return err
	}
	defer stream.Close()

	if outputPath == "" {
		outputPath = logstore.CommentLogPath(cfg.Moderation.OutputDir, names, time.Now())
	}
	out, err := logstore.OpenAppend(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	log.Info("logging comments", logger.String("path", out.Path()))

	var scorer *scoring.Client
	var ruleSet *rules.RuleSet
	if score {
		ruleSet, err = rules.LoadRuleSet(cfg.Moderation.RulesFile)
		if err != nil {
			return err
		}
		scorer = scoring.NewClient(cfg.Scorer, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return logStream(ctx, stream, out, scorer, ruleSet, cfg.Scorer.Language, log)
}

func logStream(
	ctx context.Context,
	stream *platform.CommentReader,
	out *logstore.Appender,
	scorer *scoring.Client,
	ruleSet *rules.RuleSet,
	language string,
	log logger.Logger,
) error {
	var chunk []domain.Comment
	logged := 0
	for {
		comment, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			if err := flushChunk(ctx, chunk, out, scorer, ruleSet, language, log); err != nil {
				return err
			}
			log.Info("comment stream exhausted", logger.Int("logged", logged+len(chunk)))
			return nil
		}
		if err != nil {
			return err
		}

		chunk = append(chunk, comment)
		if scorer == nil || len(chunk) >= scoreChunk {
			if err := flushChunk(ctx, chunk, out, scorer, ruleSet, language, log); err != nil {
				return err
			}
			logged += len(chunk)
			chunk = chunk[:0]
		}
	}
}

// flushChunk writes buffered comments, scoring them first when a scorer is
// configured. Scoring failures drop the single comment, not the chunk.
func flushChunk(
	ctx context.Context,
	chunk []domain.Comment,
	out *logstore.Appender,
	scorer *scoring.Client,
	ruleSet *rules.RuleSet,
	language string,
	log logger.Logger,
) error {
	if len(chunk) == 0 {
		return nil
	}

	var results []scoring.Result
	if scorer != nil {
		texts := make([]string, len(chunk))
		for i, c := range chunk {
			texts[i] = c.Body
		}
		results = scorer.ScoreTexts(ctx, texts, ruleSet.APIModels, language)
	}

	for i, comment := range chunk {
		record := domain.ScoredRecord{
			CommentID:       comment.ID,
			LinkID:          comment.LinkID,
			ParentID:        comment.ParentID,
			Subreddit:       comment.Subreddit,
			Permalink:       comment.Permalink,
			Author:          comment.Author,
			OrigCommentText: comment.Body,
			CreatedUTC:      comment.CreatedUTC,
			BotScoredUTC:    time.Now(),
		}
		if results != nil {
			if results[i].Err != nil {
				log.Error("scoring failed, logging comment unscored",
					logger.String("comment_id", comment.ID),
					logger.Error(results[i].Err))
			} else {
				record.Scores = results[i].Scores
			}
		}
		if err := out.Append(record); err != nil {
			return err
		}
	}
	return nil
}

// subredditNames resolves the -subreddits flag: a comma list, an @file with
// one name per line, or the configured default.
func subredditNames(arg, fallback string) ([]string, error) {
	if arg == "" {
		if fallback == "" {
			return nil, fmt.Errorf("no subreddits given and none configured")
		}
		return []string{fallback}, nil
	}
	if strings.HasPrefix(arg, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, fmt.Errorf("read subreddit file: %w", err)
		}
		var names []string
		for _, line := range strings.Split(string(data), "\n") {
			if name := strings.TrimSpace(line); name != "" {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("subreddit file %s is empty", strings.TrimPrefix(arg, "@"))
		}
		return names, nil
	}
	return strings.Split(arg, ","), nil
}
