package logstore

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

// Filename prefixes for the three log kinds. The reconciler derives its
// output path from its input path by swapping prefixes.
const (
	CommentLogPrefix = "logsubredditcomments"
	ScoreLogPrefix   = "modscores"
	ActionLogPrefix  = "modactions"
	DedupPrefix      = "deduped__"
)

// maxSubredditPart keeps generated filenames reasonable when streaming many
// subreddits at once.
const maxSubredditPart = 50

// CommentLogPath builds the output path for a raw comment log.
func CommentLogPath(outputDir string, subreddits []string, now time.Time) string {
	part := strings.Join(subreddits, "+")
	if len(part) > maxSubredditPart {
		part = fmt.Sprintf("_%d_subs_", len(subreddits))
	}
	name := fmt.Sprintf("%s_%s_%s.json", CommentLogPrefix, part, domain.FormatTimestamp(now))
	return filepath.Join(outputDir, name)
}

// ScoreLogPath builds the output path for a scored record log.
func ScoreLogPath(outputDir, subreddit string, now time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.json", ScoreLogPrefix, subreddit, domain.FormatTimestamp(now))
	return filepath.Join(outputDir, name)
}

// DeriveActionsPath derives the reconciled output path from an input log
// path by prefix substitution. Fails when the input name carries no known
// prefix; callers must then pass an explicit output path.
func DeriveActionsPath(inputPath string) (string, error) {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)

	for _, prefix := range []string{CommentLogPrefix, ScoreLogPrefix} {
		if strings.HasPrefix(base, prefix) {
			return filepath.Join(dir, ActionLogPrefix+strings.TrimPrefix(base, prefix)), nil
		}
	}
	return "", fmt.Errorf("cannot derive an output path from %q; specify one explicitly", inputPath)
}

// DedupOutputPath derives the output path for a deduplicated copy of a log.
func DedupOutputPath(inputPath string) string {
	return filepath.Join(filepath.Dir(inputPath), DedupPrefix+filepath.Base(inputPath))
}
