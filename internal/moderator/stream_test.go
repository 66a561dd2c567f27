package moderator

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/logstore"
	"github.com/conversationai/perspective-modbot/internal/rules"
	"github.com/conversationai/perspective-modbot/internal/telemetry"
)

// One provider per test binary; the Prometheus default registry rejects
// duplicate registration.
var testTel = telemetry.NewProvider()

type sliceStream struct {
	comments []domain.Comment
	i        int
}

func (s *sliceStream) Next(_ context.Context) (domain.Comment, error) {
	if s.i >= len(s.comments) {
		return domain.Comment{}, io.EOF
	}
	c := s.comments[s.i]
	s.i++
	return c, nil
}

type fixedScorer struct {
	scores rules.ScoreMap
	calls  int
}

func (s *fixedScorer) ScoreText(_ context.Context, text string, _ []string, _ string) (rules.ScoreMap, error) {
	s.calls++
	return s.scores, nil
}

func testComment(id, body string) domain.Comment {
	return domain.Comment{
		ID:         id,
		LinkID:     "t3_post",
		ParentID:   "t3_post",
		Subreddit:  "test",
		Author:     "author",
		Body:       body,
		CreatedUTC: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestModeratorRun(t *testing.T) {
	stream := &sliceStream{comments: []domain.Comment{
		testComment("c1", "bad comment"),
		testComment("c1", "bad comment"), // redelivered
		testComment("c2", strings.Repeat("x", 20001)),
		testComment("c3", "fine comment"),
	}}
	scorer := &fixedScorer{scores: rules.ScoreMap{"TOXICITY": 0.95}}
	rs, err := rules.ParseRuleSet([]byte(`
rules:
  - name: hi_tox
    perspective_score:
      TOXICITY: "> 0.9"
    action: report
`))
	if err != nil {
		t.Fatalf("ParseRuleSet: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "modscores_test.json")
	out, err := logstore.CreateExclusive(outPath)
	if err != nil {
		t.Fatalf("CreateExclusive: %v", err)
	}
	defer out.Close()

	exec := &recordingExecutor{}
	mod := New(stream, scorer, rs, NewDispatcher(exec, logger.NewNop()), out, Options{
		DedupWindow:  100,
		ApplyActions: true,
	}, logger.NewNop(), testTel.Metrics)

	if err := mod.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// c1 once (dupe absorbed), c2 skipped for length, c3 scored.
	if scorer.calls != 2 {
		t.Errorf("scorer calls = %d, want 2", scorer.calls)
	}

	records, err := logstore.ReadRecords[domain.ScoredRecord](outPath)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].CommentID != "c1" || records[1].CommentID != "c3" {
		t.Errorf("record ids = %s, %s", records[0].CommentID, records[1].CommentID)
	}
	if records[0].RuleOutcomes["hi_tox"] != "report" {
		t.Errorf("hi_tox outcome = %q", records[0].RuleOutcomes["hi_tox"])
	}
	if records[0].Scores["TOXICITY"] != 0.95 {
		t.Errorf("TOXICITY score = %v", records[0].Scores["TOXICITY"])
	}

	// Both surviving comments fired the rule and were reported.
	if len(exec.reports) != 2 {
		t.Errorf("reports = %d, want 2", len(exec.reports))
	}
}
