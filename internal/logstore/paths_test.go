package logstore

import (
	"strings"
	"testing"
	"time"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestCommentLogPath(t *testing.T) {
	got := CommentLogPath("/logs", []string{"science", "askreddit"}, testTime)
	want := "/logs/logsubredditcomments_science+askreddit_20240501_120000.json"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCommentLogPath_ManySubreddits(t *testing.T) {
	subs := make([]string, 20)
	for i := range subs {
		subs[i] = "somelongsubredditname"
	}
	got := CommentLogPath("/logs", subs, testTime)
	if strings.Contains(got, "somelong") {
		t.Errorf("long subreddit list not condensed: %q", got)
	}
	if !strings.Contains(got, "_20_subs_") {
		t.Errorf("condensed name missing count: %q", got)
	}
}

func TestScoreLogPath(t *testing.T) {
	got := ScoreLogPath("/logs", "science", testTime)
	if got != "/logs/modscores_science_20240501_120000.json" {
		t.Errorf("got %q", got)
	}
}

func TestDeriveActionsPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/logs/modscores_science_20240501_120000.json", "/logs/modactions_science_20240501_120000.json"},
		{"/logs/logsubredditcomments_science_20240501_120000.json", "/logs/modactions_science_20240501_120000.json"},
	}
	for _, tc := range cases {
		got, err := DeriveActionsPath(tc.in)
		if err != nil {
			t.Errorf("DeriveActionsPath(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("DeriveActionsPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDeriveActionsPath_UnknownPrefix(t *testing.T) {
	if _, err := DeriveActionsPath("/logs/random_file.json"); err == nil {
		t.Fatal("want error for unknown prefix")
	}
}

func TestDedupOutputPath(t *testing.T) {
	got := DedupOutputPath("/logs/modscores_science.json")
	if got != "/logs/deduped__modscores_science.json" {
		t.Errorf("got %q", got)
	}
}
