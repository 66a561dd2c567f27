package recon

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversationai/perspective-modbot/internal/domain"
	"github.com/conversationai/perspective-modbot/internal/logger"
	"github.com/conversationai/perspective-modbot/internal/logstore"
	"github.com/conversationai/perspective-modbot/internal/telemetry"
)

// One provider per test binary; the Prometheus default registry rejects
// duplicate registration.
var testTel = telemetry.NewProvider()

type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

type fakeStatusSource struct {
	byID  map[string]ItemStatus
	calls [][]string
}

func (s *fakeStatusSource) MultiGet(_ context.Context, ids []string) ([]ItemStatus, error) {
	s.calls = append(s.calls, ids)
	var out []ItemStatus
	for _, id := range ids {
		if item, ok := s.byID[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func writeScoredLog(t *testing.T, path string, created time.Time, ids ...string) {
	t.Helper()
	out, err := logstore.CreateExclusive(path)
	require.NoError(t, err)
	defer out.Close()
	for _, id := range ids {
		require.NoError(t, out.Append(domain.ScoredRecord{
			CommentID:    id,
			Subreddit:    "test",
			CreatedUTC:   created,
			BotScoredUTC: created,
			RuleOutcomes: map[string]string{"hi_tox": "report"},
		}))
	}
}

func newTestPipeline(t *testing.T, inPath, outPath string, opts Options, status StatusSource, clock *fakeClock) (*Pipeline, *logstore.Appender) {
	t.Helper()
	src, err := OpenSource(inPath)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	out, err := logstore.CreateExclusive(outPath)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })

	p := NewPipeline(src, status, out, opts, logger.NewNop(), testTel.Metrics)
	p.now = clock.now
	p.sleep = clock.sleep
	p.batcher = NewBatcher(p.opts.MaxBatchSize, p.opts.MaxBatchDelay, clock.t)
	return p, out
}

func TestPipelineRun_StopAtEOF(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "modscores_in.json")
	outPath := filepath.Join(dir, "modactions_out.json")

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	writeScoredLog(t, inPath, created, "a", "b", "c")

	status := &fakeStatusSource{byID: map[string]ItemStatus{
		"a": {ID: "a", AuthorPresent: true, Body: "text", Removed: true},
		"c": {ID: "c", AuthorPresent: true, Body: "text"},
	}}
	clock := &fakeClock{t: created.Add(time.Hour)}
	p, _ := newTestPipeline(t, inPath, outPath, Options{
		MaxBatchSize:  100,
		MaxBatchDelay: 5 * time.Minute,
		WaitDelta:     12 * time.Hour,
		HasModCreds:   true,
		StopAtEOF:     true,
	}, status, clock)

	require.NoError(t, p.Run(context.Background(), nil))

	// One drained batch, one lookup, after waiting out the age requirement.
	require.Len(t, status.calls, 1)
	assert.Equal(t, []string{"a", "b", "c"}, status.calls[0])
	require.NotEmpty(t, clock.slept)
	assert.Equal(t, 11*time.Hour, clock.slept[0], "wait = created+delta-now")

	records, err := logstore.ReadRecords[domain.ReconciledRecord](outPath)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].Reconciled)
	assert.True(t, *records[0].Status.Removed)
	assert.False(t, records[1].Reconciled, "record without status stays unreconciled")
	assert.Nil(t, records[1].Status.Removed)
	assert.True(t, records[2].Reconciled)
}

func TestPipelineRun_SizeBatches(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "modscores_in.json")
	outPath := filepath.Join(dir, "modactions_out.json")

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%03d", i)
	}
	writeScoredLog(t, inPath, created, ids...)

	byID := make(map[string]ItemStatus, len(ids))
	for _, id := range ids {
		byID[id] = ItemStatus{ID: id, AuthorPresent: true, Body: "text"}
	}
	status := &fakeStatusSource{byID: byID}
	clock := &fakeClock{t: created.Add(24 * time.Hour)} // already stable, no waiting
	p, _ := newTestPipeline(t, inPath, outPath, Options{
		MaxBatchSize:  50,
		MaxBatchDelay: 5 * time.Minute,
		WaitDelta:     12 * time.Hour,
		StopAtEOF:     true,
	}, status, clock)

	require.NoError(t, p.Run(context.Background(), nil))

	// 120 records: two size-triggered batches of 50, a drained 20.
	require.Len(t, status.calls, 3)
	assert.Len(t, status.calls[0], 50)
	assert.Len(t, status.calls[1], 50)
	assert.Len(t, status.calls[2], 20)
	assert.Empty(t, clock.slept)

	records, err := logstore.ReadRecords[domain.ReconciledRecord](outPath)
	require.NoError(t, err)
	assert.Len(t, records, 120)
}

func TestPipelineRun_DropUnreconciled(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "modscores_in.json")
	outPath := filepath.Join(dir, "modactions_out.json")

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	writeScoredLog(t, inPath, created, "a", "b")

	status := &fakeStatusSource{byID: map[string]ItemStatus{
		"a": {ID: "a", AuthorPresent: true, Body: "text"},
	}}
	clock := &fakeClock{t: created.Add(24 * time.Hour)}
	p, _ := newTestPipeline(t, inPath, outPath, Options{
		MaxBatchSize:     100,
		MaxBatchDelay:    5 * time.Minute,
		WaitDelta:        12 * time.Hour,
		DropUnreconciled: true,
		StopAtEOF:        true,
	}, status, clock)

	require.NoError(t, p.Run(context.Background(), nil))

	records, err := logstore.ReadRecords[domain.ReconciledRecord](outPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].CommentID)
}

func TestPipelineRun_Resume(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "modscores_in.json")
	outPath := filepath.Join(dir, "modactions_out.json")

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	writeScoredLog(t, inPath, created, "a", "b", "c")

	status := &fakeStatusSource{byID: map[string]ItemStatus{
		"c": {ID: "c", AuthorPresent: true, Body: "text"},
	}}
	clock := &fakeClock{t: created.Add(24 * time.Hour)}
	p, _ := newTestPipeline(t, inPath, outPath, Options{
		MaxBatchSize:  100,
		MaxBatchDelay: 5 * time.Minute,
		WaitDelta:     12 * time.Hour,
		StopAtEOF:     true,
	}, status, clock)

	require.NoError(t, p.Run(context.Background(), map[string]bool{"a": true, "b": true}))

	require.Len(t, status.calls, 1)
	assert.Equal(t, []string{"c"}, status.calls[0])
}

func TestPipelineRun_ResumeInconsistency(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "modscores_in.json")
	outPath := filepath.Join(dir, "modactions_out.json")

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	writeScoredLog(t, inPath, created, "a")

	clock := &fakeClock{t: created}
	p, _ := newTestPipeline(t, inPath, outPath, Options{
		MaxBatchSize:  100,
		MaxBatchDelay: 5 * time.Minute,
		StopAtEOF:     true,
	}, &fakeStatusSource{}, clock)

	err := p.Run(context.Background(), map[string]bool{"a": true, "other": true})
	var inconsistency *ResumeInconsistencyError
	require.ErrorAs(t, err, &inconsistency)
}
