package scoring

import (
	"context"
	"sync"

	"github.com/conversationai/perspective-modbot/internal/rules"
)

// Result is the outcome of scoring one text in a batch.
type Result struct {
	Scores rules.ScoreMap
	Err    error
}

// ScoreTexts scores texts through a bounded worker pool. Results are
// returned in input order by slot; completion order is not guaranteed, so
// callers must never assume response order correlates with request timing.
// Per-item failures land in the item's Result, not the pool's.
func (c *Client) ScoreTexts(ctx context.Context, texts []string, models []string, language string) []Result {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results
	}

	jobs := make(chan int, len(texts))
	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				scores, err := c.ScoreText(ctx, texts[i], models, language)
				results[i] = Result{Scores: scores, Err: err}
			}
		}()
	}

	for i := range texts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
