package recon

import (
	"time"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

// mergeResult is the outcome of correlating one batch with one status
// lookup. records preserves the batch's original order.
type mergeResult struct {
	records []domain.ReconciledRecord
	// unexpected lists response ids that matched no batch record, including
	// duplicate responses for an already-matched id.
	unexpected []string
	// missing lists batch ids the status source never answered for; their
	// records are emitted unreconciled.
	missing []string
}

// mergeStatuses joins status responses to batch records strictly by comment
// id. Every record gets the same checkedAt stamp since the whole batch was
// looked up in one call.
func mergeStatuses(batch []*domain.ScoredRecord, statuses []ItemStatus, hasModCreds bool, checkedAt time.Time) mergeResult {
	index := make(map[string]int, len(batch))
	for i, rec := range batch {
		index[rec.CommentID] = i
	}

	resolved := make([]*domain.CommentStatus, len(batch))
	var res mergeResult
	for _, item := range statuses {
		i, ok := index[item.ID]
		if !ok || resolved[i] != nil {
			res.unexpected = append(res.unexpected, item.ID)
			continue
		}
		st := computeStatus(item, hasModCreds)
		resolved[i] = &st
	}

	res.records = make([]domain.ReconciledRecord, 0, len(batch))
	for i, rec := range batch {
		out := domain.ReconciledRecord{
			ScoredRecord:     *rec,
			ActionCheckedUTC: checkedAt,
		}
		if resolved[i] != nil {
			out.Status = *resolved[i]
			out.Reconciled = true
		} else {
			res.missing = append(res.missing, rec.CommentID)
		}
		res.records = append(res.records, out)
	}
	return res
}
