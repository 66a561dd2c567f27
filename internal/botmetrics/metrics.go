// Package botmetrics evaluates bot decisions against eventual moderator
// outcomes: how often did a flagged comment actually get removed, and how
// much of the removed traffic did the bot flag.
package botmetrics

import (
	"sort"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

// RuleStats is one rule's agreement with moderator removals. A comment
// counts as flagged when the rule's outcome was the report action.
type RuleStats struct {
	Rule string
	// Precision is flagged-and-removed over flagged; 0 when nothing was
	// flagged.
	Precision float64
	// Recall is flagged-and-removed over removed; 0 when nothing was
	// removed.
	Recall float64
	// Flags is how many comments the rule flagged.
	Flags int
}

// Summary aggregates a reconciled log.
type Summary struct {
	// Examples is the number of records with a known removed status.
	Examples int
	// Removed is how many of those the moderators removed.
	Removed int
	// DroppedNoLabel counts records discarded for lacking a removed status,
	// typically deleted comments or unreconciled records.
	DroppedNoLabel int
	// Rules has one entry per rule column, sorted by rule name.
	Rules []RuleStats
}

// Compute aggregates per-rule precision and recall over reconciled records.
func Compute(records []domain.ReconciledRecord) Summary {
	var s Summary
	type counts struct{ tp, fp, fn int }
	perRule := make(map[string]*counts)

	for _, rec := range records {
		if rec.Status.Removed == nil {
			s.DroppedNoLabel++
			continue
		}
		s.Examples++
		removed := *rec.Status.Removed
		if removed {
			s.Removed++
		}
		for rule, outcome := range rec.RuleOutcomes {
			c := perRule[rule]
			if c == nil {
				c = &counts{}
				perRule[rule] = c
			}
			flagged := outcome == string(domain.ActionReport)
			switch {
			case flagged && removed:
				c.tp++
			case flagged && !removed:
				c.fp++
			case !flagged && removed:
				c.fn++
			}
		}
	}

	for rule, c := range perRule {
		s.Rules = append(s.Rules, RuleStats{
			Rule:      rule,
			Precision: ratio(c.tp, c.tp+c.fp),
			Recall:    ratio(c.tp, c.tp+c.fn),
			Flags:     c.tp + c.fp,
		})
	}
	sort.Slice(s.Rules, func(i, j int) bool { return s.Rules[i].Rule < s.Rules[j].Rule })
	return s
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
