package domain

// ActionKind names the moderation action a fired rule requests.
type ActionKind string

// Supported actions. Report and noop are the baseline; remove and spam
// require moderator permissions on the target.
const (
	ActionReport ActionKind = "report"
	ActionNoop   ActionKind = "noop"
	ActionRemove ActionKind = "remove"
	ActionSpam   ActionKind = "spam"
)

// Valid reports whether a is a recognized action kind.
func (a ActionKind) Valid() bool {
	switch a {
	case ActionReport, ActionNoop, ActionRemove, ActionSpam:
		return true
	}
	return false
}

// RuleNotTriggered is the sentinel written to a record's rule outcome column
// when the rule did not fire. Every configured rule gets a column on every
// record; the column is never absent.
const RuleNotTriggered = "rule-not-triggered"
