// Package streak tracks consecutive days of learning activity and detects
// milestone streak lengths.
package streak

// DefaultMilestoneInterval fires a milestone every week of unbroken activity.
const DefaultMilestoneInterval = 7

// State is a learner's streak.
type State struct {
	CurrentDays  int `json:"current_days"`
	LongestDays  int `json:"longest_days"`
	LastActivity Day `json:"last_activity"`
}

// Outcome describes the effect of recording one activity.
type Outcome struct {
	State State `json:"state"`
	// Changed is true when the streak count moved.
	Changed bool `json:"changed"`
	// Milestone is true when the activity moved LastActivity forward and the
	// new count is a positive multiple of the milestone interval.
	Milestone bool `json:"milestone"`
}

// Record applies an activity on day and returns the new state. Activity on
// the same day as the last one is a no-op, the next day extends the streak,
// and any longer gap starts over at 1. Days before the last activity are
// ignored.
func (s State) Record(day Day, interval int) (State, Outcome) {
	next := s
	switch {
	case s.LastActivity.IsZero():
		next.CurrentDays = 1
	default:
		switch gap := day.DaysSince(s.LastActivity); {
		case gap <= 0:
			return s, Outcome{State: s}
		case gap == 1:
			next.CurrentDays = s.CurrentDays + 1
		default:
			next.CurrentDays = 1
		}
	}
	next.LastActivity = day
	next.LongestDays = max(s.LongestDays, next.CurrentDays)

	out := Outcome{State: next, Changed: next.CurrentDays != s.CurrentDays}
	out.Milestone = interval > 0 && next.CurrentDays%interval == 0
	return next, out
}
