package score

// League is a deterministic classification of a balance into a named tier.
// Pure function of the threshold table, no stored state.
type League struct {
	Name     string `json:"name"`
	MinScore int    `json:"min_score"`
	NextAt   *int   `json:"next_at,omitempty"` // nil at the top tier
	Progress int    `json:"progress"`          // percent toward the next tier
}

type tier struct {
	name string
	min  int
}

// Tiers in ascending order.
var tiers = []tier{
	{"bronze", 0},
	{"silver", 500},
	{"gold", 1500},
	{"platinum", 4000},
	{"diamond", 10000},
}

// LeagueFor classifies a balance. Negative balances classify as the bottom tier.
func LeagueFor(balance int) League {
	if balance < 0 {
		balance = 0
	}

	current := tiers[0]
	var next *tier
	for i, t := range tiers {
		if balance >= t.min {
			current = t
			if i+1 < len(tiers) {
				next = &tiers[i+1]
			} else {
				next = nil
			}
		}
	}

	league := League{Name: current.name, MinScore: current.min}
	if next != nil {
		nextAt := next.min
		league.NextAt = &nextAt
		span := next.min - current.min
		league.Progress = (balance - current.min) * 100 / span
	} else {
		league.Progress = 100
	}
	return league
}
