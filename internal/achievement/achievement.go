// Package achievement maps lifetime progress counters onto unlocked badges.
package achievement

// ID identifies an achievement in persisted progress.
type ID string

const (
	FirstQuiz     ID = "first_quiz"
	PerfectScore  ID = "perfect_score"
	QuizMaster    ID = "quiz_master"
	Perfectionist ID = "perfectionist"
	Streak3       ID = "streak_3"
	Streak7       ID = "streak_7"
	Dedicated     ID = "dedicated"
)

// Counters are the progress values thresholds are checked against.
type Counters struct {
	TotalQuizzes  int
	PerfectScores int
	Streak        int
}

// Achievement is one row of the catalog.
type Achievement struct {
	ID          ID
	Name        string
	Description string
	Icon        string
	earned      func(Counters) bool
}

// Earned reports whether c meets the threshold.
func (a Achievement) Earned(c Counters) bool {
	return a.earned(c)
}

// Catalog is the fixed achievement table in display order.
var Catalog = []Achievement{
	{
		ID: FirstQuiz, Name: "Getting Started", Description: "Complete your first quiz", Icon: "🎯",
		earned: func(c Counters) bool { return c.TotalQuizzes >= 1 },
	},
	{
		ID: PerfectScore, Name: "Perfect Score", Description: "Get 100% on a quiz", Icon: "⭐",
		earned: func(c Counters) bool { return c.PerfectScores >= 1 },
	},
	{
		ID: QuizMaster, Name: "Quiz Master", Description: "Complete 10 quizzes", Icon: "🏆",
		earned: func(c Counters) bool { return c.TotalQuizzes >= 10 },
	},
	{
		ID: Perfectionist, Name: "Perfectionist", Description: "Get 5 perfect scores", Icon: "💯",
		earned: func(c Counters) bool { return c.PerfectScores >= 5 },
	},
	{
		ID: Streak3, Name: "3 Day Streak", Description: "Practice 3 days in a row", Icon: "🔥",
		earned: func(c Counters) bool { return c.Streak >= 3 },
	},
	{
		ID: Streak7, Name: "Week Warrior", Description: "Practice 7 days in a row", Icon: "🚀",
		earned: func(c Counters) bool { return c.Streak >= 7 },
	},
	{
		ID: Dedicated, Name: "Dedicated Learner", Description: "Complete 50 quizzes", Icon: "📚",
		earned: func(c Counters) bool { return c.TotalQuizzes >= 50 },
	},
}

// Lookup returns the catalog entry for id.
func Lookup(id ID) (Achievement, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Evaluate returns unlocked plus every newly earned id, appended in catalog order.
// Ids already present are never removed, even if their threshold no longer holds.
func Evaluate(c Counters, unlocked []ID) []ID {
	have := make(map[ID]struct{}, len(unlocked))
	out := make([]ID, 0, len(Catalog))
	for _, id := range unlocked {
		if _, dup := have[id]; dup {
			continue
		}
		have[id] = struct{}{}
		out = append(out, id)
	}
	for _, a := range Catalog {
		if _, ok := have[a.ID]; ok {
			continue
		}
		if a.Earned(c) {
			out = append(out, a.ID)
		}
	}
	return out
}

// Delta returns the ids in after that are not in before.
func Delta(before, after []ID) []ID {
	seen := make(map[ID]struct{}, len(before))
	for _, id := range before {
		seen[id] = struct{}{}
	}
	var out []ID
	for _, id := range after {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
