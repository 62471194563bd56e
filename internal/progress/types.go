// Package progress persists quiz history, streaks and achievements for one learner.
package progress

import (
	"time"

	"github.com/gokatarajesh/maths-quiz/internal/achievement"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
)

// Storage keys. They match the keys the web client uses in local storage.
const (
	KeyProgress    = "addvance_quiz_progress"
	KeyPreferences = "addvance_quiz_preferences"
	KeyClientID    = "addvance_user_id"
	KeyLastVisit   = "addvance_last_visit"
)

// Mistake is one wrongly answered or unanswered question from a finished quiz.
type Mistake struct {
	QuestionID  string `json:"questionId"`
	Prompt      string `json:"question"`
	Chosen      string `json:"chosen,omitempty"`
	Correct     string `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// QuizResult is appended once per completed session.
type QuizResult struct {
	TopicID    string     `json:"topicId"`
	TopicName  string     `json:"topicName"`
	Score      int        `json:"score"`
	Total      int        `json:"total"`
	Difficulty topic.Tier `json:"difficulty"`
	Timestamp  time.Time  `json:"timestamp"`
	// TimeSpent is whole seconds from session start to completion.
	TimeSpent int       `json:"timeSpent"`
	Mistakes  []Mistake `json:"mistakes,omitempty"`
}

// Perfect reports a full-marks result.
func (r QuizResult) Perfect() bool {
	return r.Total > 0 && r.Score == r.Total
}

// UserProgress is the persisted progress record. QuizHistory is newest first.
type UserProgress struct {
	QuizHistory       []QuizResult     `json:"quizHistory"`
	Achievements      []achievement.ID `json:"achievements"`
	LastVisit         time.Time        `json:"lastVisit"`
	Streak            int              `json:"streak"`
	LastStreakDate    string           `json:"lastStreakDate"`
	TotalQuizzesTaken int              `json:"totalQuizzesTaken"`
	PerfectScores     int              `json:"perfectScores"`
}

// Counters projects the fields achievements are evaluated against.
func (p UserProgress) Counters() achievement.Counters {
	return achievement.Counters{
		TotalQuizzes:  p.TotalQuizzesTaken,
		PerfectScores: p.PerfectScores,
		Streak:        p.Streak,
	}
}

// Preferences are the learner's quiz defaults.
type Preferences struct {
	Difficulty topic.Tier `json:"difficulty"`
	StudyMode  bool       `json:"studyMode"`
}

// DefaultPreferences is returned when nothing (or nothing readable) is stored.
func DefaultPreferences() Preferences {
	return Preferences{Difficulty: topic.TierFoundation}
}

func defaultProgress(now time.Time) UserProgress {
	return UserProgress{
		QuizHistory:  []QuizResult{},
		Achievements: []achievement.ID{},
		LastVisit:    now,
	}
}
