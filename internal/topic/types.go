package topic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Tier is the two-tier GCSE difficulty tag.
type Tier string

const (
	TierFoundation Tier = "foundation"
	TierHigher     Tier = "higher"
)

// Valid reports whether t is one of the two tiers.
func (t Tier) Valid() bool {
	return t == TierFoundation || t == TierHigher
}

// Mode constants for topics and questions.
const (
	ModeQuiz     Mode = "quiz"
	ModeStudy    Mode = "study"
	ModePractice Mode = "practice"
)

// Mode selects how a quiz is played: quiz is timed and scored, study/practice are untimed.
type Mode string

// Timed reports whether the mode runs the countdown timer.
func (m Mode) Timed() bool {
	return m == ModeQuiz
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeQuiz, ModeStudy, ModePractice:
		return true
	default:
		return false
	}
}

// Numeric difficulty bounds (schema v2).
const (
	MinLevel = 1
	MaxLevel = 6
)

// Difficulty holds either a tier tag (schema v1) or a 1-6 level (schema v2).
// It marshals back into the form it was read in.
type Difficulty struct {
	tier  Tier
	level int
}

// TierDifficulty builds a tier-tagged difficulty.
func TierDifficulty(t Tier) Difficulty {
	return Difficulty{tier: t}
}

// LevelDifficulty builds a numeric difficulty.
func LevelDifficulty(level int) Difficulty {
	return Difficulty{level: level}
}

// IsZero reports whether no difficulty was set.
func (d Difficulty) IsZero() bool {
	return d.tier == "" && d.level == 0
}

// Level returns the numeric level, or 0 for tier-tagged values.
func (d Difficulty) Level() int {
	return d.level
}

// Tier maps the difficulty onto the two-tier scale. Levels 1-3 are foundation.
func (d Difficulty) Tier() Tier {
	switch {
	case d.tier != "":
		return d.tier
	case d.level >= 4:
		return TierHigher
	default:
		return TierFoundation
	}
}

func (d Difficulty) validate() error {
	if d.IsZero() {
		return nil
	}
	if d.tier != "" {
		if d.tier != TierFoundation && d.tier != TierHigher {
			return fmt.Errorf("unknown tier %q", d.tier)
		}
		return nil
	}
	if d.level < MinLevel || d.level > MaxLevel {
		return fmt.Errorf("level %d outside %d-%d", d.level, MinLevel, MaxLevel)
	}
	return nil
}

func (d Difficulty) String() string {
	if d.level > 0 {
		return strconv.Itoa(d.level)
	}
	return string(d.tier)
}

func (d Difficulty) MarshalJSON() ([]byte, error) {
	if d.level > 0 {
		return []byte(strconv.Itoa(d.level)), nil
	}
	if d.tier != "" {
		return json.Marshal(string(d.tier))
	}
	return []byte("null"), nil
}

func (d *Difficulty) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = Difficulty{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Difficulty{tier: Tier(s)}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("difficulty must be a tier or an integer: %w", err)
	}
	*d = Difficulty{level: n}
	return nil
}

// Question is a single multiple-choice item. CorrectAnswer indexes the authored Options order.
type Question struct {
	ID              string     `json:"id"`
	Prompt          string     `json:"question"`
	Options         []string   `json:"options"`
	CorrectAnswer   int        `json:"correctAnswer"`
	Explanation     string     `json:"explanation"`
	ImageURL        string     `json:"imageUrl,omitempty"`
	GraphExpression string     `json:"graphExpression,omitempty"`
	Difficulty      Difficulty `json:"difficulty,omitzero"`
	Mode            Mode       `json:"mode,omitempty"`
}

// CorrectText returns the text of the correct option.
func (q Question) CorrectText() string {
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectAnswer]
}

// Topic is a named, year-tagged collection of questions stored as one document.
type Topic struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Icon      Icon       `json:"icon"`
	YearLevel int        `json:"yearLevel"`
	Questions []Question `json:"questions"`
	Category  string     `json:"category,omitempty"`
	Mode      Mode       `json:"mode,omitempty"`
}

// YearLevelSummary is one row of GET /api/year-levels.
type YearLevelSummary struct {
	Year       int    `json:"year"`
	Grade      string `json:"grade"`
	TopicCount int    `json:"topicCount"`
}
