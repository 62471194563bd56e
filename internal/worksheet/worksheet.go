// Package worksheet builds printable question/answer sheets from topics and drill generators.
package worksheet

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/gokatarajesh/maths-quiz/internal/topic"
)

// Mode picks the sheet layout and its count bounds.
type Mode string

const (
	ModeWorksheet Mode = "worksheet"
	ModeStarter   Mode = "starter"
	ModeDrill     Mode = "drill"
)

const (
	DefaultWorksheetCount = 10
	MaxWorksheetCount     = 50
	DefaultStarterCount   = 2
	MaxStarterCount       = 4
	DefaultDrillCount     = 10
)

var (
	ErrNoQuestions = errors.New("worksheet: selected topics have no questions")
	ErrNoTopics    = errors.New("worksheet: no topics selected")
)

// ParseMode maps "" to the worksheet mode and rejects anything unknown.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case "", ModeWorksheet:
		return ModeWorksheet, nil
	case ModeStarter:
		return ModeStarter, nil
	default:
		return "", fmt.Errorf("unknown worksheet mode %q", raw)
	}
}

// ClampCount applies the mode's default when n is 0 (unset) and clamps anything
// else to the mode's 1..max range.
func (m Mode) ClampCount(n int) int {
	def, hi := DefaultWorksheetCount, MaxWorksheetCount
	switch m {
	case ModeStarter:
		def, hi = DefaultStarterCount, MaxStarterCount
	case ModeDrill:
		def = DefaultDrillCount
	}
	if n == 0 {
		return def
	}
	return max(1, min(n, hi))
}

// Item is one printable question with its resolved answer.
type Item struct {
	TopicName   string `json:"topicName"`
	TopicIcon   string `json:"topicIcon"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation,omitempty"`
}

type Options struct {
	Mode  Mode
	Count int
	// Tier keeps only questions whose difficulty maps to this tier. Questions
	// without a difficulty always pass.
	Tier topic.Tier
}

// Worksheet is a generated sheet plus its answer-reveal state. Reveal state never
// touches Items; only Regenerate re-samples.
type Worksheet struct {
	Mode     Mode
	Items    []Item
	revealed []bool
	sample   func(*rand.Rand) []Item
}

func newWorksheet(mode Mode, sample func(*rand.Rand) []Item, rng *rand.Rand) *Worksheet {
	w := &Worksheet{Mode: mode, sample: sample}
	w.Regenerate(rng)
	return w
}

// FromItems wraps items generated elsewhere, such as an API response.
// Regenerate keeps returning the same items.
func FromItems(mode Mode, items []Item) *Worksheet {
	fixed := append([]Item(nil), items...)
	return &Worksheet{
		Mode:     mode,
		Items:    fixed,
		revealed: make([]bool, len(fixed)),
		sample:   func(*rand.Rand) []Item { return fixed },
	}
}

// Generate flattens the questions of topics, shuffles them and keeps the first count.
func Generate(topics []topic.Topic, opts Options, rng *rand.Rand) (*Worksheet, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	if opts.Mode == "" {
		opts.Mode = ModeWorksheet
	}
	pool := flatten(topics, opts.Tier)
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}
	count := opts.Mode.ClampCount(opts.Count)

	return newWorksheet(opts.Mode, func(rng *rand.Rand) []Item {
		return shuffleTake(pool, count, rng)
	}, rng), nil
}

func flatten(topics []topic.Topic, tier topic.Tier) []Item {
	var pool []Item
	for _, t := range topics {
		for _, q := range t.Questions {
			if tier != "" && !q.Difficulty.IsZero() && q.Difficulty.Tier() != tier {
				continue
			}
			pool = append(pool, Item{
				TopicName:   t.Name,
				TopicIcon:   t.Icon.Glyph(),
				Question:    q.Prompt,
				Answer:      q.CorrectText(),
				Explanation: q.Explanation,
			})
		}
	}
	return pool
}

func shuffleTake(pool []Item, count int, rng *rand.Rand) []Item {
	out := append([]Item(nil), pool...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:min(count, len(out))]
}

// Regenerate re-samples the items and hides every answer.
func (w *Worksheet) Regenerate(rng *rand.Rand) {
	w.Items = w.sample(rng)
	w.revealed = make([]bool, len(w.Items))
}

// Toggle flips the reveal state of item i. Out-of-range indexes are ignored.
func (w *Worksheet) Toggle(i int) {
	if i >= 0 && i < len(w.revealed) {
		w.revealed[i] = !w.revealed[i]
	}
}

func (w *Worksheet) RevealAll() {
	for i := range w.revealed {
		w.revealed[i] = true
	}
}

func (w *Worksheet) HideAll() {
	clear(w.revealed)
}

func (w *Worksheet) Revealed(i int) bool {
	return i >= 0 && i < len(w.revealed) && w.revealed[i]
}
