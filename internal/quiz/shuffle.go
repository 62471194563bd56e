// Package quiz runs a single learner through a shuffled set of questions.
package quiz

import (
	"math/rand/v2"

	"github.com/gokatarajesh/maths-quiz/internal/topic"
)

// OptionEntry is one option after shuffling. OrigIndex points back into Question.Options.
type OptionEntry struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	OrigIndex int    `json:"origIndex"`
}

// QuestionState pairs a question with the option order shown for this attempt.
type QuestionState struct {
	Question topic.Question `json:"question"`
	Options  []OptionEntry  `json:"options"`
}

// CorrectIndex is the session-local position of the correct option, or -1.
func (qs QuestionState) CorrectIndex() int {
	for i, o := range qs.Options {
		if o.IsCorrect {
			return i
		}
	}
	return -1
}

// ShuffleOptions permutes q's options and tags the entry whose original index is the answer.
func ShuffleOptions(q topic.Question, rng *rand.Rand) QuestionState {
	perm := rng.Perm(len(q.Options))
	entries := make([]OptionEntry, len(perm))
	for i, orig := range perm {
		entries[i] = OptionEntry{
			Text:      q.Options[orig],
			IsCorrect: orig == q.CorrectAnswer,
			OrigIndex: orig,
		}
	}
	return QuestionState{Question: q, Options: entries}
}

// ShuffleSession builds the per-question option permutations for one attempt.
// Session start and retry both go through here.
func ShuffleSession(questions []topic.Question, rng *rand.Rand) []QuestionState {
	states := make([]QuestionState, len(questions))
	for i, q := range questions {
		states[i] = ShuffleOptions(q, rng)
	}
	return states
}

// SelectQuestions shuffles a copy of pool and keeps the first count entries.
// count <= 0 or count >= len(pool) keeps the whole (shuffled) pool.
func SelectQuestions(pool []topic.Question, count int, rng *rand.Rand) []topic.Question {
	out := append([]topic.Question(nil), pool...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
