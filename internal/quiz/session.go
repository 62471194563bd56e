package quiz

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gokatarajesh/maths-quiz/internal/progress"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
)

// QuizBudget is the time allowed for a timed session.
const QuizBudget = 300 * time.Second

// Unanswered marks an empty answer slot or no pending selection.
const Unanswered = -1

var (
	ErrEmptyPool        = errors.New("quiz: no questions to play")
	ErrFeedbackShown    = errors.New("quiz: question already answered")
	ErrNoFeedback       = errors.New("quiz: answer the question before advancing")
	ErrSessionComplete  = errors.New("quiz: session is complete")
	ErrOptionOutOfRange = errors.New("quiz: option index out of range")
)

type Config struct {
	Pool []topic.Question
	// Count limits the session to a random subset of Pool; <= 0 plays everything.
	Count      int
	TopicID    string
	TopicName  string
	Difficulty topic.Tier
	Mode       topic.Mode
	Rand       *rand.Rand
	Clock      func() time.Time
	// Budget overrides QuizBudget in timed mode.
	Budget time.Duration
}

// Session is one attempt at a question set. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	topicID    string
	topicName  string
	difficulty topic.Tier
	mode       topic.Mode
	budget     time.Duration
	rng        *rand.Rand
	now        func() time.Time

	questions []topic.Question
	states    []QuestionState
	answers   []int
	current   int
	pending   int
	feedback  bool
	remaining time.Duration

	complete   bool
	fired      bool
	startedAt  time.Time
	finishedAt time.Time
	done       chan struct{}
	hooks      []func(progress.QuizResult)
}

func NewSession(cfg Config) (*Session, error) {
	if len(cfg.Pool) == 0 {
		return nil, ErrEmptyPool
	}
	if cfg.Rand == nil {
		cfg.Rand = newRand()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Mode == "" {
		cfg.Mode = topic.ModeQuiz
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = topic.TierFoundation
	}
	if cfg.Budget <= 0 {
		cfg.Budget = QuizBudget
	}

	s := &Session{
		topicID:    cfg.TopicID,
		topicName:  cfg.TopicName,
		difficulty: cfg.Difficulty,
		mode:       cfg.Mode,
		budget:     cfg.Budget,
		rng:        cfg.Rand,
		now:        cfg.Clock,
		questions:  SelectQuestions(cfg.Pool, cfg.Count, cfg.Rand),
	}
	s.reset()
	return s, nil
}

// reset starts a fresh attempt. Callers hold mu (or own s exclusively).
func (s *Session) reset() {
	s.states = ShuffleSession(s.questions, s.rng)
	s.answers = make([]int, len(s.states))
	for i := range s.answers {
		s.answers[i] = Unanswered
	}
	s.current = 0
	s.pending = Unanswered
	s.feedback = false
	s.remaining = s.budget
	s.complete = false
	s.fired = false
	s.startedAt = s.now()
	s.finishedAt = time.Time{}
	s.done = make(chan struct{})
}

// Timed reports whether the session runs against the clock.
func (s *Session) Timed() bool {
	return s.mode.Timed()
}

// OnComplete registers fn to receive the result each time an attempt completes.
// fn runs once per attempt, outside the session lock.
func (s *Session) OnComplete(fn func(progress.QuizResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Done is closed when the current attempt completes or is abandoned by Retry.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Select records a pending choice for the current question. Ignored once answered.
func (s *Session) Select(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete || s.feedback {
		return
	}
	if i < 0 || i >= len(s.states[s.current].Options) {
		return
	}
	s.pending = i
}

// Submit answers the current question with session-local option index i and
// reports whether it was correct. Only the first submission per question counts.
func (s *Session) Submit(i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.complete:
		return false, ErrSessionComplete
	case s.feedback:
		return false, ErrFeedbackShown
	case i < 0 || i >= len(s.states[s.current].Options):
		return false, ErrOptionOutOfRange
	}

	s.answers[s.current] = i
	s.pending = i
	s.feedback = true
	return s.states[s.current].Options[i].IsCorrect, nil
}

// Advance moves past an answered question, completing the session after the last one.
func (s *Session) Advance() error {
	s.mu.Lock()
	if s.complete {
		s.mu.Unlock()
		return ErrSessionComplete
	}
	if !s.feedback {
		s.mu.Unlock()
		return ErrNoFeedback
	}

	if s.current < len(s.states)-1 {
		s.current++
		s.feedback = false
		s.pending = Unanswered
		s.mu.Unlock()
		return nil
	}

	fire := s.finishLocked()
	s.mu.Unlock()
	fire()
	return nil
}

// Tick takes one second off the clock in timed mode and reports whether time ran out.
func (s *Session) Tick() bool {
	s.mu.Lock()
	if s.complete || !s.mode.Timed() || s.remaining <= 0 {
		s.mu.Unlock()
		return false
	}
	s.remaining -= time.Second
	if s.remaining > 0 {
		s.mu.Unlock()
		return false
	}

	s.remaining = 0
	fire := s.finishLocked()
	s.mu.Unlock()
	fire()
	return true
}

// Finish ends the attempt early; unanswered questions score nothing.
func (s *Session) Finish() {
	s.mu.Lock()
	fire := s.finishLocked()
	s.mu.Unlock()
	fire()
}

// finishLocked marks completion and returns the hook invocation to run after unlocking.
func (s *Session) finishLocked() func() {
	if s.complete {
		return func() {}
	}
	s.complete = true
	s.finishedAt = s.now()
	close(s.done)

	if s.fired {
		return func() {}
	}
	s.fired = true
	result := s.resultLocked()
	hooks := append([]func(progress.QuizResult){}, s.hooks...)
	return func() {
		for _, fn := range hooks {
			fn(result)
		}
	}
}

// Retry starts a new attempt over the same questions with fresh option orders.
func (s *Session) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.complete {
		close(s.done)
	}
	s.reset()
}

// Score counts answered questions whose chosen option is the correct one.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked()
}

func (s *Session) scoreLocked() int {
	score := 0
	for i, a := range s.answers {
		if a != Unanswered && s.states[i].Options[a].IsCorrect {
			score++
		}
	}
	return score
}

// Result summarises the attempt for the progress store. Elapsed time runs to
// completion, or to now while the attempt is still open.
func (s *Session) Result() progress.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultLocked()
}

func (s *Session) resultLocked() progress.QuizResult {
	end := s.finishedAt
	if end.IsZero() {
		end = s.now()
	}
	r := progress.QuizResult{
		TopicID:    s.topicID,
		TopicName:  s.topicName,
		Score:      s.scoreLocked(),
		Total:      len(s.states),
		Difficulty: s.difficulty,
		Timestamp:  end,
		TimeSpent:  int(end.Sub(s.startedAt) / time.Second),
	}
	for i, st := range s.states {
		a := s.answers[i]
		if a != Unanswered && st.Options[a].IsCorrect {
			continue
		}
		m := progress.Mistake{
			QuestionID:  st.Question.ID,
			Prompt:      st.Question.Prompt,
			Correct:     st.Question.CorrectText(),
			Explanation: st.Question.Explanation,
		}
		if a != Unanswered {
			m.Chosen = st.Options[a].Text
		}
		r.Mistakes = append(r.Mistakes, m)
	}
	return r
}

// View is a point-in-time snapshot for rendering.
type View struct {
	Index         int
	Total         int
	Question      topic.Question
	Options       []OptionEntry
	Selected      int
	Answer        int
	FeedbackShown bool
	Correct       bool
	Remaining     time.Duration
	Timed         bool
	Complete      bool
	Score         int
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[s.current]
	v := View{
		Index:         s.current,
		Total:         len(s.states),
		Question:      st.Question,
		Options:       append([]OptionEntry(nil), st.Options...),
		Selected:      s.pending,
		Answer:        s.answers[s.current],
		FeedbackShown: s.feedback,
		Remaining:     s.remaining,
		Timed:         s.mode.Timed(),
		Complete:      s.complete,
		Score:         s.scoreLocked(),
	}
	if v.Answer != Unanswered {
		v.Correct = st.Options[v.Answer].IsCorrect
	}
	return v
}

// States returns a copy of the option permutations for this attempt.
func (s *Session) States() []QuestionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QuestionState, len(s.states))
	for i, st := range s.states {
		out[i] = QuestionState{Question: st.Question, Options: append([]OptionEntry(nil), st.Options...)}
	}
	return out
}

// Answers returns a copy of the answer slots.
func (s *Session) Answers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.answers...)
}
