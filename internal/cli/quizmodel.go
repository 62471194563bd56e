package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/gokatarajesh/maths-quiz/internal/progress"
	"github.com/gokatarajesh/maths-quiz/internal/quiz"
)

type quizPhase int

const (
	phaseAnswering quizPhase = iota
	phaseFeedback
	phaseResult
	phaseDiscarded
)

// quizTickMsg takes one second off the clock of the attempt it was scheduled for.
type quizTickMsg struct {
	attempt int
}

type recorded struct {
	result  progress.QuizResult
	outcome progress.RecordOutcome
	err     error
}

type quizModelOptions struct {
	Title string
	// Record persists a completed attempt. It runs inside Update.
	Record func(progress.QuizResult) recorded
}

// quizModel plays a session until the learner finishes without retrying or quits.
// Quitting mid-attempt discards it; a completed attempt is recorded exactly once.
type quizModel struct {
	s     *quiz.Session
	title string

	attempt int
	phase   quizPhase
	expired bool
	notice  string
	rec     *recorded
	done    bool
}

var _ tea.Model = (*quizModel)(nil)

func newQuizModel(s *quiz.Session, opts quizModelOptions) *quizModel {
	m := &quizModel{s: s, title: opts.Title}
	s.OnComplete(func(r progress.QuizResult) {
		rec := recorded{result: r}
		if opts.Record != nil {
			rec = opts.Record(r)
		}
		m.rec = &rec
	})
	return m
}

func (m *quizModel) Init() tea.Cmd {
	return m.tick()
}

// tick schedules the next clock tick. Untimed sessions never tick.
func (m *quizModel) tick() tea.Cmd {
	if !m.s.Timed() {
		return nil
	}
	attempt := m.attempt
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return quizTickMsg{attempt: attempt}
	})
}

func (m *quizModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case quizTickMsg:
		if msg.attempt != m.attempt || m.phase >= phaseResult {
			return m, nil
		}
		if m.s.Tick() {
			m.expired = true
			m.phase = phaseResult
			return m, nil
		}
		return m, m.tick()

	case tea.KeyPressMsg:
		m.notice = ""
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m *quizModel) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "esc", "q":
		return m.quit()
	}

	switch m.phase {
	case phaseAnswering:
		return m.answerKey(key)
	case phaseFeedback:
		if key == "enter" || key == "space" {
			m.advance()
		}
	case phaseResult:
		switch key {
		case "r":
			m.retry()
			return m, m.tick()
		case "enter":
			return m.quit()
		}
	}
	return m, nil
}

func (m *quizModel) answerKey(key string) (tea.Model, tea.Cmd) {
	v := m.s.View()
	switch key {
	case "f":
		m.s.Finish()
		m.phase = phaseResult
	case "up", "k":
		m.s.Select(max(v.Selected-1, 0))
	case "down", "j":
		m.s.Select(min(v.Selected+1, len(v.Options)-1))
	case "enter", "space":
		if v.Selected == quiz.Unanswered {
			m.notice = "Pick an answer first."
			return m, nil
		}
		m.submit(v.Selected)
	default:
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > len(v.Options) {
			m.notice = fmt.Sprintf("Enter a number from 1 to %d.", len(v.Options))
			return m, nil
		}
		m.s.Select(n - 1)
		m.submit(n - 1)
	}
	return m, nil
}

func (m *quizModel) submit(i int) {
	_, err := m.s.Submit(i)
	switch {
	case errors.Is(err, quiz.ErrSessionComplete):
		m.phase = phaseResult
	case err != nil:
		m.notice = err.Error()
	default:
		m.phase = phaseFeedback
	}
}

func (m *quizModel) advance() {
	if err := m.s.Advance(); err != nil && !errors.Is(err, quiz.ErrSessionComplete) {
		m.notice = err.Error()
		return
	}
	if m.s.View().Complete {
		m.phase = phaseResult
		return
	}
	m.phase = phaseAnswering
}

func (m *quizModel) retry() {
	m.s.Retry()
	m.attempt++
	m.phase = phaseAnswering
	m.expired = false
	m.rec = nil
}

// quit leaves the program. An attempt that already completed keeps its result.
func (m *quizModel) quit() (tea.Model, tea.Cmd) {
	if m.s.View().Complete {
		m.phase = phaseResult
	} else {
		m.phase = phaseDiscarded
	}
	m.done = true
	return m, tea.Quit
}

func (m *quizModel) finished() bool {
	return m.done
}

func (m *quizModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m *quizModel) render() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title) + "\n")

	switch m.phase {
	case phaseDiscarded:
		b.WriteString("\n" + hintStyle.Render("Session discarded.") + "\n")
		return b.String()
	case phaseResult:
		if m.expired {
			b.WriteString("\n" + accentStyle.Render("⏱ Time's up!") + "\n")
		}
		b.WriteString(m.renderResult())
		if !m.done {
			b.WriteString("\n" + hintStyle.Render("r retry with reshuffled answers · enter finish") + "\n")
		}
		return b.String()
	}

	v := m.s.View()
	header := fmt.Sprintf("Question %d/%d", v.Index+1, v.Total)
	if v.Timed {
		header += "  ⏱ " + clock(int(v.Remaining.Seconds()))
	}
	b.WriteString("\n" + headingStyle.Render(header) + "\n")
	b.WriteString(v.Question.Prompt + "\n")
	if v.Question.GraphExpression != "" {
		b.WriteString(dimStyle.Render("graph: y = "+v.Question.GraphExpression) + "\n")
	}
	if v.Question.ImageURL != "" {
		b.WriteString(dimStyle.Render("image: "+v.Question.ImageURL) + "\n")
	}

	right := ""
	for i, opt := range v.Options {
		cursor := "  "
		if i == v.Selected {
			cursor = accentStyle.Render("› ")
		}
		line := fmt.Sprintf("%d) %s", i+1, opt.Text)
		if v.FeedbackShown {
			switch {
			case opt.IsCorrect:
				line = correctStyle.Render(line + " ✓")
			case i == v.Answer:
				line = incorrectStyle.Render(line + " ✗")
			}
		}
		if opt.IsCorrect {
			right = opt.Text
		}
		b.WriteString(cursor + line + "\n")
	}

	if v.FeedbackShown {
		if v.Correct {
			b.WriteString(correctStyle.Render("✓ Correct!") + "\n")
		} else {
			b.WriteString(incorrectStyle.Render("✗ Not quite.") + " The answer is " + accentStyle.Render(right) + "\n")
		}
		if v.Question.Explanation != "" {
			b.WriteString(dimStyle.Render(v.Question.Explanation) + "\n")
		}
	}
	if m.notice != "" {
		b.WriteString(hintStyle.Render(m.notice) + "\n")
	}
	if v.FeedbackShown {
		b.WriteString(hintStyle.Render("enter continue · q quit") + "\n")
	} else {
		b.WriteString(hintStyle.Render(fmt.Sprintf("1-%d or ↑↓ enter to answer · f finish · q quit", len(v.Options))) + "\n")
	}
	return b.String()
}

func (m *quizModel) renderResult() string {
	rec := recorded{result: m.s.Result()}
	if m.rec != nil {
		rec = *m.rec
	}
	r := rec.result
	pct := 0.0
	if r.Total > 0 {
		pct = float64(r.Score) / float64(r.Total) * 100
	}

	var card strings.Builder
	fmt.Fprintf(&card, "%s\n\n", titleStyle.Render("Quiz complete"))
	fmt.Fprintf(&card, "Score  %d/%d  %s\n", r.Score, r.Total, bar(pct, 20))
	fmt.Fprintf(&card, "Time   %s", clock(r.TimeSpent))
	if m.rec != nil && rec.err == nil {
		fmt.Fprintf(&card, "\nStreak %d day(s)", rec.outcome.Progress.Streak)
	}

	var b strings.Builder
	b.WriteString("\n" + cardStyle.Render(card.String()) + "\n")
	if rec.err != nil {
		b.WriteString(incorrectStyle.Render("Your result could not be saved.") + "\n")
	}
	for _, ach := range rec.outcome.NewAchievements {
		fmt.Fprintf(&b, "%s %s: %s\n", accentStyle.Render(ach.Icon+" Achievement unlocked!"), ach.Name, ach.Description)
	}
	if len(r.Mistakes) > 0 {
		b.WriteString(headingStyle.Render("Review") + "\n")
		for _, mk := range r.Mistakes {
			chosen := mk.Chosen
			if chosen == "" {
				chosen = "(no answer)"
			}
			fmt.Fprintf(&b, "• %s\n  you: %s  answer: %s\n", mk.Prompt, incorrectStyle.Render(chosen), correctStyle.Render(mk.Correct))
		}
	}
	return b.String()
}
