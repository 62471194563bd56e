package cli

import (
	"context"
	"fmt"
	"io"

	tea "charm.land/bubbletea/v2"

	"github.com/gokatarajesh/maths-quiz/internal/progress"
	"github.com/gokatarajesh/maths-quiz/internal/quiz"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
)

// ProgramRunner runs an interactive model until it quits.
type ProgramRunner func(ctx context.Context, m tea.Model, in io.Reader, out io.Writer) (tea.Model, error)

func runTeaProgram(ctx context.Context, m tea.Model, in io.Reader, out io.Writer) (tea.Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	return p.Run()
}

// runQuiz plays cfg interactively and records every completed attempt.
func (a *app) runQuiz(ctx context.Context, cfg quiz.Config) error {
	svc, err := a.progressService(ctx)
	if err != nil {
		return err
	}
	if visit, err := svc.TouchVisit(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("could not record visit")
	} else {
		a.logger.Debug().Str("client_id", visit.ClientID).Bool("new", visit.New).Msg("visit")
	}

	cfg.Rand = a.opts.Rand()
	cfg.Clock = a.opts.Now
	s, err := quiz.NewSession(cfg)
	if err != nil {
		return err
	}

	m := newQuizModel(s, quizModelOptions{
		Title:  fmt.Sprintf("%s · %s · %s", cfg.TopicName, modeLabel(cfg), tierLabel(cfg)),
		Record: func(r progress.QuizResult) recorded {
			outcome, err := svc.RecordResult(ctx, r)
			if err != nil {
				a.logger.Error().Err(err).Msg("saving quiz result failed")
			}
			return recorded{result: r, outcome: outcome, err: err}
		},
	})
	_, err = a.opts.RunProgram(ctx, m, a.opts.In, a.out())
	return err
}

func modeLabel(cfg quiz.Config) string {
	switch cfg.Mode {
	case topic.ModeStudy:
		return "Study"
	case topic.ModePractice:
		return "Practice"
	}
	return "Quiz"
}

func tierLabel(cfg quiz.Config) string {
	if cfg.Difficulty == topic.TierHigher {
		return "Higher"
	}
	return "Foundation"
}
