package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/maths-quiz/internal/progress"
	"github.com/gokatarajesh/maths-quiz/internal/quiz"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
)

const (
	customTopicID    = "custom-quiz"
	customTopicName  = "Custom Quiz"
	customMinCount   = 5
	customMaxCount   = 30
	customDefaultCnt = 10
)

func newPlayCmd(a *app) *cobra.Command {
	var rawMode, rawTier string
	cmd := &cobra.Command{
		Use:   "play TOPIC_ID",
		Short: "Play every question of one topic",
		Long:  "Play every question of one topic. Quiz mode is timed (5 minutes); study and practice modes are untimed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := a.api.GetTopic(ctx, args[0])
			if errors.Is(err, topic.ErrNotFound) {
				return fmt.Errorf("no topic %q; run `maths-quiz topics` to list them", args[0])
			}
			if err != nil {
				return fmt.Errorf("fetch topic: %w", err)
			}

			prefs, err := a.preferences(ctx)
			if err != nil {
				return err
			}
			mode, err := resolveMode(rawMode, t.Mode, prefs)
			if err != nil {
				return err
			}
			tier, err := resolveTier(rawTier, prefs)
			if err != nil {
				return err
			}

			return a.runQuiz(ctx, quiz.Config{
				Pool:       t.Questions,
				TopicID:    t.ID,
				TopicName:  t.Name,
				Difficulty: tier,
				Mode:       mode,
			})
		},
	}
	cmd.Flags().StringVar(&rawMode, "mode", "", "quiz, study or practice (default from topic or settings)")
	cmd.Flags().StringVar(&rawTier, "tier", "", "foundation or higher (default from settings)")
	return cmd
}

func newCustomCmd(a *app) *cobra.Command {
	var (
		count   int
		rawTier string
	)
	cmd := &cobra.Command{
		Use:   "custom TOPIC_ID...",
		Short: "Timed quiz drawing a random mix of questions from several topics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < customMinCount || count > customMaxCount {
				return fmt.Errorf("--count must be between %d and %d", customMinCount, customMaxCount)
			}
			prefs, err := a.preferences(cmd.Context())
			if err != nil {
				return err
			}
			tier, err := resolveTier(rawTier, prefs)
			if err != nil {
				return err
			}

			topics, err := a.api.GetTopics(cmd.Context(), args)
			if err != nil {
				return fmt.Errorf("fetch topics: %w", err)
			}
			var pool []topic.Question
			for _, t := range topics {
				pool = append(pool, t.Questions...)
			}
			a.logger.Debug().Int("pool", len(pool)).Int("count", count).Msg("custom quiz")

			return a.runQuiz(cmd.Context(), quiz.Config{
				Pool:       pool,
				Count:      count,
				TopicID:    customTopicID,
				TopicName:  customTopicName,
				Difficulty: tier,
				Mode:       topic.ModeQuiz,
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", customDefaultCnt, fmt.Sprintf("Number of questions (%d-%d)", customMinCount, customMaxCount))
	cmd.Flags().StringVar(&rawTier, "tier", "", "foundation or higher (default from settings)")
	return cmd
}

func (a *app) preferences(ctx context.Context) (progress.Preferences, error) {
	svc, err := a.progressService(ctx)
	if err != nil {
		return progress.Preferences{}, err
	}
	return svc.Preferences(ctx)
}

// resolveMode picks the --mode flag, then the topic default, then the study-mode setting.
func resolveMode(raw string, topicMode topic.Mode, prefs progress.Preferences) (topic.Mode, error) {
	if raw != "" {
		m := topic.Mode(raw)
		if !m.Valid() {
			return "", fmt.Errorf("unknown mode %q (want quiz, study or practice)", raw)
		}
		return m, nil
	}
	if topicMode.Valid() {
		return topicMode, nil
	}
	if prefs.StudyMode {
		return topic.ModeStudy, nil
	}
	return topic.ModeQuiz, nil
}

func resolveTier(raw string, prefs progress.Preferences) (topic.Tier, error) {
	if raw != "" {
		t := topic.Tier(raw)
		if !t.Valid() {
			return "", fmt.Errorf("unknown tier %q (want foundation or higher)", raw)
		}
		return t, nil
	}
	return prefs.Difficulty, nil
}
