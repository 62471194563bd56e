package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/maths-quiz/internal/achievement"
	"github.com/gokatarajesh/maths-quiz/internal/progress"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show scores, streak, weakest topics and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.progressService(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}
			st := progress.ComputeStatistics(p)
			w := a.out()

			var b strings.Builder
			fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Your progress"))
			fmt.Fprintf(&b, "Quizzes taken   %d\n", st.TotalAttempts)
			fmt.Fprintf(&b, "Average score   %s\n", bar(st.AverageScore, 20))
			fmt.Fprintf(&b, "Perfect scores  %d\n", st.PerfectScores)
			fmt.Fprintf(&b, "Streak          %d day(s)", st.CurrentStreak)
			fmt.Fprintln(w, cardStyle.Render(b.String()))

			if len(st.TopicPerformance) > 0 {
				fmt.Fprintln(w, "\n"+headingStyle.Render("Topics (weakest first)"))
				for _, tp := range st.TopicPerformance {
					fmt.Fprintf(w, "%-28s %s  %s\n", truncate(tp.TopicName, 28), bar(tp.Percentage, 16),
						dimStyle.Render(fmt.Sprintf("%d attempt(s)", tp.Attempts)))
				}
			}

			if len(st.RecentActivity) > 0 {
				fmt.Fprintln(w, "\n"+headingStyle.Render("Recent activity"))
				for _, r := range st.RecentActivity {
					fmt.Fprintf(w, "%s  %-28s %d/%d\n",
						dimStyle.Render(r.Timestamp.In(a.loc).Format("02 Jan 15:04")), truncate(r.TopicName, 28), r.Score, r.Total)
				}
			}

			fmt.Fprintln(w, "\n"+headingStyle.Render("Achievements"))
			for _, ach := range achievement.Catalog {
				if slices.Contains(p.Achievements, ach.ID) {
					fmt.Fprintf(w, "%s %s  %s\n", ach.Icon, accentStyle.Render(ach.Name), ach.Description)
				} else {
					fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("🔒 %s  %s", ach.Name, ach.Description)))
				}
			}
			return nil
		},
	}
}

func newReviewCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List recent mistakes with the correct answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.progressService(cmd.Context())
			if err != nil {
				return err
			}
			items, err := svc.ReviewMistakes(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := a.out()
			if len(items) == 0 {
				fmt.Fprintln(w, hintStyle.Render("No mistakes to review."))
				return nil
			}
			for _, it := range items {
				chosen := it.Chosen
				if chosen == "" {
					chosen = "(no answer)"
				}
				fmt.Fprintf(w, "%s %s\n", dimStyle.Render("["+it.TopicName+"]"), it.Prompt)
				fmt.Fprintf(w, "  you: %s  answer: %s\n", incorrectStyle.Render(chosen), correctStyle.Render(it.Correct))
				if it.Explanation != "" {
					fmt.Fprintln(w, "  "+dimStyle.Render(it.Explanation))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", progress.DefaultReviewLimit, "Maximum mistakes to show")
	return cmd
}

func newSettingsCmd(a *app) *cobra.Command {
	var (
		rawDifficulty string
		studyMode     bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the default difficulty and study mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.progressService(cmd.Context())
			if err != nil {
				return err
			}
			prefs, err := svc.Preferences(cmd.Context())
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			changed := false
			if flags.Changed("difficulty") {
				tier := topic.Tier(rawDifficulty)
				if !tier.Valid() {
					return fmt.Errorf("unknown difficulty %q (want foundation or higher)", rawDifficulty)
				}
				prefs.Difficulty = tier
				changed = true
			}
			if flags.Changed("study-mode") {
				prefs.StudyMode = studyMode
				changed = true
			}
			if changed {
				if err := svc.SavePreferences(cmd.Context(), prefs); err != nil {
					return err
				}
			}

			fmt.Fprintf(a.out(), "difficulty  %s\nstudy mode  %t\n", prefs.Difficulty, prefs.StudyMode)
			return nil
		},
	}
	cmd.Flags().StringVar(&rawDifficulty, "difficulty", "", "foundation or higher")
	cmd.Flags().BoolVar(&studyMode, "study-mode", false, "Play topics untimed with explanations by default")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all quiz history, achievements and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("this deletes all progress; rerun with --yes to confirm")
			}
			svc, err := a.progressService(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out(), "Progress cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
