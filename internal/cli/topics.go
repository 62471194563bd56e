package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/maths-quiz/internal/topic"
)

func newTopicsCmd(a *app) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List quiz topics (optionally for one year level)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				topics []topic.Topic
				err    error
			)
			if year != 0 {
				topics, err = a.api.TopicsByYear(cmd.Context(), year)
			} else {
				topics, err = a.api.ListTopics(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("fetch topics: %w", err)
			}
			if len(topics) == 0 {
				fmt.Fprintln(a.out(), hintStyle.Render("No topics found."))
				return nil
			}

			w := a.out()
			fmt.Fprintf(w, "%-24s  %-4s  %-30s  %4s  %s\n", "ID", "Year", "Name", "Qs", "Mode")
			fmt.Fprintln(w, dimStyle.Render(strings.Repeat("─", 76)))
			for _, t := range topics {
				mode := string(t.Mode)
				if mode == "" {
					mode = string(topic.ModeQuiz)
				}
				fmt.Fprintf(w, "%-24s  %-4d  %s %-28s  %4d  %s\n",
					t.ID, t.YearLevel, t.Icon.Glyph(), truncate(t.Name, 28), len(t.Questions), mode)
			}
			fmt.Fprintf(w, "\n%d topics\n", len(topics))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Only show topics for this year level (7-11)")
	return cmd
}

func newYearsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "Show topic counts per year level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, err := a.api.YearLevels(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch year levels: %w", err)
			}
			for _, l := range levels {
				fmt.Fprintf(a.out(), "%-14s %s\n", l.Grade, dimStyle.Render(fmt.Sprintf("%d topics", l.TopicCount)))
			}
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
