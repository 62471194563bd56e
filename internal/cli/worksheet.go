package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/maths-quiz/internal/client"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
	"github.com/gokatarajesh/maths-quiz/internal/worksheet"
)

// sheetFlags are the output options shared by worksheet and drills.
type sheetFlags struct {
	answers     bool
	csvPath     string
	interactive bool
}

func addSheetFlags(cmd *cobra.Command, sf *sheetFlags) {
	f := cmd.Flags()
	f.BoolVar(&sf.answers, "answers", false, "Print answers under every question")
	f.StringVar(&sf.csvPath, "csv", "", "Write the sheet as CSV to this file (- for stdout)")
	f.BoolVarP(&sf.interactive, "interactive", "i", false, "Reveal answers one at a time and regenerate on demand")
}

func newWorksheetCmd(a *app) *cobra.Command {
	var (
		rawMode string
		rawTier string
		count   int
		remote  bool
		sf      sheetFlags
	)
	cmd := &cobra.Command{
		Use:   "worksheet TOPIC_ID...",
		Short: "Print a worksheet or lesson starter from one or more topics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := worksheet.ParseMode(rawMode)
			if err != nil {
				return err
			}
			tier := topic.Tier(rawTier)
			if tier != "" && !tier.Valid() {
				return fmt.Errorf("unknown tier %q (want foundation or higher)", rawTier)
			}

			var ws *worksheet.Worksheet
			if remote {
				resp, err := a.api.Worksheet(cmd.Context(), client.WorksheetQuery{Topics: args, Mode: mode, Count: count, Tier: tier})
				if err != nil {
					return fmt.Errorf("generate worksheet: %w", err)
				}
				ws = worksheet.FromItems(resp.Mode, resp.Items)
			} else {
				topics, err := a.api.GetTopics(cmd.Context(), args)
				if err != nil {
					return fmt.Errorf("fetch topics: %w", err)
				}
				ws, err = worksheet.Generate(topics, worksheet.Options{Mode: mode, Count: count, Tier: tier}, a.opts.Rand())
				if err != nil {
					return err
				}
			}
			return a.emitSheet(cmd.Context(), sf, ws)
		},
	}
	f := cmd.Flags()
	f.StringVar(&rawMode, "mode", "", "worksheet (default, up to 50) or starter (up to 4)")
	f.IntVar(&count, "count", 0, "Number of questions (default 10 for worksheets, 2 for starters)")
	f.StringVar(&rawTier, "tier", "", "Only include foundation or higher questions")
	f.BoolVar(&remote, "remote", false, "Generate on the server instead of locally")
	addSheetFlags(cmd, &sf)
	return cmd
}

func newDrillsCmd(a *app) *cobra.Command {
	var (
		count  int
		remote bool
		sf     sheetFlags
	)
	cmd := &cobra.Command{
		Use:   "drills [FAMILY...]",
		Short: "Generate numeracy drills; with no arguments list the drill families",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, d := range worksheet.DrillTopics() {
					fmt.Fprintf(a.out(), "%-12s %s %-18s %s\n", d.ID, d.Icon, d.Name, dimStyle.Render(fmt.Sprintf("%d generators", d.Count)))
				}
				return nil
			}

			families := make([]worksheet.DrillTopic, 0, len(args))
			for _, raw := range args {
				d, err := worksheet.ParseDrillTopic(raw)
				if err != nil {
					return err
				}
				families = append(families, d)
			}

			var ws *worksheet.Worksheet
			if remote {
				resp, err := a.api.Drills(cmd.Context(), families, count)
				if err != nil {
					return fmt.Errorf("generate drills: %w", err)
				}
				ws = worksheet.FromItems(worksheet.ModeDrill, resp.Items)
			} else {
				var err error
				ws, err = worksheet.GenerateDrills(families, count, a.opts.Rand())
				if err != nil {
					return err
				}
			}
			return a.emitSheet(cmd.Context(), sf, ws)
		},
	}
	cmd.Flags().IntVar(&count, "count", worksheet.DefaultDrillCount, "Number of drills")
	cmd.Flags().BoolVar(&remote, "remote", false, "Generate on the server instead of locally")
	addSheetFlags(cmd, &sf)
	return cmd
}

// emitSheet writes ws as CSV, as a static sheet, or opens the interactive viewer.
func (a *app) emitSheet(ctx context.Context, sf sheetFlags, ws *worksheet.Worksheet) error {
	switch {
	case sf.csvPath != "":
		return a.writeCSV(sf.csvPath, ws)
	case sf.interactive:
		_, err := a.opts.RunProgram(ctx, newSheetModel(ws, a.opts.Rand), a.opts.In, a.out())
		return err
	}
	return worksheet.Render(a.out(), ws, sf.answers)
}

func (a *app) writeCSV(path string, ws *worksheet.Worksheet) error {
	if path == "-" {
		return worksheet.WriteCSV(a.out(), ws.Items)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := worksheet.WriteCSV(f, ws.Items); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out(), "Wrote %d questions to %s\n", len(ws.Items), path)
	return nil
}
