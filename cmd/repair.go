package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"agora/service"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

func newRepairCmd() *cobra.Command {
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Re-run deletion cascades and re-sync accepted answers",
		Long: `Walk every question and re-apply the soft-delete cascade and the
acceptance flags. Safe to run repeatedly; a second run reports no changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var s *spinner.Spinner
			if showProgress && !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = " Repairing content..."
				s.Writer = cmd.ErrOrStderr()
				s.Start()
			}

			report, err := app.Services.Deletion.Repair(ctx)

			if s != nil {
				s.Stop()
			}
			if err != nil {
				return fmt.Errorf("repair failed: %w", err)
			}

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), report)
			}
			renderRepairReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress indicator")
	return cmd
}

func renderRepairReport(cmd *cobra.Command, report *service.RepairReport) {
	w := cmd.OutOrStdout()
	successColor.Fprintln(w, "✓ Repair complete")
	printField(w, "Questions scanned", strconv.Itoa(report.QuestionsScanned))
	printField(w, "Deleted questions", strconv.Itoa(report.DeletedQuestions))
	printField(w, "Answers cascaded", strconv.FormatInt(report.AnswersCascaded, 10))
	printField(w, "Deleted answers", strconv.Itoa(report.DeletedAnswers))
	printField(w, "Acceptance cleared", strconv.Itoa(report.AcceptanceCleared))
	printField(w, "Acceptance restored", strconv.Itoa(report.AcceptanceRestored))
	printField(w, "Stale flags cleared", strconv.FormatInt(report.StaleFlagsCleared, 10))
}
