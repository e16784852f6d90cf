package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"vocabquiz/internal/app"
	"vocabquiz/internal/backend"
	"vocabquiz/internal/handlers"
	"vocabquiz/internal/models"
	"vocabquiz/internal/quiz"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show how well you know each word",
	RunE: func(cmd *cobra.Command, args []string) error {
		filterFlag, _ := cmd.Flags().GetString("filter")
		filter, err := quiz.ParseFilter(filterFlag)
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		session, err := signIn(cmd, a.AuthService, bufio.NewReader(cmd.InOrStdin()))
		if err != nil {
			return err
		}
		defer a.AuthService.SignOut(cmd.Context(), session.AccessToken)

		ctx := backend.WithAccessToken(cmd.Context(), session.AccessToken)
		report, err := a.ProgressService.Report(ctx, session.User.ID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}

		printReport(cmd.OutOrStdout(), report, filter)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
	addCredentialFlags(progressCmd)
	progressCmd.Flags().StringP("filter", "f", string(quiz.FilterAll), "all or weak")
}

// printReport renders the strength summary and the filtered entries as a table
func printReport(w io.Writer, report quiz.Report, filter quiz.Filter) {
	fmt.Fprintf(w, "Strong: %d  Medium: %d  Weak: %d\n\n", report.Strong, report.Medium, report.Weak)

	entries := report.Visible(filter)
	if len(entries) == 0 {
		fmt.Fprintln(w, handlers.MsgNoMatchingWords)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEANING\tFORMS\tEASE\tCORRECT\tINCORRECT\tSTRENGTH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			e.Item.Meaning, formValues(e.Item.Forms), e.Ease, e.CorrectCount, e.IncorrectCount, e.Strength)
	}
	tw.Flush()
}

func formValues(forms []models.Form) string {
	return strings.Join(lo.Map(forms, func(f models.Form, _ int) string { return f.Value }), " / ")
}
