package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/observability"
)

var interviewID string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the structured evaluation report of an interview",
	Long:  "Prints the latest structured report, generating a new one when the interview's elapsed counter has changed since it was stored.",
	RunE:  runReport,
}

var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Print the per-question breakdown of an interview",
	RunE:  runBreakdown,
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print the question/answer pairs of an interview",
	RunE:  runTranscript,
}

func init() {
	for _, cmd := range []*cobra.Command{reportCmd, breakdownCmd, transcriptCmd} {
		cmd.Flags().StringVarP(&interviewID, "interview", "i", "", "Interview ID (required)")
		_ = cmd.MarkFlagRequired("interview")
		rootCmd.AddCommand(cmd)
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, needs{generator: true})
	if err != nil {
		return err
	}
	defer a.close()

	p := a.pipeline()
	in, err := p.Interview(ctx, interviewID)
	if err != nil {
		return err
	}
	rep, err := p.Report(ctx, interviewID)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintInterview(in)
	printer.PrintReport(rep)
	return nil
}

func runBreakdown(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, needs{generator: true})
	if err != nil {
		return err
	}
	defer a.close()

	b, err := a.pipeline().Breakdown(ctx, interviewID)
	if err != nil {
		return fmt.Errorf("failed to build breakdown: %w", err)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintBreakdown(b)
	return nil
}

func runTranscript(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.close()

	p := a.pipeline()
	in, err := p.Interview(ctx, interviewID)
	if err != nil {
		return err
	}
	pairs, err := p.Transcript(ctx, interviewID)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintInterview(in)
	printer.PrintTranscript(pairs)
	return nil
}
