package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/observability"
)

var (
	exportOutDir   string
	exportRenderer string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the latest report of an interview to PDF",
	Long:  "Generates the narrative for the interview's latest stored report, renders it to PDF and publishes it to S3 when configured, otherwise to --out.",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&interviewID, "interview", "i", "", "Interview ID (required)")
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", "", "Output directory (default from config)")
	exportCmd.Flags().StringVar(&exportRenderer, "renderer", "", "Renderer: latex or chrome (default from config)")
	_ = exportCmd.MarkFlagRequired("interview")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, needs{generator: true})
	if err != nil {
		return err
	}
	defer a.close()

	dir := a.cfg.Export.Dir
	if exportOutDir != "" {
		dir = exportOutDir
	}
	renderer := a.cfg.Export.Renderer
	if exportRenderer != "" {
		renderer = exportRenderer
	}

	svc, _, err := a.exporter(a.pipeline(), renderer, dir, "")
	if err != nil {
		return err
	}
	res, err := svc.Export(ctx, interviewID)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	location := res.Path
	if res.URL != "" {
		location = res.URL
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintExport(res.FileName, location, res.Renderer)
	return nil
}
