package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/account"
	"github.com/jonathan/interview-coach/internal/history"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/server"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
)

var (
	servePort    int
	serveBaseURL string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes interview sessions, reports and exports.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8080)")
	serveCmd.Flags().StringVar(&serveBaseURL, "base-url", "", "Public base URL for download links (default http://localhost:<port>)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, needs{generator: true, speech: true})
	if err != nil {
		return err
	}
	defer a.close()

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}
	baseURL := serveBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", port)
	}

	pipeline := a.pipeline()
	exports, downloads, err := a.exporter(pipeline, a.cfg.Export.Renderer, a.cfg.Export.Dir, baseURL)
	if err != nil {
		return fmt.Errorf("failed to configure exports: %w", err)
	}

	svc := server.Services{
		Accounts:   account.NewService(a.store, a.log),
		History:    history.NewService(a.store, a.log),
		Interviews: interview.NewService(a.store, a.gen, a.speech, a.log, a.leaseTTL()),
		Reports:    pipeline,
		Exports:    exports,
		Downloads:  downloads,
	}

	srv := server.New(server.Config{Port: port, RateLimit: ratelimit.LoadConfig()}, svc, a.log)
	return srv.Start(ctx)
}
