package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkedin-outreach/pkg/acquire"
	"github.com/linkedin-outreach/pkg/browser"
	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
	"github.com/linkedin-outreach/pkg/report"
	"github.com/linkedin-outreach/pkg/search"
	"github.com/linkedin-outreach/pkg/session"
	"github.com/linkedin-outreach/pkg/stealth"
)

var (
	cfgFile  string
	keywords string
	target   int
)

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Sends LinkedIn connection requests for a keyword search",
	Long: `outreach logs into LinkedIn, searches for people matching the given
keywords and sends connection requests until the target count is reached
or the result set runs dry. Results are appended to a JSON history file
and a CSV export.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "./config.yaml", "config file path")
	rootCmd.Flags().StringVarP(&keywords, "keywords", "k", "", "search keywords (required)")
	rootCmd.Flags().IntVarP(&target, "target", "t", 10, "number of connection requests to send")
	rootCmd.MarkFlagRequired("keywords")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// run validates everything it can before a browser ever launches, then
// drives the session, search and acquisition stages in order.
func run(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if target < 0 {
		return fmt.Errorf("target must be non-negative, got %d", target)
	}

	logger.Init(cfg.Logging)
	defer logger.Sync()

	log := logger.WithComponent("outreach")
	log.Infow("Starting outreach run", "keywords", keywords, "target", target)

	reporter, err := report.New(&cfg.Report)
	if err != nil {
		return fmt.Errorf("failed to initialize reporting: %w", err)
	}

	timing := stealth.NewTimingController(&cfg.Stealth.Timing)
	br := browser.New(browser.Options{
		Config:      cfg,
		Fingerprint: stealth.NewFingerprintManager(&cfg.Stealth.Fingerprint, &cfg.Browser),
		Mouse:       stealth.NewMouseController(&cfg.Stealth.MouseMovement),
		Timing:      timing,
		Scroll:      stealth.NewScrollController(&cfg.Stealth.Scrolling, timing),
		Typing:      stealth.NewTypingController(&cfg.Stealth.Typing),
	})

	if err := br.Launch(ctx); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer br.Close()

	startedAt := time.Now()

	res := session.New(cfg, br, timing).Establish(ctx)
	if !res.Authenticated {
		return fmt.Errorf("session not established: %s", res.Message)
	}

	nav := search.New(cfg, br, timing)
	if err := nav.Search(ctx, keywords); err != nil {
		return err
	}
	if err := nav.SwitchToPeopleScope(ctx); err != nil {
		return err
	}

	counters, runErr := acquire.New(cfg, br, timing).Run(ctx, target)

	outcome := "completed"
	if runErr != nil {
		outcome = "aborted"
		br.CaptureFailure("run")
	}

	rec := report.RunRecord{
		Keywords:                keywords,
		Target:                  target,
		ConnectionsMade:         counters.ConnectionsMade,
		ProfilesScanned:         counters.ProfilesScanned,
		ActionableElementsFound: counters.ActionableElementsFound,
		PagesVisited:            counters.PagesVisited,
		StartedAt:               startedAt,
		FinishedAt:              time.Now(),
		Outcome:                 outcome,
	}
	if err := reporter.Append(rec); err != nil {
		log.Warnf("Failed to record run: %v", err)
	}

	log.Infow("Run finished",
		"connections_made", counters.ConnectionsMade,
		"profiles_scanned", counters.ProfilesScanned,
		"actionable_elements_found", counters.ActionableElementsFound,
		"pages_visited", counters.PagesVisited,
		"outcome", outcome,
	)

	return runErr
}
