package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/classify"
	"github.com/zsafwan/pr-contacts/internal/pipeline"
	anthropicpkg "github.com/zsafwan/pr-contacts/pkg/anthropic"
)

var (
	extractLimit        int
	extractSinceDays    int
	extractSkipClassify bool
	extractMboxPath     string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the contact extraction pipeline",
	Long: `Fetches recent email from the configured source, extracts sender
contacts from headers and signature blocks, resolves them against the
store, and classifies each contact by industry category and brand
mentions. Already-processed emails are skipped, so reruns are cheap.

Examples:
  # Extract from IMAP with classification
  prcontacts extract

  # One-off mbox import, no Claude calls
  prcontacts extract --mbox takeout.mbox --skip-classify`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if extractMboxPath != "" {
			cfg.Mail.Source = "mbox"
			cfg.Mail.MboxPath = extractMboxPath
		}
		if extractLimit > 0 {
			cfg.Extraction.MaxEmails = extractLimit
		}
		if extractSinceDays > 0 {
			cfg.Extraction.SinceDays = extractSinceDays
		}
		if extractSkipClassify {
			cfg.Extraction.SkipClassify = true
		}

		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		src, err := initMailSource()
		if err != nil {
			return err
		}

		var oracle classify.Oracle
		if !cfg.Extraction.SkipClassify {
			client := anthropicpkg.NewClient(cfg.Anthropic.Key)
			oracle = classify.NewClaudeOracle(client, cfg.Anthropic).
				WithConcurrency(cfg.Extraction.MaxConcurrency)
		}

		p := pipeline.New(cfg.Extraction, st, src, oracle)

		report, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("extraction complete",
			zap.String("run_id", report.RunID),
			zap.Int("fetched", report.Fetched),
			zap.Int("processed", report.Processed),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
			zap.Int("categorized", report.Categorized),
			zap.Int("deferred", report.Deferred),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	extractCmd.Flags().IntVar(&extractLimit, "limit", 0, "max emails to fetch (default from config)")
	extractCmd.Flags().IntVar(&extractSinceDays, "since-days", 0, "fetch emails newer than N days (default from config)")
	extractCmd.Flags().BoolVar(&extractSkipClassify, "skip-classify", false, "extract and resolve contacts without Claude classification")
	extractCmd.Flags().StringVar(&extractMboxPath, "mbox", "", "read from an mbox file instead of the configured source")
	rootCmd.AddCommand(extractCmd)
}
