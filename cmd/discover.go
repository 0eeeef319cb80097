package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/classify"
	"github.com/zsafwan/pr-contacts/internal/extract"
	"github.com/zsafwan/pr-contacts/internal/normalize"
	anthropicpkg "github.com/zsafwan/pr-contacts/pkg/anthropic"
)

var discoverSamples int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Seed the category vocabulary from a sample of recent email",
	Long: `Samples recent emails from the configured source and asks Claude to
propose the industry categories present in them. The proposed names are
inserted into the category vocabulary so later extract runs classify
against a known set instead of starting cold.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic.key is required for discovery")
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

		since := time.Now().AddDate(0, 0, -cfg.Extraction.SinceDays)
		emails, err := src.Fetch(ctx, since, discoverSamples)
		if err != nil {
			return eris.Wrap(err, "fetch samples")
		}
		if len(emails) == 0 {
			return eris.New("no emails to sample")
		}

		extractor := extract.New()
		samples := make([]classify.Evidence, 0, len(emails))
		for _, email := range emails {
			res := normalize.Result(extractor.Extract(email))
			samples = append(samples, classify.EvidenceFromEmail(email, res))
		}

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		oracle := classify.NewClaudeOracle(client, cfg.Anthropic)

		names, err := oracle.DiscoverCategories(ctx, samples)
		if err != nil {
			return eris.Wrap(err, "discover categories")
		}

		for _, name := range names {
			if _, err := st.GetOrCreateCategory(ctx, name); err != nil {
				return eris.Wrapf(err, "seed category %q", name)
			}
			fmt.Println(name)
		}

		zap.L().Info("vocabulary seeded",
			zap.Int("sampled", len(samples)),
			zap.Int("categories", len(names)),
		)
		return nil
	},
}

func init() {
	discoverCmd.Flags().IntVar(&discoverSamples, "samples", 50, "number of recent emails to sample")
	rootCmd.AddCommand(discoverCmd)
}
