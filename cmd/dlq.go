package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/classify"
	"github.com/zsafwan/pr-contacts/internal/pipeline"
	"github.com/zsafwan/pr-contacts/internal/resilience"
	anthropicpkg "github.com/zsafwan/pr-contacts/pkg/anthropic"
)

var (
	dlqLimit     int
	dlqErrorType string
	dlqRetry     bool
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect or retry dead-lettered emails",
	Long: `Lists emails that failed processing and are parked in the dead
letter queue. With --retry, entries that are due (past their backoff and
under their retry cap) are pushed back through the extraction pipeline;
entries that succeed are removed, entries that fail again stay parked
with their retry counter advanced.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		entries, err := st.DequeueDLQ(ctx, resilience.DLQFilter{
			ErrorType: dlqErrorType,
			Limit:     dlqLimit,
		})
		if err != nil {
			return eris.Wrap(err, "dequeue dlq")
		}

		if !dlqRetry {
			total, err := st.CountDLQ(ctx)
			if err != nil {
				return eris.Wrap(err, "count dlq")
			}
			if total == 0 {
				fmt.Fprintln(os.Stderr, "Dead letter queue is empty.")
				return nil
			}
			formatDLQ(os.Stdout, entries)
			fmt.Printf("\n%d entries due for retry, %d parked in total\n", len(entries), total)
			return nil
		}

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No entries are due for retry.")
			return nil
		}

		var oracle classify.Oracle
		if !cfg.Extraction.SkipClassify {
			if cfg.Anthropic.Key == "" {
				return eris.New("anthropic.key is required to retry with classification")
			}
			client := anthropicpkg.NewClient(cfg.Anthropic.Key)
			oracle = classify.NewClaudeOracle(client, cfg.Anthropic).
				WithConcurrency(cfg.Extraction.MaxConcurrency)
		}

		p := pipeline.New(cfg.Extraction, st, nil, oracle)
		report, err := p.Retry(ctx, entries)
		if err != nil {
			return eris.Wrap(err, "retry dlq")
		}

		zap.L().Info("dlq retry complete",
			zap.Int("entries", len(entries)),
			zap.Int("processed", report.Processed),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
			zap.Int("deferred", report.Deferred),
		)
		return nil
	},
}

func formatDLQ(w io.Writer, entries []resilience.DLQEntry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL ID\tSTAGE\tTYPE\tRETRIES\tNEXT RETRY\tERROR")
	for _, e := range entries {
		errMsg := e.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			e.Email.ID, e.FailedStage, e.ErrorType,
			e.RetryCount, e.MaxRetries,
			e.NextRetryAt.Format(time.RFC3339), errMsg)
	}
	tw.Flush()
}

func init() {
	dlqCmd.Flags().IntVar(&dlqLimit, "limit", 100, "max entries to list or retry")
	dlqCmd.Flags().StringVar(&dlqErrorType, "error-type", "", "filter by error type (transient or permanent)")
	dlqCmd.Flags().BoolVar(&dlqRetry, "retry", false, "reprocess due entries through the pipeline")
	rootCmd.AddCommand(dlqCmd)
}
