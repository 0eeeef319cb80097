package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/zsafwan/pr-contacts/internal/store"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the contact directory",
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

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		formatStats(os.Stdout, stats)
		return nil
	},
}

func formatStats(w io.Writer, stats *store.Stats) {
	fmt.Fprintf(w, "Contacts:         %d\n", stats.Contacts)
	fmt.Fprintf(w, "Categories:       %d\n", stats.Categories)
	fmt.Fprintf(w, "Brands:           %d\n", stats.Brands)
	fmt.Fprintf(w, "Processed emails: %d\n", stats.ProcessedEmails)

	if len(stats.ByCategory) > 0 {
		fmt.Fprintln(w, "\nBy category:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, cc := range stats.ByCategory {
			fmt.Fprintf(tw, "  %s\t%d\n", cc.Name, cc.Contacts)
		}
		tw.Flush()
	}

	if len(stats.ByBrand) > 0 {
		fmt.Fprintln(w, "\nBy brand (mentions):")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, bc := range stats.ByBrand {
			fmt.Fprintf(tw, "  %s\t%d\n", bc.Name, bc.Mentions)
		}
		tw.Flush()
	}

	if len(stats.ByDomain) > 0 {
		fmt.Fprintln(w, "\nTop outlet domains:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, dc := range stats.ByDomain {
			fmt.Fprintf(tw, "  %s\t%d\n", dc.Domain, dc.Contacts)
		}
		tw.Flush()
	}
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print stats as JSON")
	rootCmd.AddCommand(statsCmd)
}
