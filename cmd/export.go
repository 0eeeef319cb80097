package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/store"
)

var (
	exportOutput   string
	exportFormat   string
	exportCompany  string
	exportCategory string
	exportCountry  string
	exportLimit    int
)

var exportHeader = []string{
	"Name", "Email", "Alt Emails", "Company", "Title", "Phone",
	"Country", "Categories", "Brands",
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export contacts to CSV or XLSX",
	Long: `Writes the contact directory to a spreadsheet, one row per contact,
with categories (name and confidence) and brand mentions joined into
single cells. Filters match the serve API's list endpoint.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if exportFormat != "csv" && exportFormat != "xlsx" {
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		rows, err := exportRows(ctx, st, store.ContactFilter{
			Company:  exportCompany,
			Category: exportCategory,
			Country:  exportCountry,
			Limit:    exportLimit,
		})
		if err != nil {
			return err
		}

		switch exportFormat {
		case "csv":
			err = writeCSV(exportOutput, rows)
		case "xlsx":
			err = writeXLSX(exportOutput, rows)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("path", exportOutput),
			zap.String("format", exportFormat),
			zap.Int("contacts", len(rows)),
		)
		return nil
	},
}

// exportRows flattens each contact and its classification links into one
// spreadsheet row.
func exportRows(ctx context.Context, st store.Store, filter store.ContactFilter) ([][]string, error) {
	contacts, err := st.ListContacts(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "list contacts")
	}

	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		// ListContacts skips alternate emails; fetch the full record.
		full, err := st.GetContact(ctx, c.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "get contact %d", c.ID)
		}
		if full != nil {
			c.AltEmails = full.AltEmails
		}

		cats, err := st.ListContactCategories(ctx, c.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "list categories for contact %d", c.ID)
		}
		brands, err := st.ListContactBrands(ctx, c.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "list brands for contact %d", c.ID)
		}

		catCells := make([]string, 0, len(cats))
		for _, cc := range cats {
			catCells = append(catCells, fmt.Sprintf("%s (%.2f)", cc.Category, cc.Confidence))
		}
		brandCells := make([]string, 0, len(brands))
		for _, cb := range brands {
			brandCells = append(brandCells, fmt.Sprintf("%s (%d)", cb.Brand, cb.MentionCount))
		}

		rows = append(rows, []string{
			c.Name,
			c.Email,
			strings.Join(c.AltEmails, "; "),
			c.Company,
			c.Title,
			c.Phone,
			c.Country,
			strings.Join(catCells, "; "),
			strings.Join(brandCells, "; "),
		})
	}
	return rows, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "flush csv")
	}
	return eris.Wrap(f.Close(), "close csv")
}

func writeXLSX(path string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Contacts")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().Value = h
	}
	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().Value = cell
		}
	}

	return eris.Wrap(f.Save(path), "xlsx: save")
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "contacts.csv", "output file path")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportCompany, "company", "", "filter by company substring")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "filter by category name")
	exportCmd.Flags().StringVar(&exportCountry, "country", "", "filter by country code")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max contacts to export (0 = all)")
	rootCmd.AddCommand(exportCmd)
}
