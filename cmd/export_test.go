package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/zsafwan/pr-contacts/internal/store"
)

func TestExportRows(t *testing.T) {
	st := newTestStore(t)
	seedDirectory(t, st)

	rows, err := exportRows(context.Background(), st, store.ContactFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest contact first.
	var omar []string
	for _, row := range rows {
		if row[1] == "omar@gulfpr.ae" {
			omar = row
		}
	}
	require.NotNil(t, omar)
	assert.Equal(t, "Omar Khalil", omar[0])
	assert.Equal(t, "Gulf PR", omar[3])
	assert.Equal(t, "hospitality (0.90)", omar[7])
	assert.Equal(t, "Jumeirah (2)", omar[8])
}

func TestExportRows_CategoryFilter(t *testing.T) {
	st := newTestStore(t)
	seedDirectory(t, st)

	rows, err := exportRows(context.Background(), st, store.ContactFilter{Category: "hospitality"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "omar@gulfpr.ae", rows[0][1])
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	rows := [][]string{
		{"Jane Doe", "jane@acme.com", "", "Acme PR", "", "", "", "", ""},
	}
	require.NoError(t, writeCSV(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(data))
	all, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, exportHeader, all[0])
	assert.Equal(t, rows[0], all[1])
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.xlsx")
	rows := [][]string{
		{"Jane Doe", "jane@acme.com", "", "Acme PR", "", "", "", "", ""},
	}
	require.NoError(t, writeXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Name", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "jane@acme.com", sheet.Rows[1].Cells[1].Value)
}
