package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportPrinterSections(t *testing.T) {
	p := NewPipeline(newTestLogger())
	r, err := p.Run(loadFrame(t, listingsCSV), []string{"São Paulo", "Campinas"})
	require.NoError(t, err)

	var buf bytes.Buffer
	NewReportPrinter(&buf).Print(r)
	out := buf.String()

	assert.Contains(t, out, "Cities   : São Paulo, Campinas")
	assert.Contains(t, out, "Average Rent by City (R$)")
	assert.Contains(t, out, "Accepts pets")
	assert.Contains(t, out, "4000.00")
	assert.NotContains(t, out, "Porto Alegre")
}

func TestReportPrinterEmptySelection(t *testing.T) {
	p := NewPipeline(newTestLogger())
	r, err := p.Run(loadFrame(t, listingsCSV), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	NewReportPrinter(&buf).Print(r)

	assert.Contains(t, buf.String(), "No listings match the current selection")
	assert.NotContains(t, buf.String(), "Pet Policy")
}

func TestReportPrinterNotices(t *testing.T) {
	p := NewPipeline(newTestLogger())
	r, err := p.Run(loadFrame(t, "city,area\nCampinas,50\n"), []string{"Campinas"})
	require.NoError(t, err)

	var buf bytes.Buffer
	NewReportPrinter(&buf).Print(r)

	assert.Contains(t, buf.String(), "Column 'animal' is not present in the dataset.")
	assert.Contains(t, buf.String(), "Column 'rent amount (R$)' is not present in the dataset.")
}
