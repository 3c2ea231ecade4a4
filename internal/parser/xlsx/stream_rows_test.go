package xlsx

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"layoffs/internal/record"
)

// workbook renders rows into an in-memory workbook on the given sheet.
func workbook(t *testing.T, sheet string, rows [][]any) io.ReadCloser {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return io.NopCloser(&buf)
}

func collect(t *testing.T, p *Parser, src io.ReadCloser) ([][]string, error) {
	t.Helper()
	out := make(chan []string, 16)
	err := p.Stream(context.Background(), src, record.Columns, out, nil)
	close(out)
	var got [][]string
	for r := range out {
		got = append(got, r)
	}
	return got, err
}

func TestStream_HeaderAndRows(t *testing.T) {
	src := workbook(t, "Sheet1", [][]any{
		{"Company", "Location", "Industry", "Total Laid Off", "Percentage Laid Off", "Date", "Stage", "Country", "Funds Raised Millions"},
		{"Netflix ", "SF", "Crypto Staking", "NULL", "3%", "3/1/2022", "Post-IPO", "United States.", "NULL"},
		{},
		{"Acme", "NYC"},
	})

	rows, err := collect(t, NewParser(Options{HasHeader: true}), src)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Netflix ", rows[0][0])
	assert.Equal(t, "United States.", rows[0][7])
	assert.Equal(t, []string{"Acme", "NYC", "", "", "", "", "", "", ""}, rows[1])
}

func TestStream_NamedSheetSkipRowsAndHeaderMap(t *testing.T) {
	src := workbook(t, "layoffs", [][]any{
		{"Layoffs export"},
		{"Firm", "Industry", "Laid off"},
		{"Bolt", "Transport", 120},
	})
	opt := Options{
		Sheet:     "layoffs",
		HasHeader: true,
		SkipRows:  1,
		HeaderMap: map[string]string{"firm": record.ColCompany, "Laid off": record.ColTotalLaidOff},
	}

	rows, err := collect(t, NewParser(opt), src)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bolt", rows[0][0])
	assert.Equal(t, "Transport", rows[0][2])
	assert.Equal(t, "120", rows[0][3])
}

func TestStream_Errors(t *testing.T) {
	_, err := collect(t, NewParser(Options{HasHeader: true}), io.NopCloser(bytes.NewReader([]byte("not a zip"))))
	assert.Error(t, err)

	_, err = collect(t, NewParser(Options{Sheet: "missing", HasHeader: true}), workbook(t, "Sheet1", [][]any{{"company"}}))
	assert.Error(t, err)

	_, err = collect(t, NewParser(Options{HasHeader: true}), workbook(t, "Sheet1", [][]any{{"nothing", "useful"}}))
	assert.Error(t, err)
}
