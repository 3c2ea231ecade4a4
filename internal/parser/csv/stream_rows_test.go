package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"layoffs/internal/config"
	"layoffs/internal/record"
)

/*
fakeRC is a small helper implementing io.ReadCloser over a byte slice.
It lets tests verify that the parser closes its source.
*/
type fakeRC struct {
	*bytes.Reader
	closed bool
}

func newFakeRC(b []byte) *fakeRC { return &fakeRC{Reader: bytes.NewReader(b)} }
func (f *fakeRC) Close() error   { f.closed = true; return nil }

/*
makeCSV builds a CSV document in-memory with the given header and rows using
encoding/csv so quoting is correct.
*/
func makeCSV(delim rune, header []string, rows [][]string) []byte {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	w.Comma = delim
	if header != nil {
		_ = w.Write(header)
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return b.Bytes()
}

var header = []string{
	"company", "location", "industry", "total_laid_off", "percentage_laid_off",
	"date", "stage", "country", "funds_raised_millions",
}

func stream(t *testing.T, p *Parser, data []byte) ([][]string, []int, *fakeRC, error) {
	t.Helper()
	src := newFakeRC(data)
	out := make(chan []string, 64)
	var bad []int
	err := p.Stream(context.Background(), src, record.Columns, out, func(line int, _ error) {
		bad = append(bad, line)
	})
	close(out)
	var rows [][]string
	for r := range out {
		rows = append(rows, r)
	}
	return rows, bad, src, err
}

func TestStream_BasicAndBOM(t *testing.T) {
	hdr := append([]string(nil), header...)
	hdr[0] = utf8BOM + "Company"
	data := makeCSV(',', hdr, [][]string{
		{"Netflix ", "SF", "Crypto Staking", "NULL", "3%", "3/1/2022", "Post-IPO", "United States.", "NULL"},
		{"Acme", "NYC", "", "", "", "1/4/2023", "", "", ""},
	})

	rows, bad, src, err := stream(t, NewParser(Options{HasHeader: true}), data)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !src.closed {
		t.Fatal("source not closed")
	}
	if len(bad) != 0 || len(rows) != 2 {
		t.Fatalf("rows=%d bad=%v", len(rows), bad)
	}
	if rows[0][0] != "Netflix " {
		t.Fatalf("company = %q, want whitespace preserved", rows[0][0])
	}
	if rows[0][3] != "NULL" || rows[1][2] != "" {
		t.Fatalf("raw cells altered: %q %q", rows[0][3], rows[1][2])
	}
}

func TestStream_ReorderedHeaderWithMapAndDelimiter(t *testing.T) {
	hdr := []string{"Country", "Company", "When", "Industry"}
	data := makeCSV(';', hdr, [][]string{{"Chile", "Ghost", "7/7/2022", "Other"}})

	opt := OptionsFrom(config.Options{
		"comma":      ";",
		"header_map": map[string]any{"when": "date"},
	})
	rows, _, _, err := stream(t, NewParser(opt), data)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	want := []string{"Ghost", "", "Other", "", "", "7/7/2022", "", "Chile", ""}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Fatalf("col %s = %q, want %q", record.Columns[i], rows[0][i], want[i])
		}
	}
}

func TestStream_WidthMismatchIsSoft(t *testing.T) {
	data := []byte("company,location\nA,SF\nB\nC,NYC\n")
	rows, bad, _, err := stream(t, NewParser(Options{HasHeader: true}), data)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(rows) != 2 || len(bad) != 1 || bad[0] != 3 {
		t.Fatalf("rows=%d bad=%v", len(rows), bad)
	}
}

func TestStream_Headerless(t *testing.T) {
	data := makeCSV(',', nil, [][]string{{"A", "SF", "Retail", "1", "", "1/1/2020", "", "US", ""}})
	rows, _, _, err := stream(t, NewParser(Options{}), data)
	if err != nil || len(rows) != 1 || rows[0][2] != "Retail" {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
}

func TestStream_HeaderErrors(t *testing.T) {
	if _, _, _, err := stream(t, NewParser(Options{HasHeader: true}), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, _, _, err := stream(t, NewParser(Options{HasHeader: true}), []byte("a,b\n1,2\n")); err == nil {
		t.Fatal("expected error for unrelated header")
	}
}

func TestStream_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan []string)
	err := NewParser(Options{HasHeader: true}).Stream(ctx, newFakeRC(makeCSV(',', header, [][]string{make([]string, 9)})), record.Columns, out, nil)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestStripHeaderBOM(t *testing.T) {
	got := StripHeaderBOM([]string{utf8BOM + "company", "x"})
	if got[0] != "company" {
		t.Fatalf("got %q", got[0])
	}
	if len(StripHeaderBOM(nil)) != 0 {
		t.Fatal("nil input")
	}
}
