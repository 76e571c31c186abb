package parser_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/KaramelBytes/evdash-cli/internal/parser"
)

func TestParseCSVRaggedRowsKept(t *testing.T) {
	content := "\ufeffVIN, Make ,Model\n" +
		"5YJ3E1EB4L,TESLA,MODEL 3\n" +
		"1N4AZ0CP5D,NISSAN\n" +
		"WBY8P6C58K,BMW,I3,extra\n"
	tbl, err := parser.Parse("ev.csv", strings.NewReader(content), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := strings.Join(tbl.Header, "|"); got != "VIN|Make|Model" {
		t.Fatalf("header not normalized: %q", got)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	if len(tbl.Rows[1]) != 2 || len(tbl.Rows[2]) != 4 {
		t.Fatalf("ragged rows should be passed through: %v", tbl.Rows)
	}
	if len(tbl.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", tbl.Warnings)
	}
}

func TestParseTSVByExtension(t *testing.T) {
	content := "City\tState\nSeattle\tWA\n"
	tbl, err := parser.Parse("ev.tsv", strings.NewReader(content), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tbl.Header) != 2 || tbl.Rows[0][1] != "WA" {
		t.Fatalf("unexpected table: %+v", tbl)
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	tbl, err := parser.Parse("ev.csv", strings.NewReader(""), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tbl.Header) != 0 || len(tbl.Rows) != 0 {
		t.Fatalf("expected empty table, got %+v", tbl)
	}
}

func TestParseCSVReadErrorKeepsPartialRows(t *testing.T) {
	content := "Make,Model\nTESLA,MODEL S\n"
	in := io.MultiReader(strings.NewReader(content), iotest.ErrReader(errors.New("connection reset")))
	tbl, err := parser.Parse("ev.csv", in, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 row before the read error, got %d", len(tbl.Rows))
	}
	if len(tbl.Warnings) != 1 || !strings.Contains(tbl.Warnings[0], "stopped after 1 rows") {
		t.Fatalf("expected a partial-read warning, got %v", tbl.Warnings)
	}
}

func TestParseCSVUnterminatedQuoteIsLenient(t *testing.T) {
	content := "Make,Model\nNISSAN,\"LEAF\n"
	tbl, err := parser.Parse("ev.csv", strings.NewReader(content), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tbl.Rows) != 1 || tbl.Rows[0][0] != "NISSAN" {
		t.Fatalf("unexpected rows: %v", tbl.Rows)
	}
}

func TestParseCSVBlankLinesKeptAsEmptyRows(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		rows     int
		blankRow int
		warnings int
	}{
		{"single column", "Make\nTESLA\n\nNISSAN\n", 3, 1, 1},
		{"two columns", "Make,Model\nTESLA,MODEL 3\n\n\nKIA,NIRO\n", 4, 1, 1},
		{"quoted cell spans lines", "Make,Model\n\"A\nB\",X\n\nC,D\n", 3, 1, 1},
		{"before first record", "Make\n\nTESLA\n", 2, 0, 1},
		{"trailing blank lines", "Make\nTESLA\n\n\n", 1, -1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl, err := parser.Parse("ev.csv", strings.NewReader(tc.content), parser.Options{})
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(tbl.Rows) != tc.rows {
				t.Fatalf("expected %d rows, got %d: %q", tc.rows, len(tbl.Rows), tbl.Rows)
			}
			if tc.blankRow >= 0 && len(tbl.Rows[tc.blankRow]) != 0 {
				t.Fatalf("row %d should be empty, got %q", tc.blankRow, tbl.Rows[tc.blankRow])
			}
			if len(tbl.Warnings) != tc.warnings {
				t.Fatalf("expected %d warnings, got %v", tc.warnings, tbl.Warnings)
			}
		})
	}
}
