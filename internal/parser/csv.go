package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Parse reads delimited text permissively: ragged rows are kept as-is and a
// syntax error ends the read with the rows collected so far plus a warning.
// Blank lines between records become empty rows; trailing blank lines are
// ignored.
func (csvParser) Parse(in io.Reader, opt Options) (*Table, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if opt.Delimiter != 0 {
		r.Comma = opt.Delimiter
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		t.Header[i] = strings.TrimSpace(h)
	}

	last := lastLine(r, header)
	blank := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Warnings = append(t.Warnings, fmt.Sprintf("stopped after %d rows: %v", len(t.Rows), err))
			break
		}
		// encoding/csv skips empty lines; put them back as empty records
		if line, _ := r.FieldPos(0); line > last+1 {
			for n := line - last - 1; n > 0; n-- {
				t.Rows = append(t.Rows, []string{})
				blank++
			}
		}
		last = lastLine(r, rec)
		t.Rows = append(t.Rows, rec)
	}
	if blank > 0 {
		t.Warnings = append(t.Warnings, fmt.Sprintf("%d blank lines read as empty rows", blank))
	}
	return t, nil
}

// lastLine is the line the record just read ends on; quoted cells may span lines.
func lastLine(r *csv.Reader, rec []string) int {
	i := len(rec) - 1
	if i < 0 {
		return 0
	}
	line, _ := r.FieldPos(i)
	return line + strings.Count(rec[i], "\n")
}
