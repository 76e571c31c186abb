package dataset

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/evdash-cli/internal/parser"
	"github.com/zeebo/xxh3"
)

// RecordSet is the immutable in-memory dataset for a session. Nothing in this
// module mutates a record after NewRecordSet returns; callers must treat the
// slices it hands out as read-only.
type RecordSet struct {
	records  []VehicleRecord
	header   []string
	extra    []string
	token    string
	source   string
	loadedAt time.Time
	warnings []string
}

// NewRecordSet converts header and rows into typed records. Every row yields
// exactly one record: short rows are padded with nulls, cells past the header
// are dropped with a warning, and unparseable numbers stay as text.
func NewRecordSet(header []string, rows [][]string, source string) *RecordSet {
	s := &RecordSet{
		header:   append([]string(nil), header...),
		source:   source,
		loadedAt: time.Now(),
	}

	cols := make([]Column, len(header))
	extraIdx := make([]int, len(header))
	seen := make(map[Column]bool)
	for i, h := range header {
		extraIdx[i] = -1
		if c, ok := ResolveHeader(h); ok && !seen[c] {
			cols[i] = c
			seen[c] = true
			continue
		}
		cols[i] = -1
		extraIdx[i] = len(s.extra)
		s.extra = append(s.extra, h)
	}
	if len(header) > 0 {
		var missing []string
		for _, c := range Columns {
			if !seen[c] {
				missing = append(missing, c.Name())
			}
		}
		if len(missing) > 0 {
			s.warnings = append(s.warnings, fmt.Sprintf("missing columns: %s", strings.Join(missing, ", ")))
		}
	}

	h := xxh3.New()
	for _, f := range header {
		writeToken(h, f)
	}

	s.records = make([]VehicleRecord, len(rows))
	long := 0
	for ri, row := range rows {
		rec := &s.records[ri]
		if len(s.extra) > 0 {
			rec.Extra = make([]Value, len(s.extra))
		}
		if len(row) > len(header) {
			long++
		}
		for i := range header {
			raw := ""
			if i < len(row) {
				raw = row[i]
			}
			writeToken(h, raw)
			if cols[i] >= 0 {
				rec.set(cols[i], raw)
			} else {
				rec.Extra[extraIdx[i]] = ParseValue(raw)
			}
		}
	}
	if long > 0 {
		s.warnings = append(s.warnings, fmt.Sprintf("%d rows had more cells than the header; extra cells ignored", long))
	}
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], h.Sum64())
	s.token = fmt.Sprintf("%x", sum)
	return s
}

func writeToken(h *xxh3.Hasher, s string) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
	_, _ = h.Write(n[:])
	_, _ = h.WriteString(s)
}

// ParseCSV is the Record Parser entry point for raw CSV text with a header row.
func ParseCSV(text string) (*RecordSet, error) {
	t, err := parser.Parse("inline.csv", strings.NewReader(text), parser.Options{})
	if err != nil {
		return nil, err
	}
	return fromTable(t, "inline"), nil
}

func fromTable(t *parser.Table, source string) *RecordSet {
	s := NewRecordSet(t.Header, t.Rows, source)
	s.warnings = append(append([]string(nil), t.Warnings...), s.warnings...)
	return s
}

// Len returns the record count.
func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns the records in input order. The slice is shared; do not modify it.
func (s *RecordSet) Records() []VehicleRecord {
	if s == nil {
		return nil
	}
	return s.records
}

// At returns a pointer to the i-th record.
func (s *RecordSet) At(i int) *VehicleRecord { return &s.records[i] }

// Header returns the header row as read.
func (s *RecordSet) Header() []string { return s.header }

// ExtraColumns names the header cells that did not match a known column.
func (s *RecordSet) ExtraColumns() []string { return s.extra }

// Token identifies the content of the set; equal inputs produce equal tokens.
func (s *RecordSet) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

// Source is the path or URL the set was loaded from.
func (s *RecordSet) Source() string { return s.source }

// LoadedAt is when the set was built.
func (s *RecordSet) LoadedAt() time.Time { return s.loadedAt }

// Warnings lists non-fatal anomalies found while parsing.
func (s *RecordSet) Warnings() []string { return s.warnings }
