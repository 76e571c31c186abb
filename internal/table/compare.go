package table

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortMode selects how column values are compared.
type SortMode int

const (
	// SortNatural compares numeric columns as numbers and text columns with
	// locale collation. Nulls sort first ascending.
	SortNatural SortMode = iota
	// SortLexical compares the string form of every column with locale
	// collation, so 100 sorts before 20.
	SortLexical
)

func (m SortMode) String() string {
	if m == SortLexical {
		return "lexical"
	}
	return "natural"
}

// ParseSortMode accepts "natural" or "lexical".
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "natural":
		return SortNatural, nil
	case "lexical":
		return SortLexical, nil
	}
	return SortNatural, fmt.Errorf("invalid sort mode %q (want natural or lexical)", s)
}

// comparator returns a three-way compare for column c. Collators keep
// internal buffers, so each comparator gets its own and must not be shared
// across goroutines.
func comparator(c dataset.Column, mode SortMode) func(a, b *dataset.VehicleRecord) int {
	col := collate.New(language.English)
	if mode == SortLexical || !c.Numeric() {
		return func(a, b *dataset.VehicleRecord) int {
			as, bs := a.String(c), b.String(c)
			if mode == SortNatural {
				// empty first
				switch {
				case as == "" && bs == "":
					return 0
				case as == "":
					return -1
				case bs == "":
					return 1
				}
			}
			return col.CompareString(as, bs)
		}
	}
	return func(a, b *dataset.VehicleRecord) int {
		return compareValues(col, a.Field(c), b.Field(c))
	}
}

// compareValues orders null < number < text; numbers numerically, text by collation.
func compareValues(col *collate.Collator, a, b dataset.Value) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	switch a.Kind {
	case dataset.KindNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case dataset.KindText:
		return col.CompareString(a.Text, b.Text)
	}
	return 0
}
