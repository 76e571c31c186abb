package table

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
)

// DefaultPageSize is the page size a new table starts with.
const DefaultPageSize = 10

// DebounceInterval is how long search input must settle before it is applied.
const DebounceInterval = 100 * time.Millisecond

// PageSizes are the selectable page sizes.
var PageSizes = []int{5, 10, 15, 20, 25, 50}

// ErrInvalidPageSize is returned for a page size outside PageSizes.
var ErrInvalidPageSize = errors.New("invalid page size")

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// SortDirection orders a sorted column.
type SortDirection int

const (
	Asc SortDirection = iota
	Desc
)

func (d SortDirection) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// MarshalText encodes the direction as "asc" or "desc".
func (d SortDirection) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText accepts "asc" or "desc".
func (d *SortDirection) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "asc", "ascending":
		*d = Asc
	case "desc", "descending":
		*d = Desc
	default:
		return fmt.Errorf("invalid sort direction %q", b)
	}
	return nil
}

// SortSpec is the active sort column and direction.
type SortSpec struct {
	Column    dataset.Column `json:"column"`
	Direction SortDirection  `json:"direction"`
}

// State is the query state of one table. It is a value: every reducer
// returns a new State and leaves the receiver untouched. Sort is nil when the
// table shows records in their original order.
type State struct {
	Search   string                    `json:"search"`
	Filters  map[dataset.Column]string `json:"filters,omitempty"`
	Sort     *SortSpec                 `json:"sort,omitempty"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
}

// NewState returns the initial state: no search, filters or sort, page 1 of 10.
func NewState() State {
	return State{Page: 1, PageSize: DefaultPageSize}
}

func (s State) clone() State {
	out := s
	if s.Filters != nil {
		out.Filters = make(map[dataset.Column]string, len(s.Filters))
		for k, v := range s.Filters {
			out.Filters[k] = v
		}
	}
	if s.Sort != nil {
		sp := *s.Sort
		out.Sort = &sp
	}
	return out
}

// WithSearch sets the search term and returns to page 1.
func (s State) WithSearch(term string) State {
	out := s.clone()
	out.Search = term
	out.Page = 1
	return out
}

// WithFilter requires column c to equal value. An empty value clears the filter.
func (s State) WithFilter(c dataset.Column, value string) State {
	if value == "" {
		return s.ClearFilter(c)
	}
	out := s.clone()
	if out.Filters == nil {
		out.Filters = make(map[dataset.Column]string)
	}
	out.Filters[c] = value
	out.Page = 1
	return out
}

// ClearFilter removes the filter on c.
func (s State) ClearFilter(c dataset.Column) State {
	out := s.clone()
	delete(out.Filters, c)
	if len(out.Filters) == 0 {
		out.Filters = nil
	}
	out.Page = 1
	return out
}

// ClearFilters removes every filter.
func (s State) ClearFilters() State {
	out := s.clone()
	out.Filters = nil
	out.Page = 1
	return out
}

// ToggleSort cycles column c through ascending, descending and unsorted.
// Choosing a different column starts it ascending.
func (s State) ToggleSort(c dataset.Column) State {
	out := s.clone()
	switch {
	case out.Sort == nil || out.Sort.Column != c:
		out.Sort = &SortSpec{Column: c, Direction: Asc}
	case out.Sort.Direction == Asc:
		out.Sort = &SortSpec{Column: c, Direction: Desc}
	default:
		out.Sort = nil
	}
	out.Page = 1
	return out
}

// WithSort sets the sort directly; nil clears it.
func (s State) WithSort(spec *SortSpec) State {
	out := s.clone()
	if spec != nil {
		sp := *spec
		out.Sort = &sp
	} else {
		out.Sort = nil
	}
	out.Page = 1
	return out
}

// WithPage moves to page p. The upper bound is enforced when the state is applied.
func (s State) WithPage(p int) State {
	out := s.clone()
	if p < 1 {
		p = 1
	}
	out.Page = p
	return out
}

// NextPage moves forward one page.
func (s State) NextPage() State { return s.WithPage(s.Page + 1) }

// PrevPage moves back one page, stopping at 1.
func (s State) PrevPage() State { return s.WithPage(s.Page - 1) }

// WithPageSize changes the page size and returns to page 1.
func (s State) WithPageSize(n int) (State, error) {
	if !ValidPageSize(n) {
		return s, fmt.Errorf("%w: %d (allowed: %v)", ErrInvalidPageSize, n, PageSizes)
	}
	out := s.clone()
	out.PageSize = n
	out.Page = 1
	return out, nil
}

// queryKey identifies the filtered and sorted view a state selects; page and
// page size do not affect it.
func (s State) queryKey() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(s.Search))
	b.WriteByte(0)
	cols := make([]int, 0, len(s.Filters))
	for c, v := range s.Filters {
		if v != "" {
			cols = append(cols, int(c))
		}
	}
	sort.Ints(cols)
	for _, c := range cols {
		fmt.Fprintf(&b, "%d=%s\x00", c, s.Filters[dataset.Column(c)])
	}
	if s.Sort != nil {
		fmt.Fprintf(&b, "sort=%d:%d", s.Sort.Column, s.Sort.Direction)
	}
	return b.String()
}
