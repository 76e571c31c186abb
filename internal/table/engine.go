package table

import (
	"sort"
	"strings"
	"sync"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
)

// Result is one page of a table query.
type Result struct {
	Rows          []*dataset.VehicleRecord `json:"rows"`
	TotalCount    int                      `json:"total_count"`
	FilteredCount int                      `json:"filtered_count"`
	Page          int                      `json:"page"`
	PageSize      int                      `json:"page_size"`
	TotalPages    int                      `json:"total_pages"`
	HasPrev       bool                     `json:"has_prev"`
	HasNext       bool                     `json:"has_next"`
}

// Engine answers table queries over one record set. The search index is
// built once in NewEngine; filter values and the last filtered view are
// memoized. The record set is never modified. Safe for concurrent use.
type Engine struct {
	set   *dataset.RecordSet
	mode  SortMode
	index []string

	mu       sync.Mutex
	values   map[dataset.Column][]string
	viewKey  string
	view     []*dataset.VehicleRecord
	haveView bool
}

// NewEngine indexes set for searching.
func NewEngine(set *dataset.RecordSet, mode SortMode) *Engine {
	recs := set.Records()
	e := &Engine{
		set:    set,
		mode:   mode,
		index:  make([]string, len(recs)),
		values: make(map[dataset.Column][]string),
	}
	for i := range recs {
		e.index[i] = searchText(&recs[i])
	}
	return e
}

// searchText joins every non-empty value of r, lowercased, with single spaces.
func searchText(r *dataset.VehicleRecord) string {
	var b strings.Builder
	add := func(s string) {
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(s))
	}
	for _, c := range dataset.Columns {
		add(r.String(c))
	}
	for _, v := range r.Extra {
		add(v.String())
	}
	return b.String()
}

// Set returns the record set the engine was built for.
func (e *Engine) Set() *dataset.RecordSet { return e.set }

// Mode returns the engine's sort mode.
func (e *Engine) Mode() SortMode { return e.mode }

// SearchIndex returns the indexed text of record i.
func (e *Engine) SearchIndex(i int) string { return e.index[i] }

// View returns every record matching st's search and filters, in sort order.
// The slice is shared with later calls for the same query; do not modify it.
func (e *Engine) View(st State) []*dataset.VehicleRecord {
	key := st.queryKey()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.haveView && e.viewKey == key {
		return e.view
	}

	term := strings.ToLower(st.Search)
	recs := e.set.Records()
	out := make([]*dataset.VehicleRecord, 0, len(recs))
	for i := range recs {
		if term != "" && !strings.Contains(e.index[i], term) {
			continue
		}
		if !matchesFilters(&recs[i], st.Filters) {
			continue
		}
		out = append(out, &recs[i])
	}
	if st.Sort != nil {
		sortRecords(out, *st.Sort, e.mode)
	}
	e.viewKey, e.view, e.haveView = key, out, true
	return out
}

func matchesFilters(r *dataset.VehicleRecord, filters map[dataset.Column]string) bool {
	for c, want := range filters {
		if want == "" {
			continue
		}
		if r.String(c) != want {
			return false
		}
	}
	return true
}

func sortRecords(rows []*dataset.VehicleRecord, spec SortSpec, mode SortMode) {
	cmp := comparator(spec.Column, mode)
	if spec.Direction == Desc {
		sort.SliceStable(rows, func(i, j int) bool { return cmp(rows[j], rows[i]) < 0 })
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return cmp(rows[i], rows[j]) < 0 })
}

// Apply runs search, filters and sort for st and cuts out the requested page.
// The page is clamped to [1, TotalPages]; TotalPages is at least 1.
func (e *Engine) Apply(st State) Result {
	view := e.View(st)
	size := st.PageSize
	if !ValidPageSize(size) {
		size = DefaultPageSize
	}
	pages := (len(view) + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	page := st.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	lo := (page - 1) * size
	hi := lo + size
	if hi > len(view) {
		hi = len(view)
	}
	return Result{
		Rows:          append([]*dataset.VehicleRecord{}, view[lo:hi]...),
		TotalCount:    e.set.Len(),
		FilteredCount: len(view),
		Page:          page,
		PageSize:      size,
		TotalPages:    pages,
		HasPrev:       page > 1,
		HasNext:       page < pages,
	}
}

// FilterValues lists the distinct non-empty values of column c across the
// whole record set, ordered by the engine's comparator.
func (e *Engine) FilterValues(c dataset.Column) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.values[c]; ok {
		return v
	}
	recs := e.set.Records()
	seen := make(map[string]bool)
	var reps []*dataset.VehicleRecord
	for i := range recs {
		s := recs[i].String(c)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		reps = append(reps, &recs[i])
	}
	sortRecords(reps, SortSpec{Column: c, Direction: Asc}, e.mode)
	out := make([]string, len(reps))
	for i, r := range reps {
		out[i] = r.String(c)
	}
	e.values[c] = out
	return out
}

// Apply is a one-shot query over set with natural sorting.
func Apply(set *dataset.RecordSet, st State) Result {
	return NewEngine(set, SortNatural).Apply(st)
}
