package table

import (
	"errors"
	"testing"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
)

func TestToggleSortCycle(t *testing.T) {
	s := NewState()
	s = s.ToggleSort(dataset.ColMake)
	if s.Sort == nil || s.Sort.Direction != Asc {
		t.Fatalf("first click should sort ascending: %+v", s.Sort)
	}
	s = s.ToggleSort(dataset.ColMake)
	if s.Sort == nil || s.Sort.Direction != Desc {
		t.Fatalf("second click should sort descending: %+v", s.Sort)
	}
	s = s.ToggleSort(dataset.ColMake)
	if s.Sort != nil {
		t.Fatalf("third click should clear sort: %+v", s.Sort)
	}

	s = s.ToggleSort(dataset.ColMake).ToggleSort(dataset.ColMake).ToggleSort(dataset.ColCity)
	if s.Sort.Column != dataset.ColCity || s.Sort.Direction != Asc {
		t.Fatalf("switching column should start ascending: %+v", s.Sort)
	}
}

func TestReducersResetPage(t *testing.T) {
	base := NewState().WithPage(4)
	if base.Page != 4 {
		t.Fatalf("WithPage = %d", base.Page)
	}
	ps, err := base.WithPageSize(25)
	if err != nil {
		t.Fatal(err)
	}
	steps := map[string]State{
		"search":       base.WithSearch("tesla"),
		"filter":       base.WithFilter(dataset.ColMake, "TESLA"),
		"clear filter": base.ClearFilter(dataset.ColMake),
		"clear all":    base.ClearFilters(),
		"sort":         base.ToggleSort(dataset.ColMake),
		"page size":    ps,
	}
	for name, s := range steps {
		if s.Page != 1 {
			t.Fatalf("%s: page = %d, want 1", name, s.Page)
		}
	}
	if base.Page != 4 {
		t.Fatalf("reducers must not modify the receiver")
	}
}

func TestStateImmutability(t *testing.T) {
	a := NewState().WithFilter(dataset.ColMake, "TESLA")
	b := a.WithFilter(dataset.ColCity, "Seattle")
	if len(a.Filters) != 1 || len(b.Filters) != 2 {
		t.Fatalf("filters shared between states: %v / %v", a.Filters, b.Filters)
	}
	c := b.WithFilter(dataset.ColMake, "")
	if _, ok := c.Filters[dataset.ColMake]; ok || b.Filters[dataset.ColMake] != "TESLA" {
		t.Fatalf("empty value should clear only in the new state")
	}
}

func TestPageNavigationAndSize(t *testing.T) {
	s := NewState().PrevPage()
	if s.Page != 1 {
		t.Fatalf("PrevPage below 1: %d", s.Page)
	}
	if s = s.NextPage().NextPage(); s.Page != 3 {
		t.Fatalf("NextPage twice = %d", s.Page)
	}
	if _, err := s.WithPageSize(7); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	for _, n := range PageSizes {
		if _, err := s.WithPageSize(n); err != nil {
			t.Fatalf("page size %d rejected: %v", n, err)
		}
	}
}

func TestParseSortMode(t *testing.T) {
	if m, err := ParseSortMode("Lexical"); err != nil || m != SortLexical {
		t.Fatalf("got %v, %v", m, err)
	}
	if m, _ := ParseSortMode(""); m != SortNatural {
		t.Fatalf("default should be natural")
	}
	if _, err := ParseSortMode("random"); err == nil {
		t.Fatalf("expected error")
	}
}
