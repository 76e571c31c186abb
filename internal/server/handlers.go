package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/evdash-cli/internal/analysis"
	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"github.com/KaramelBytes/evdash-cli/internal/export"
	"github.com/KaramelBytes/evdash-cli/internal/render"
	"github.com/KaramelBytes/evdash-cli/internal/table"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// decodeBody reads an optional JSON body into v; an empty body is allowed.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

type statusResponse struct {
	Status    dataset.Status `json:"status"`
	Source    string         `json:"source,omitempty"`
	Records   int            `json:"records"`
	Token     string         `json:"token,omitempty"`
	LoadedAt  *time.Time     `json:"loaded_at,omitempty"`
	Error     string         `json:"error,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Sessions  int            `json:"sessions"`
	StartedAt time.Time      `json:"started_at"`
}

func (s *Server) status() statusResponse {
	st, set, err := s.source.Snapshot()
	resp := statusResponse{
		Status:    st,
		Records:   set.Len(),
		Token:     set.Token(),
		Sessions:  len(s.sessions.IDs()),
		StartedAt: s.startedAt,
	}
	if set != nil {
		resp.Source = set.Source()
		t := set.LoadedAt()
		resp.LoadedAt = &t
		resp.Warnings = set.Warnings()
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, s.status())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	set, ok := s.ready(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.memo.Get(set))
}

func (s *Server) handleSummaryMarkdown(w http.ResponseWriter, r *http.Request) {
	set, ok := s.ready(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, s.memo.Get(set).Markdown())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	set, ok := s.ready(w)
	if !ok {
		return
	}
	d := s.memo.Get(set)
	name := chi.URLParam(r, "name")
	if name == "postal-codes" {
		writeJSON(w, http.StatusOK, d.PostalCodes)
		return
	}
	series, err := d.Series(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	set, ok := s.ready(w)
	if !ok {
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var buf bytes.Buffer
	if err := render.Series(&buf, s.memo.Get(set), chi.URLParam(r, "name"), format); err != nil {
		switch {
		case errors.Is(err, analysis.ErrUnknownSeries), errors.Is(err, render.ErrNoData):
			writeError(w, http.StatusNotFound, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	_, _ = w.Write(buf.Bytes())
}

type columnInfo struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Numeric bool   `json:"numeric"`
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	out := make([]columnInfo, len(dataset.Columns))
	for i, c := range dataset.Columns {
		out[i] = columnInfo{Name: c.Name(), Label: c.Label(), Numeric: c.Numeric()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleColumnValues(w http.ResponseWriter, r *http.Request) {
	set, ok := s.ready(w)
	if !ok {
		return
	}
	col, err := dataset.ParseColumn(chi.URLParam(r, "column"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engineFor(set).FilterValues(col))
}

type tableResponse struct {
	ID            string      `json:"id"`
	State         table.State `json:"state"`
	Typed         string      `json:"typed"`
	SearchPending bool        `json:"search_pending"`
	table.Result
}

func respond(sess *table.Session, res table.Result) tableResponse {
	return tableResponse{
		ID:            sess.ID,
		State:         sess.State(),
		Typed:         sess.Typed(),
		SearchPending: sess.SearchPending(),
		Result:        res,
	}
}

// session looks up the {id} session; it writes the error response itself.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*table.Session, bool) {
	set, ok := s.ready(w)
	if !ok {
		return nil, false
	}
	s.engineFor(set)
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

// update applies fn to the {id} session and writes the resulting page.
func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(table.State) (table.State, error)) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Update(fn)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, table.ErrSessionNotFound) {
			code = http.StatusNotFound
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, respond(sess, res))
}

func (s *Server) handleOpenTable(w http.ResponseWriter, r *http.Request) {
	set, ok := s.ready(w)
	if !ok {
		return
	}
	var req struct {
		PageSize int `json:"page_size"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	size := s.opt.PageSize
	if req.PageSize != 0 {
		size = req.PageSize
	}
	if !table.ValidPageSize(size) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %d", table.ErrInvalidPageSize, size))
		return
	}
	sess := s.sessions.Open(s.engineFor(set))
	res, err := sess.Update(func(st table.State) (table.State, error) { return st.WithPageSize(size) })
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, respond(sess, res))
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, respond(sess, sess.Result()))
}

func (s *Server) handleCloseTable(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Term      string `json:"term"`
		Immediate bool   `json:"immediate"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess.TypeSearch(req.Term)
	code := http.StatusAccepted
	if req.Immediate {
		sess.FlushSearch()
		code = http.StatusOK
	}
	writeJSON(w, code, respond(sess, sess.Result()))
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Column string `json:"column"`
		Value  string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	col, err := dataset.ParseColumn(req.Column)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.update(w, r, func(st table.State) (table.State, error) { return st.WithFilter(col, req.Value), nil })
}

func (s *Server) handleClearFilter(w http.ResponseWriter, r *http.Request) {
	col, err := dataset.ParseColumn(chi.URLParam(r, "column"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.update(w, r, func(st table.State) (table.State, error) { return st.ClearFilter(col), nil })
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(st table.State) (table.State, error) { return st.ClearFilters(), nil })
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Column    string               `json:"column"`
		Direction *table.SortDirection `json:"direction"`
		Clear     bool                 `json:"clear"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Clear {
		s.update(w, r, func(st table.State) (table.State, error) { return st.WithSort(nil), nil })
		return
	}
	col, err := dataset.ParseColumn(req.Column)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.update(w, r, func(st table.State) (table.State, error) {
		if req.Direction != nil {
			return st.WithSort(&table.SortSpec{Column: col, Direction: *req.Direction}), nil
		}
		return st.ToggleSort(col), nil
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page   int    `json:"page"`
		Action string `json:"action"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.update(w, r, func(st table.State) (table.State, error) {
		switch strings.ToLower(req.Action) {
		case "next":
			return st.NextPage(), nil
		case "prev", "previous":
			return st.PrevPage(), nil
		case "first":
			return st.WithPage(1), nil
		case "":
			if req.Page < 1 {
				return st, fmt.Errorf("page must be >= 1")
			}
			return st.WithPage(req.Page), nil
		}
		return st, fmt.Errorf("unknown page action %q", req.Action)
	})
}

func (s *Server) handlePageSize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PageSize int `json:"page_size"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.update(w, r, func(st table.State) (table.State, error) { return st.WithPageSize(req.PageSize) })
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows := sess.Engine().View(sess.State())
	var buf bytes.Buffer
	if err := export.Write(&buf, format, rows); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "vehicles."+string(format)))
	_, _ = w.Write(buf.Bytes())
}
