package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
)

const serverCSV = `VIN,City,PostalCode,ModelYear,Make,Model,ElectricVehicleType,ElectricRange,MSRP
5YJ3E1EA7KF000001,Seattle,98101,2019,TESLA,MODEL 3,Battery Electric Vehicle (BEV),220,0
1N4AZ0CP5DC000002,Tacoma,98402,2013,NISSAN,LEAF,Battery Electric Vehicle (BEV),75,
KNDCC3LG1L0000003,Seattle,98101,2020,KIA,NIRO,Plug-in Hybrid Electric Vehicle (PHEV),26,
WBY8P6C05L0000004,Bellevue,98004,2020,BMW,I3,Battery Electric Vehicle (BEV),153,
5YJYGDEE1L0000005,Tacoma,98402,2021,TESLA,MODEL Y,Battery Electric Vehicle (BEV),0,
`

func quietLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestServer(t *testing.T, fail *atomic.Bool) (*Server, *httptest.Server) {
	t.Helper()
	src := dataset.NewSource(func(ctx context.Context) (*dataset.RecordSet, error) {
		if fail != nil && fail.Load() {
			return nil, errors.New("upstream unavailable")
		}
		return dataset.ParseCSV(serverCSV)
	})
	s := New(src, Options{Logger: quietLogger()})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

type tablePayload struct {
	ID            string `json:"id"`
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
	TotalPages    int    `json:"total_pages"`
	FilteredCount int    `json:"filtered_count"`
	TotalCount    int    `json:"total_count"`
	HasNext       bool   `json:"has_next"`
	Typed         string `json:"typed"`
	Rows          []struct {
		Make string `json:"Make"`
		VIN  string `json:"VIN"`
	} `json:"rows"`
	State struct {
		Search string `json:"search"`
	} `json:"state"`
}

func decodeTable(t *testing.T, b []byte) tablePayload {
	t.Helper()
	var p tablePayload
	if err := json.Unmarshal(b, &p); err != nil {
		t.Fatalf("decode table: %v (%s)", err, b)
	}
	return p
}

func TestHealthAndUnavailable(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("health: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, http.MethodGet, ts.URL+"/api/summary", nil)
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), `"idle"`) {
		t.Fatalf("expected 503 before load: %d %s", resp.StatusCode, body)
	}
}

func TestReloadFailureThenRecovery(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	_, ts := newTestServer(t, &fail)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/reload", nil)
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(string(body), "upstream unavailable") {
		t.Fatalf("reload failure: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, http.MethodGet, ts.URL+"/api/summary", nil)
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), `"failed"`) {
		t.Fatalf("expected failed state: %d %s", resp.StatusCode, body)
	}

	fail.Store(false)
	if resp, body = do(t, http.MethodPost, ts.URL+"/api/reload", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("reload: %d %s", resp.StatusCode, body)
	}
	var st statusResponse
	_, body = do(t, http.MethodGet, ts.URL+"/api/status", nil)
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	if st.Records != 5 || st.Token == "" {
		t.Fatalf("status: %s", body)
	}
}

func TestSummaryAndCharts(t *testing.T) {
	s, ts := newTestServer(t, nil)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, body := do(t, http.MethodGet, ts.URL+"/api/summary", nil)
	var d struct {
		TotalVehicles int    `json:"total_vehicles"`
		TopCity       string `json:"top_city"`
	}
	if err := json.Unmarshal(body, &d); err != nil || d.TotalVehicles != 5 {
		t.Fatalf("summary: %v %s", err, body)
	}

	resp, body := do(t, http.MethodGet, ts.URL+"/api/summary.md", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "[TOP MANUFACTURERS]") {
		t.Fatalf("markdown: %d %s", resp.StatusCode, body)
	}

	_, body = do(t, http.MethodGet, ts.URL+"/api/charts/makes", nil)
	if !strings.HasPrefix(string(body), `[{"label":"TESLA","value":2}`) {
		t.Fatalf("makes: %s", body)
	}
	_, body = do(t, http.MethodGet, ts.URL+"/api/charts/postal-codes", nil)
	if !strings.Contains(string(body), `"models":["TESLA MODEL 3","KIA NIRO"]`) {
		t.Fatalf("postal codes: %s", body)
	}
	if resp, _ = do(t, http.MethodGet, ts.URL+"/api/charts/colors", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown chart: %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/api/charts/range/image?format=svg", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" || !strings.Contains(string(body), "<svg") {
		t.Fatalf("chart image: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	_, body = do(t, http.MethodGet, ts.URL+"/api/columns/make/values", nil)
	if string(bytes.TrimSpace(body)) != `["BMW","KIA","NISSAN","TESLA"]` {
		t.Fatalf("values: %s", body)
	}
	if resp, _ = do(t, http.MethodGet, ts.URL+"/api/columns/colour/values", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown column: %d", resp.StatusCode)
	}
}

func TestTableSessionLifecycle(t *testing.T) {
	s, ts := newTestServer(t, nil)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, body := do(t, http.MethodPost, ts.URL+"/api/tables", map[string]int{"page_size": 5})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open: %d %s", resp.StatusCode, body)
	}
	p := decodeTable(t, body)
	if p.ID == "" || p.PageSize != 5 || p.TotalCount != 5 || len(p.Rows) != 5 {
		t.Fatalf("open payload: %s", body)
	}
	base := ts.URL + "/api/tables/" + p.ID

	_, body = do(t, http.MethodPost, base+"/filters", map[string]string{"column": "Make", "value": "TESLA"})
	if p = decodeTable(t, body); p.FilteredCount != 2 {
		t.Fatalf("filter: %s", body)
	}

	_, body = do(t, http.MethodPost, base+"/sort", map[string]string{"column": "Range"})
	if p = decodeTable(t, body); p.Rows[0].VIN != "5YJYGDEE1L0000005" {
		t.Fatalf("sort asc: %s", body)
	}
	_, body = do(t, http.MethodPost, base+"/sort", map[string]string{"column": "Range"})
	if p = decodeTable(t, body); p.Rows[0].VIN != "5YJ3E1EA7KF000001" {
		t.Fatalf("sort desc: %s", body)
	}

	if resp, _ = do(t, http.MethodPost, base+"/page-size", map[string]int{"page_size": 7}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid page size: %d", resp.StatusCode)
	}

	_, body = do(t, http.MethodDelete, base+"/filters/make", nil)
	if p = decodeTable(t, body); p.FilteredCount != 5 {
		t.Fatalf("clear filter: %s", body)
	}

	resp, body = do(t, http.MethodPost, base+"/search", map[string]any{"term": "Nissan", "immediate": true})
	if p = decodeTable(t, body); resp.StatusCode != http.StatusOK || p.FilteredCount != 1 || p.State.Search != "Nissan" {
		t.Fatalf("search: %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodPost, base+"/search", map[string]any{"term": "tacoma"})
	if p = decodeTable(t, body); resp.StatusCode != http.StatusAccepted || p.Typed != "tacoma" {
		t.Fatalf("debounced search: %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, base+"/export?format=csv", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: %d %s", resp.StatusCode, body)
	}
	if _, err := csv.NewReader(bytes.NewReader(body)).ReadAll(); err != nil {
		t.Fatalf("export is not csv: %v", err)
	}

	if resp, _ = do(t, http.MethodDelete, base, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close: %d", resp.StatusCode)
	}
	if resp, _ = do(t, http.MethodGet, base, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("closed session: %d", resp.StatusCode)
	}
}

func TestPaging(t *testing.T) {
	s, ts := newTestServer(t, nil)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, body := do(t, http.MethodPost, ts.URL+"/api/tables", map[string]int{"page_size": 5})
	id := decodeTable(t, body).ID
	_, body = do(t, http.MethodPost, ts.URL+"/api/tables/"+id+"/page", map[string]string{"action": "next"})
	if p := decodeTable(t, body); p.Page != 1 || p.TotalPages != 1 || p.HasNext {
		t.Fatalf("next past the end should clamp: %s", body)
	}
	if resp, _ := do(t, http.MethodPost, ts.URL+"/api/tables/"+id+"/page", map[string]string{"action": "sideways"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad action: %d", resp.StatusCode)
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	src := dataset.NewSource(func(ctx context.Context) (*dataset.RecordSet, error) {
		return dataset.ParseCSV(serverCSV)
	})
	h := New(src, Options{Logger: &lg}).Handler()
	for _, path := range []string{"/health", "/api/tables/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 request lines, got %q", buf.String())
	}
	var entry struct {
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
		Msg    string `json:"message"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry.Method != "GET" || entry.Path != "/health" || entry.Status != 200 || entry.Msg != "request" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !strings.Contains(lines[1], `"status":503`) {
		t.Fatalf("expected 503 for idle source, got %s", lines[1])
	}
}

func TestUnknownRoute(t *testing.T) {
	_, ts := newTestServer(t, nil)
	if resp, _ := do(t, http.MethodGet, ts.URL+"/api/nope", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown route: %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPut, ts.URL+"/api/summary", nil); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method: %d", resp.StatusCode)
	}
}
