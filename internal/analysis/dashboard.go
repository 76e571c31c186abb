package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
)

// ErrUnknownSeries is returned by Series for a name it does not know.
var ErrUnknownSeries = errors.New("unknown chart series")

// SeriesNames lists the chart series a Dashboard exposes.
var SeriesNames = []string{"makes", "vehicle-types", "postal-codes", "range", "model-years"}

// Dashboard holds every card and chart value for one record set.
type Dashboard struct {
	Source   string    `json:"source"`
	Token    string    `json:"token"`
	LoadedAt time.Time `json:"loaded_at"`

	TotalVehicles  int     `json:"total_vehicles"`
	AverageRange   float64 `json:"average_range"`
	HasRange       bool    `json:"has_range"`
	AverageMSRP    float64 `json:"average_msrp"`
	HasMSRP        bool    `json:"has_msrp"`
	DistinctCities int     `json:"distinct_cities"`
	DistinctMakes  int     `json:"distinct_makes"`
	TopCity        string  `json:"top_city"`

	Makes          []Bucket       `json:"makes"`
	VehicleTypes   []Bucket       `json:"vehicle_types"`
	PostalCodes    []PostalBucket `json:"postal_codes"`
	RangeHistogram []Bucket       `json:"range_histogram"`
	ModelYears     []Bucket       `json:"model_years"`

	Warnings []string `json:"warnings,omitempty"`
}

// Summarize computes the dashboard for set. A nil or empty set yields zero
// counts and empty series.
func Summarize(set *dataset.RecordSet) *Dashboard {
	recs := set.Records()
	d := &Dashboard{
		Token:          set.Token(),
		TotalVehicles:  Count(recs),
		DistinctCities: Distinct(recs, ByColumn(dataset.ColCity)),
		DistinctMakes:  Distinct(recs, ByColumn(dataset.ColMake)),
		Makes:          TopN(recs, ByColumn(dataset.ColMake), TopMakes),
		VehicleTypes:   Distribution(recs, ByColumn(dataset.ColElectricVehicleType)),
		PostalCodes:    PostalCodes(recs, TopPostalCodes),
		RangeHistogram: Histogram(recs, NumericColumn(dataset.ColElectricRange), BinWidth),
		ModelYears:     YearDistribution(recs, MinModelYear, MaxModelYear),
	}
	if set != nil {
		d.Source = set.Source()
		d.LoadedAt = set.LoadedAt()
		d.Warnings = set.Warnings()
	}
	d.AverageRange, d.HasRange = Mean(recs, NumericColumn(dataset.ColElectricRange))
	d.AverageMSRP, d.HasMSRP = Mean(recs, NumericColumn(dataset.ColMSRP))
	if top := TopN(recs, ByColumn(dataset.ColCity), 1); len(top) == 1 {
		d.TopCity = top[0].Label
	}
	return d
}

// Series returns a copy of one chart series as plain buckets. Postal-code
// buckets drop their model lists; use PostalCodes for those.
func (d *Dashboard) Series(name string) ([]Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "makes", "make":
		return append([]Bucket{}, d.Makes...), nil
	case "vehicle-types", "types", "type":
		return append([]Bucket{}, d.VehicleTypes...), nil
	case "postal-codes", "postal", "zip":
		out := make([]Bucket, len(d.PostalCodes))
		for i, p := range d.PostalCodes {
			out[i] = Bucket{Label: p.Label, Value: p.Value}
		}
		return out, nil
	case "range", "ranges":
		return append([]Bucket{}, d.RangeHistogram...), nil
	case "model-years", "years", "year":
		return append([]Bucket{}, d.ModelYears...), nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownSeries, name, strings.Join(SeriesNames, ", "))
}

// SeriesTitle is the chart heading for a series name.
func SeriesTitle(name string) string {
	switch name {
	case "makes":
		return "Top Manufacturers"
	case "vehicle-types":
		return "Vehicle Types"
	case "postal-codes":
		return "Top Postal Codes"
	case "range":
		return "Electric Range Distribution"
	case "model-years":
		return "Model Years"
	}
	return name
}

// Markdown renders the dashboard as a plain-text report.
func (d *Dashboard) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if d.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", d.Source))
	}
	b.WriteString(fmt.Sprintf("Total vehicles: %d\n", d.TotalVehicles))
	if d.HasRange {
		b.WriteString(fmt.Sprintf("Average range: %.1f mi\n", d.AverageRange))
	} else {
		b.WriteString("Average range: n/a\n")
	}
	if d.HasMSRP {
		b.WriteString(fmt.Sprintf("Average MSRP: $%.0f\n", d.AverageMSRP))
	} else {
		b.WriteString("Average MSRP: n/a\n")
	}
	b.WriteString(fmt.Sprintf("Cities: %d", d.DistinctCities))
	if d.TopCity != "" {
		b.WriteString(fmt.Sprintf(" (most registrations: %s)", d.TopCity))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Manufacturers: %d\n", d.DistinctMakes))

	writeBuckets(&b, "TOP MANUFACTURERS", d.Makes)
	writeBuckets(&b, "VEHICLE TYPES", d.VehicleTypes)

	if len(d.PostalCodes) > 0 {
		b.WriteString("\n[TOP POSTAL CODES]\n")
		for _, p := range d.PostalCodes {
			models := append([]string(nil), p.Models...)
			sort.Strings(models)
			more := ""
			if len(models) > 5 {
				more = fmt.Sprintf(", +%d more", len(models)-5)
				models = models[:5]
			}
			b.WriteString(fmt.Sprintf("- %s: %d (%s%s)\n", p.Label, p.Value, strings.Join(models, ", "), more))
		}
	}

	writeBuckets(&b, "ELECTRIC RANGE (MILES)", d.RangeHistogram)
	writeBuckets(&b, "MODEL YEARS", d.ModelYears)

	if len(d.Warnings) > 0 {
		b.WriteString("\n[WARNINGS]\n")
		for _, w := range d.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func writeBuckets(b *strings.Builder, title string, buckets []Bucket) {
	if len(buckets) == 0 {
		return
	}
	b.WriteString("\n[" + title + "]\n")
	for _, kv := range buckets {
		b.WriteString(fmt.Sprintf("- %s: %d\n", kv.Label, kv.Value))
	}
}

// Memo caches the Dashboard of the last record set it saw, keyed by the set's
// content token. Safe for concurrent use.
type Memo struct {
	mu    sync.Mutex
	token string
	dash  *Dashboard
	hits  int
}

// Get returns the cached Dashboard for set, computing it only when the token
// changed. A hit for a different set with the same content reuses the
// aggregates but reports that set's source, load time and warnings.
func (m *Memo) Get(set *dataset.RecordSet) *Dashboard {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dash != nil && m.token == set.Token() {
		m.hits++
		if set != nil && (m.dash.Source != set.Source() || !m.dash.LoadedAt.Equal(set.LoadedAt())) {
			d := *m.dash
			d.Source = set.Source()
			d.LoadedAt = set.LoadedAt()
			d.Warnings = set.Warnings()
			m.dash = &d
		}
		return m.dash
	}
	m.dash = Summarize(set)
	m.token = set.Token()
	return m.dash
}

// Hits reports how many Get calls were served from cache.
func (m *Memo) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
