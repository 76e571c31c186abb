package analysis

import (
	"math"
	"sort"
	"strconv"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
)

const (
	// BinWidth is the range histogram bucket width in miles.
	BinWidth = 50
	// TopMakes is how many manufacturers the make chart shows.
	TopMakes = 5
	// TopPostalCodes is how many postal codes the postal chart shows.
	TopPostalCodes = 10
	// Model years plotted by the year chart.
	MinModelYear = 2000
	MaxModelYear = 2024
)

// Bucket is one {label, value} pair fed to a chart.
type Bucket struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// PostalBucket is a postal-code count plus the distinct "Make Model" strings
// seen there, in first-seen order.
type PostalBucket struct {
	Label  string   `json:"label"`
	Value  int      `json:"value"`
	Models []string `json:"models"`
}

// KeyFunc extracts a grouping key. An empty key excludes the record.
type KeyFunc func(r *dataset.VehicleRecord) string

// ValueFunc extracts a number. ok=false excludes the record.
type ValueFunc func(r *dataset.VehicleRecord) (float64, bool)

// ByColumn groups by the displayed value of c.
func ByColumn(c dataset.Column) KeyFunc {
	return func(r *dataset.VehicleRecord) string { return r.String(c) }
}

// NumericColumn reads c as a number; nulls and text are skipped.
func NumericColumn(c dataset.Column) ValueFunc {
	return func(r *dataset.VehicleRecord) (float64, bool) {
		f, ok := r.Field(c).Float()
		if !ok || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
}

// counter keeps group counts along with the order keys were first seen.
type counter struct {
	index map[string]int
	out   []Bucket
}

func newCounter() *counter { return &counter{index: make(map[string]int)} }

func (c *counter) add(k string) int {
	i, ok := c.index[k]
	if !ok {
		i = len(c.out)
		c.index[k] = i
		c.out = append(c.out, Bucket{Label: k})
	}
	c.out[i].Value++
	return i
}

// ranked sorts descending by count; ties keep first-seen order.
func (c *counter) ranked() []Bucket {
	sort.SliceStable(c.out, func(i, j int) bool { return c.out[i].Value > c.out[j].Value })
	return c.out
}

// Distribution counts records per key, sorted by count descending with ties
// in first-seen order. Records with an empty key are left out.
func Distribution(records []dataset.VehicleRecord, key KeyFunc) []Bucket {
	c := newCounter()
	for i := range records {
		if k := key(&records[i]); k != "" {
			c.add(k)
		}
	}
	return c.ranked()
}

// TopN is Distribution truncated to n buckets.
func TopN(records []dataset.VehicleRecord, key KeyFunc, n int) []Bucket {
	out := Distribution(records, key)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// PostalCodes ranks postal codes by registrations and keeps the top n.
func PostalCodes(records []dataset.VehicleRecord, n int) []PostalBucket {
	c := newCounter()
	var models [][]string
	var seen []map[string]bool
	for i := range records {
		r := &records[i]
		if r.PostalCode == "" {
			continue
		}
		idx := c.add(r.PostalCode)
		if idx == len(models) {
			models = append(models, nil)
			seen = append(seen, make(map[string]bool))
		}
		if mm := r.MakeModel(); !seen[idx][mm] {
			seen[idx][mm] = true
			models[idx] = append(models[idx], mm)
		}
	}
	order := make([]int, len(c.out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return c.out[order[i]].Value > c.out[order[j]].Value })
	if n >= 0 && len(order) > n {
		order = order[:n]
	}
	out := make([]PostalBucket, len(order))
	for i, idx := range order {
		out[i] = PostalBucket{Label: c.out[idx].Label, Value: c.out[idx].Value, Models: models[idx]}
	}
	return out
}

// Histogram bins values by floor(v/width) and labels each bin "low-high".
// Bins are ordered by their numeric lower bound.
func Histogram(records []dataset.VehicleRecord, value ValueFunc, width float64) []Bucket {
	if width <= 0 {
		width = BinWidth
	}
	counts := make(map[float64]int)
	for i := range records {
		v, ok := value(&records[i])
		if !ok {
			continue
		}
		counts[math.Floor(v/width)*width]++
	}
	lows := make([]float64, 0, len(counts))
	for low := range counts {
		lows = append(lows, low)
	}
	sort.Float64s(lows)
	out := make([]Bucket, len(lows))
	for i, low := range lows {
		out[i] = Bucket{Label: formatNum(low) + "-" + formatNum(low+width), Value: counts[low]}
	}
	return out
}

// YearDistribution counts model years within [from, to], ascending by year.
// Years with no registrations are omitted.
func YearDistribution(records []dataset.VehicleRecord, from, to int) []Bucket {
	counts := make(map[int]int)
	for i := range records {
		f, ok := records[i].ModelYear.Float()
		if !ok {
			continue
		}
		y := int(f)
		if float64(y) != f || y < from || y > to {
			continue
		}
		counts[y]++
	}
	var out []Bucket
	for y := from; y <= to; y++ {
		if n := counts[y]; n > 0 {
			out = append(out, Bucket{Label: strconv.Itoa(y), Value: n})
		}
	}
	return out
}

// Mean averages value across all records; a record without a number counts
// as 0. ok is false only when there are no records.
func Mean(records []dataset.VehicleRecord, value ValueFunc) (float64, bool) {
	if len(records) == 0 {
		return 0, false
	}
	var sum float64
	for i := range records {
		if v, ok := value(&records[i]); ok {
			sum += v
		}
	}
	return sum / float64(len(records)), true
}

// Distinct counts the non-empty keys.
func Distinct(records []dataset.VehicleRecord, key KeyFunc) int {
	seen := make(map[string]struct{})
	for i := range records {
		if k := key(&records[i]); k != "" {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}

// Count is the total number of records.
func Count(records []dataset.VehicleRecord) int { return len(records) }

func formatNum(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
