// Package render draws dashboard chart series as PNG or SVG images.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/evdash-cli/internal/analysis"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned for a series with nothing to draw.
var ErrNoData = errors.New("no data to render")

// Format is an image encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts "png" or "svg".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	}
	return "", fmt.Errorf("unsupported image format %q (want png or svg)", s)
}

// ContentType is the MIME type for f.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

const (
	width  = 1024
	height = 512
)

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorOrange,
	chart.ColorRed,
	chart.ColorYellow,
	chart.ColorCyan,
	chart.ColorAlternateGray,
}

func values(buckets []analysis.Bucket) ([]chart.Value, float64) {
	out := make([]chart.Value, 0, len(buckets))
	var maxV float64
	for i, b := range buckets {
		v := float64(b.Value)
		if v > maxV {
			maxV = v
		}
		col := palette[i%len(palette)]
		out = append(out, chart.Value{
			Label: b.Label,
			Value: v,
			Style: chart.Style{FillColor: col, StrokeColor: col},
		})
	}
	return out, maxV
}

// BarChart draws buckets as vertical bars.
func BarChart(w io.Writer, title string, buckets []analysis.Bucket, f Format) error {
	if len(buckets) == 0 {
		return ErrNoData
	}
	bars, maxV := values(buckets)
	if maxV <= 0 {
		return ErrNoData
	}
	barWidth := (width - 120) / len(bars)
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 8 {
		barWidth = 8
	}
	bc := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.Style{TextRotationDegrees: 30},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxV * 1.1},
		},
		Bars: bars,
	}
	if err := bc.Render(f.provider(), w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// PieChart draws buckets as pie slices.
func PieChart(w io.Writer, title string, buckets []analysis.Bucket, f Format) error {
	vals, maxV := values(buckets)
	if len(vals) == 0 || maxV <= 0 {
		return ErrNoData
	}
	pc := chart.PieChart{
		Title:  title,
		Width:  height,
		Height: height,
		Values: vals,
	}
	if err := pc.Render(f.provider(), w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// Series draws a named dashboard series with the chart type the dashboard
// uses for it: a pie for vehicle types, bars for everything else.
func Series(w io.Writer, d *analysis.Dashboard, name string, f Format) error {
	buckets, err := d.Series(name)
	if err != nil {
		return err
	}
	title := analysis.SeriesTitle(name)
	if name == "vehicle-types" {
		return PieChart(w, title, buckets, f)
	}
	return BarChart(w, title, buckets, f)
}
