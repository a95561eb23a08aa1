package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"flipcheck/internal/pricing"
	"flipcheck/internal/storage"
)

// Export renders a query's price history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	query := pricing.NormalizeQuery(opts.Query)
	if len(query) < pricing.MinQueryLength {
		return errors.New("--query is required")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-a.Config.Maintenance.HistoryRetention)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	points, err := store.ListPriceHistory(ctx, query, from)
	if err != nil {
		return err
	}
	points = clipHistory(points, to)
	if len(points) == 0 {
		a.Logger.Info().Str("query", query).Msg("no history found for export window")
		return nil
	}

	downsampled := downsampleHistory(points, opts.MaxPoints)
	a.Logger.Info().
		Str("query", query).
		Int("total", len(points)).
		Int("exported", len(downsampled)).
		Msg("exporting price history")

	if opts.CSVPath != "" {
		if err := writeHistoryCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeHistoryPNG(opts.PNGPath, query, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func clipHistory(points []storage.PriceHistoryPoint, to time.Time) []storage.PriceHistoryPoint {
	result := points[:0]
	for _, point := range points {
		if point.RecordedAt.After(to) {
			continue
		}
		result = append(result, point)
	}
	return result
}

func downsampleHistory(points []storage.PriceHistoryPoint, max int) []storage.PriceHistoryPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]storage.PriceHistoryPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeHistoryCSV(path string, points []storage.PriceHistoryPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"recorded_at", "source", "sample_count", "low", "median", "avg", "high"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.RecordedAt.Format(time.RFC3339),
			point.Source,
			strconv.Itoa(point.SampleCount),
			point.Low.String(),
			point.Median.String(),
			point.Avg.String(),
			point.High.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeHistoryPNG(path, query string, points []storage.PriceHistoryPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	low := make([]float64, len(points))
	median := make([]float64, len(points))
	high := make([]float64, len(points))

	for i, point := range points {
		x[i] = point.RecordedAt
		low[i] = point.Low.InexactFloat64()
		median[i] = point.Median.InexactFloat64()
		high[i] = point.High.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  query,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Low",
				XValues: x,
				YValues: low,
			},
			chart.TimeSeries{
				Name:    "Median",
				XValues: x,
				YValues: median,
			},
			chart.TimeSeries{
				Name:    "High",
				XValues: x,
				YValues: high,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
