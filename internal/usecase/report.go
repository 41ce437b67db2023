package usecase

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"PriceCast/internal/domain/models"
)

// Merge outer-joins ground truth with the concatenation of all successful
// window forecasts. Each predicted step becomes one row tagged with the
// rolling call index that produced it; a timestamp forecast by several
// calls therefore appears several times, each copy carrying the same truth
// value. Truth timestamps no call predicted become rows of their own with
// Call -1 and missing quantile values. Rows come out sorted by timestamp,
// then call index.
func Merge(truth models.Series, outcomes []models.WindowOutcome) *models.MergedTable {
	truthAt := make(map[time.Time]float64, truth.Len())
	for _, p := range truth.Points {
		truthAt[p.TS] = p.Value
	}

	keys := unionQuantileKeys(outcomes)

	var rows []models.MergedRow
	forecasted := make(map[time.Time]bool)
	for _, out := range outcomes {
		if out.Err != nil || out.Result == nil {
			continue
		}
		r := out.Result
		for step := 0; step < r.Length; step++ {
			ts := r.StepTS(step)
			forecasted[ts] = true

			tv, ok := truthAt[ts]
			if !ok {
				tv = models.Missing
			}

			quantiles := make(map[string]float64, len(keys))
			for _, key := range keys {
				vals, ok := r.Quantiles[key]
				if !ok {
					quantiles[key] = models.Missing
					continue
				}
				quantiles[key] = vals[step]
			}

			rows = append(rows, models.MergedRow{
				TS:        ts,
				Call:      out.Index,
				Truth:     tv,
				Quantiles: quantiles,
			})
		}
	}

	for _, p := range truth.Points {
		if forecasted[p.TS] {
			continue
		}
		quantiles := make(map[string]float64, len(keys))
		for _, key := range keys {
			quantiles[key] = models.Missing
		}
		rows = append(rows, models.MergedRow{
			TS:        p.TS,
			Call:      -1,
			Truth:     p.Value,
			Quantiles: quantiles,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].TS.Equal(rows[j].TS) {
			return rows[i].TS.Before(rows[j].TS)
		}
		return rows[i].Call < rows[j].Call
	})

	return &models.MergedTable{QuantileKeys: keys, Rows: rows}
}

// WriteCSV renders the merged table. The truth column is labeled with
// valueLabel (e.g. "Price") and each quantile key becomes a percentile
// header, "0.1" -> "10thPercentile". Missing values render as empty cells.
func WriteCSV(w io.Writer, table *models.MergedTable, valueLabel string) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, 2+len(table.QuantileKeys))
	header = append(header, "time", valueLabel)
	for _, key := range table.QuantileKeys {
		header = append(header, percentileHeader(key))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range table.Rows {
		row[0] = r.TS.UTC().Format("2006-01-02 15:04:05")
		row[1] = formatCell(r.Truth)
		for i, key := range table.QuantileKeys {
			row[2+i] = formatCell(r.Quantiles[key])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// percentileHeader maps a quantile key to its report column name. Keys
// that do not parse as numbers are used as-is.
func percentileHeader(key string) string {
	f, err := strconv.ParseFloat(key, 64)
	if err != nil {
		return key
	}
	// 0.1*100 is 10.000000000000002 in float64; round away the noise.
	p := math.Round(f*100*1e9) / 1e9
	return strconv.FormatFloat(p, 'g', -1, 64) + "thPercentile"
}

func formatCell(v float64) string {
	if models.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// unionQuantileKeys collects every key any successful call returned,
// ordered numerically where possible.
func unionQuantileKeys(outcomes []models.WindowOutcome) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, out := range outcomes {
		if out.Err != nil || out.Result == nil {
			continue
		}
		for _, key := range out.Result.QuantileKeys {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		fi, erri := strconv.ParseFloat(keys[i], 64)
		fj, errj := strconv.ParseFloat(keys[j], 64)
		if erri == nil && errj == nil {
			return fi < fj
		}
		return keys[i] < keys[j]
	})
	return keys
}
