package usecase

import (
	"sort"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/repository"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// AggRule selects how raw values inside one bucket collapse to a single
// observation.
type AggRule string

const (
	AggMax   AggRule = "max"
	AggMin   AggRule = "min"
	AggFirst AggRule = "first"
	AggLast  AggRule = "last"
	AggSum   AggRule = "sum"
)

// DefaultAggRules covers the standard price columns.
func DefaultAggRules() map[string]AggRule {
	return map[string]AggRule{
		"open":   AggFirst,
		"high":   AggMax,
		"low":    AggMin,
		"close":  AggLast,
		"price":  AggLast,
		"volume": AggSum,
	}
}

// Preparer turns irregular source rows into a regularly bucketed series.
// Buckets that received no rows stay absent from the output; they are not
// filled with zeros or missing markers.
type Preparer struct {
	freq     time.Duration
	excluded map[int]bool
	rules    map[string]AggRule
	logger   *logger.Logger
	metrics  repository.Metrics
}

// NewPreparer creates a series preparer. Hours listed in excludedHours
// (0-23, in the bucket's UTC clock) are dropped entirely.
func NewPreparer(freq time.Duration, excludedHours []int, rules map[string]AggRule, log *logger.Logger, metrics repository.Metrics) *Preparer {
	if rules == nil {
		rules = DefaultAggRules()
	}
	excluded := make(map[int]bool, len(excludedHours))
	for _, h := range excludedHours {
		excluded[h] = true
	}
	return &Preparer{
		freq:     freq,
		excluded: excluded,
		rules:    rules,
		logger:   log,
		metrics:  metrics,
	}
}

// Prepare buckets the named column and trims edge runs of zero/missing
// values according to mode. Rows that lack the column are skipped; a column
// present in no row at all is malformed input.
func (p *Preparer) Prepare(records []models.RawRecord, column string, mode models.TrimMode) (models.Series, error) {
	if len(records) == 0 {
		return models.Series{}, &models.MalformedInputError{Reason: "no source rows"}
	}
	rule, ok := p.rules[column]
	if !ok {
		return models.Series{}, &models.MalformedInputError{Column: column, Reason: "no aggregation rule configured"}
	}

	sorted := make([]models.RawRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TS.Before(sorted[j].TS)
	})

	type bucketAgg struct {
		ts    time.Time
		value float64
		count int
	}

	var buckets []bucketAgg
	seen := false
	for _, rec := range sorted {
		v, ok := rec.Field(column)
		if !ok {
			continue
		}
		seen = true

		ts := util.Bucket(rec.TS, p.freq)
		if p.excluded[ts.Hour()] {
			continue
		}

		if len(buckets) == 0 || !buckets[len(buckets)-1].ts.Equal(ts) {
			buckets = append(buckets, bucketAgg{ts: ts, value: v, count: 1})
			continue
		}

		b := &buckets[len(buckets)-1]
		b.count++
		switch rule {
		case AggMax:
			if v > b.value {
				b.value = v
			}
		case AggMin:
			if v < b.value {
				b.value = v
			}
		case AggFirst:
			// keep the earliest row's value
		case AggLast:
			b.value = v
		case AggSum:
			b.value += v
		}
	}

	if !seen {
		return models.Series{}, &models.MalformedInputError{Column: column, Reason: "not present in any source row"}
	}

	points := make([]models.TimePoint, len(buckets))
	for i, b := range buckets {
		points[i] = models.TimePoint{TS: b.ts, Value: b.value}
	}

	series := models.Series{Freq: p.freq, Points: points}.Trim(mode)

	if p.metrics != nil {
		p.metrics.RecordSeriesLength(column, series.Len())
	}
	p.logger.Debug("series prepared",
		logger.String("column", column),
		logger.String("trim", string(mode)),
		logger.Int("buckets", len(buckets)),
		logger.Int("points", series.Len()))

	return series, nil
}
