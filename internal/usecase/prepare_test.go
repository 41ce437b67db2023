package usecase

import (
	"errors"
	"testing"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	return log
}

func rec(ts time.Time, fields map[string]float64) models.RawRecord {
	return models.RawRecord{TS: ts, Fields: fields}
}

func hourlyValues(t *testing.T, s models.Series) []float64 {
	t.Helper()
	return s.Values()
}

func TestPrepareAggregationRules(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []models.RawRecord{
		rec(base.Add(5*time.Minute), map[string]float64{"open": 100, "high": 101, "low": 99, "close": 100.5, "volume": 10}),
		rec(base.Add(20*time.Minute), map[string]float64{"open": 100.5, "high": 103, "low": 98, "close": 102, "volume": 5}),
		rec(base.Add(50*time.Minute), map[string]float64{"open": 102, "high": 102.5, "low": 101, "close": 101.5, "volume": 7}),
	}
	p := NewPreparer(time.Hour, nil, nil, newTestLogger(t), nil)

	cases := []struct {
		column string
		want   float64
	}{
		{"open", 100},    // first
		{"high", 103},    // max
		{"low", 98},      // min
		{"close", 101.5}, // last
		{"volume", 22},   // sum
	}
	for _, tc := range cases {
		s, err := p.Prepare(records, tc.column, models.TrimLeading)
		if err != nil {
			t.Fatalf("Prepare(%s) failed: %v", tc.column, err)
		}
		if s.Len() != 1 || s.Points[0].Value != tc.want {
			t.Fatalf("Prepare(%s) = %v, want [%v]", tc.column, hourlyValues(t, s), tc.want)
		}
		if !s.Points[0].TS.Equal(base) {
			t.Fatalf("Prepare(%s) bucket at %v, want %v", tc.column, s.Points[0].TS, base)
		}
	}
}

func TestPrepareUnsortedInput(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []models.RawRecord{
		rec(base.Add(50*time.Minute), map[string]float64{"close": 3}),
		rec(base.Add(5*time.Minute), map[string]float64{"close": 1}),
		rec(base.Add(20*time.Minute), map[string]float64{"close": 2}),
	}
	p := NewPreparer(time.Hour, nil, nil, newTestLogger(t), nil)

	s, err := p.Prepare(records, "close", models.TrimLeading)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if s.Len() != 1 || s.Points[0].Value != 3 {
		t.Fatalf("last-rule on unsorted input = %v, want [3]", hourlyValues(t, s))
	}
}

func TestPrepareEmptyBucketsStayAbsent(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []models.RawRecord{
		rec(base, map[string]float64{"close": 1}),
		// hours 11 and 12 have no rows
		rec(base.Add(3*time.Hour), map[string]float64{"close": 2}),
	}
	p := NewPreparer(time.Hour, nil, nil, newTestLogger(t), nil)

	s, err := p.Prepare(records, "close", models.TrimLeading)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("got %d points, want 2 (gap preserved, not filled)", s.Len())
	}
	if !s.Points[1].TS.Equal(base.Add(3 * time.Hour)) {
		t.Fatalf("second bucket at %v, want %v", s.Points[1].TS, base.Add(3*time.Hour))
	}
}

func TestPrepareExcludedHours(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var records []models.RawRecord
	for h := 0; h < 6; h++ {
		records = append(records, rec(base.Add(time.Duration(h)*time.Hour), map[string]float64{"close": float64(h + 1)}))
	}
	p := NewPreparer(time.Hour, []int{2, 3}, nil, newTestLogger(t), nil)

	s, err := p.Prepare(records, "close", models.TrimLeading)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	got := hourlyValues(t, s)
	want := []float64{1, 2, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPrepareTrimModes(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	build := func(values []float64) []models.RawRecord {
		records := make([]models.RawRecord, len(values))
		for i, v := range values {
			records[i] = rec(base.Add(time.Duration(i)*time.Hour), map[string]float64{"close": v})
		}
		return records
	}
	p := NewPreparer(time.Hour, nil, nil, newTestLogger(t), nil)

	cases := []struct {
		name   string
		input  []float64
		mode   models.TrimMode
		want   []float64
		wantTS time.Time
	}{
		{
			name:   "interior zeros untouched",
			input:  []float64{1, 2, 0, 0, 3, 4},
			mode:   models.TrimLeading,
			want:   []float64{1, 2, 0, 0, 3, 4},
			wantTS: base,
		},
		{
			name:   "leading run stripped",
			input:  []float64{0, 0, 1, 2, 0, 3},
			mode:   models.TrimLeading,
			want:   []float64{1, 2, 0, 3},
			wantTS: base.Add(2 * time.Hour),
		},
		{
			name:   "leading mode keeps trailing run",
			input:  []float64{0, 1, 2, 0, 0},
			mode:   models.TrimLeading,
			want:   []float64{1, 2, 0, 0},
			wantTS: base.Add(time.Hour),
		},
		{
			name:   "both edges stripped",
			input:  []float64{0, 0, 1, 2, 0, 3, 0, 0},
			mode:   models.TrimLeadingTrailing,
			want:   []float64{1, 2, 0, 3},
			wantTS: base.Add(2 * time.Hour),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := p.Prepare(build(tc.input), "close", tc.mode)
			if err != nil {
				t.Fatalf("Prepare failed: %v", err)
			}
			got := hourlyValues(t, s)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
			if len(got) > 0 && !s.Points[0].TS.Equal(tc.wantTS) {
				t.Fatalf("first point at %v, want %v", s.Points[0].TS, tc.wantTS)
			}
		})
	}
}

func TestPrepareAllZeroTrimsToEmpty(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []models.RawRecord{
		rec(base, map[string]float64{"close": 0}),
		rec(base.Add(time.Hour), map[string]float64{"close": 0}),
	}
	p := NewPreparer(time.Hour, nil, nil, newTestLogger(t), nil)

	s, err := p.Prepare(records, "close", models.TrimLeadingTrailing)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("all-zero series should trim to empty, got %v", hourlyValues(t, s))
	}
}

func TestPrepareMalformedInput(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := NewPreparer(time.Hour, nil, nil, newTestLogger(t), nil)

	var malformed *models.MalformedInputError

	_, err := p.Prepare(nil, "close", models.TrimLeading)
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError for empty input, got %v", err)
	}

	records := []models.RawRecord{rec(base, map[string]float64{"volume": 3})}
	_, err = p.Prepare(records, "close", models.TrimLeading)
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError for absent column, got %v", err)
	}
	if malformed.Column != "close" {
		t.Fatalf("error names column %q, want close", malformed.Column)
	}

	_, err = p.Prepare(records, "spread", models.TrimLeading)
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError for unconfigured column, got %v", err)
	}
}
