package models

import (
	"math"
	"time"
)

// Missing is the in-memory marker for a missing observation. It is distinct
// from zero: an hour with no trades is missing, an hour that traded at zero
// volume is zero.
var Missing = math.NaN()

// IsMissing reports whether v is the missing marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// TimePoint is one observation of a regularly spaced series.
type TimePoint struct {
	TS    time.Time
	Value float64
}

// TrimMode selects which ends of a series get their zero/missing runs stripped.
type TrimMode string

const (
	TrimLeading         TrimMode = "leading"
	TrimLeadingTrailing TrimMode = "leading+trailing"
)

// Series is an ordered sequence of TimePoints with strictly increasing
// timestamps at a fixed nominal frequency. Buckets that had no source rows
// are simply absent, so gaps between consecutive timestamps are legal.
type Series struct {
	Freq   time.Duration
	Points []TimePoint
}

func (s Series) Len() int {
	return len(s.Points)
}

// First returns the first timestamp, zero if empty.
func (s Series) First() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].TS
}

// Last returns the last timestamp, zero if empty.
func (s Series) Last() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].TS
}

// Values returns a copy of the value column.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Clone returns an independent copy of the series.
func (s Series) Clone() Series {
	pts := make([]TimePoint, len(s.Points))
	copy(pts, s.Points)
	return Series{Freq: s.Freq, Points: pts}
}

// Slice returns an independent copy of the points with start <= TS < end.
func (s Series) Slice(start, end time.Time) []TimePoint {
	out := make([]TimePoint, 0, len(s.Points))
	for _, p := range s.Points {
		if p.TS.Before(start) {
			continue
		}
		if !p.TS.Before(end) {
			break
		}
		out = append(out, p)
	}
	return out
}

// Trim strips the leading (and for TrimLeadingTrailing also the trailing) run
// of zero-or-missing values. Interior zeros and gaps are preserved untouched.
// An all-zero/missing series trims to empty.
func (s Series) Trim(mode TrimMode) Series {
	lo := 0
	for lo < len(s.Points) && trimWorthy(s.Points[lo].Value) {
		lo++
	}
	hi := len(s.Points)
	if mode == TrimLeadingTrailing {
		for hi > lo && trimWorthy(s.Points[hi-1].Value) {
			hi--
		}
	}
	pts := make([]TimePoint, hi-lo)
	copy(pts, s.Points[lo:hi])
	return Series{Freq: s.Freq, Points: pts}
}

func trimWorthy(v float64) bool {
	return v == 0 || IsMissing(v)
}
