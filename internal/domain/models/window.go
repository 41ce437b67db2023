package models

import "time"

// Window is a half-open [Start, End) slice of a series, the unit submitted to
// the forecasting service. Category and DynamicFeatures are optional per the
// wire contract; when DynamicFeatures are present each feature row must cover
// the window length plus the forecast horizon.
type Window struct {
	Start           time.Time
	End             time.Time
	Freq            time.Duration
	Points          []TimePoint
	Category        *int
	DynamicFeatures [][]float64
}

func (w Window) Len() int {
	return len(w.Points)
}

// Values returns a copy of the window's target values.
func (w Window) Values() []float64 {
	out := make([]float64, len(w.Points))
	for i, p := range w.Points {
		out[i] = p.Value
	}
	return out
}

// LastTS returns the timestamp of the last point, zero if empty.
func (w Window) LastTS() time.Time {
	if len(w.Points) == 0 {
		return time.Time{}
	}
	return w.Points[len(w.Points)-1].TS
}

// FirstPredictionTS is one frequency tick past the last input timestamp; it
// anchors decoded forecasts because the wire format carries no absolute
// output timestamps.
func (w Window) FirstPredictionTS() time.Time {
	return w.LastTS().Add(w.Freq)
}
