package models

import "time"

// ForecastResult is one decoded prediction for one submitted window.
// Quantile keys keep the exact string form the service returned.
type ForecastResult struct {
	Start        time.Time            // timestamp of the first predicted step
	Freq         time.Duration        // inferred frequency used to space steps
	QuantileKeys []string             // response key order, stable
	Quantiles    map[string][]float64 // key -> predicted values, one per step
	Samples      [][]float64          // optional raw sample paths
	Length       int                  // prediction length, identical across arrays
}

// StepTS returns the timestamp of the i-th predicted step.
func (r ForecastResult) StepTS(i int) time.Time {
	return r.Start.Add(time.Duration(i) * r.Freq)
}

// WindowOutcome reports one rolling window's forecast attempt. Failed windows
// carry their error so a batch surfaces per-window results rather than one
// undifferentiated failure.
type WindowOutcome struct {
	Index  int
	Result *ForecastResult
	Err    error
}

// MergedRow is one row of the merged report table: a timestamp, the ground
// truth value (Missing when the timestamp only appears in a forecast), which
// rolling call produced the forecast values (-1 for truth-only rows), and the
// per-quantile predictions (Missing when the timestamp only appears in truth).
type MergedRow struct {
	TS        time.Time
	Call      int
	Truth     float64
	Quantiles map[string]float64
}

// MergedTable is ground truth outer-joined with the concatenation of all
// forecast results. Duplicate timestamps across rolling calls are kept as
// separate rows; nothing is deduplicated by precedence.
type MergedTable struct {
	QuantileKeys []string
	Rows         []MergedRow
}
