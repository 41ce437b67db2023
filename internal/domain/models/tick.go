package models

import "time"

// Tick is a single trade print from an exchange stream.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"` // unix seconds
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

// RawRecord is one irregular source row: a timestamp plus named numeric
// columns (open/high/low/close/volume for price data). Absent columns are
// absent from the map, which is distinct from a zero value.
type RawRecord struct {
	TS     time.Time
	Fields map[string]float64
}

// Field returns the named column value and whether it is present.
func (r RawRecord) Field(name string) (float64, bool) {
	v, ok := r.Fields[name]
	return v, ok
}
