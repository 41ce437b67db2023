package models

// CandlesRequest queries the prepared hourly series for one symbol.
type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Column string `query:"column" json:"column" default:"close" validate:"oneof=open high low close volume"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Trim   string `query:"trim" json:"trim" default:"leading" validate:"oneof=leading leading+trailing"`
}

// CandlePoint is one hourly bucket in an API response.
type CandlePoint struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"` // null when missing
}

// CandlesResponse is the API shape for a prepared series.
type CandlesResponse struct {
	Symbol string        `json:"symbol"`
	Column string        `json:"column"`
	Freq   string        `json:"freq"`
	Count  int           `json:"count"`
	Points []CandlePoint `json:"points"`
}

// ReportRequest fetches a stored forecast report.
type ReportRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

// StatusResponse reports stream health and recent errors.
type StatusResponse struct {
	Environment  string      `json:"environment"`
	StreamUp     bool        `json:"stream_up"`
	RecentErrors interface{} `json:"recent_errors,omitempty"`
}
