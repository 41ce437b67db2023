package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/usecase"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/objstore"
)

type stubTickStore struct {
	records []models.RawRecord
}

func (s *stubTickStore) Init(context.Context) error                       { return nil }
func (s *stubTickStore) Store(context.Context, *models.Tick) error        { return nil }
func (s *stubTickStore) StoreBatch(context.Context, []*models.Tick) error { return nil }
func (s *stubTickStore) Health(context.Context) error                     { return nil }
func (s *stubTickStore) Close() error                                     { return nil }

func (s *stubTickStore) RawRecords(_ context.Context, _ string, from, to time.Time) ([]models.RawRecord, error) {
	var out []models.RawRecord
	for _, r := range s.records {
		if !r.TS.Before(from) && r.TS.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubStream struct{ up bool }

func (s *stubStream) Connect(context.Context) error   { return nil }
func (s *stubStream) Subscribe(context.Context) error { return nil }
func (s *stubStream) Reconnect(context.Context) error { return nil }
func (s *stubStream) Close() error                    { return nil }
func (s *stubStream) IsConnected() bool               { return s.up }
func (s *stubStream) Read(context.Context) (<-chan *models.Tick, <-chan error) {
	return nil, nil
}

func newTestHandler(t *testing.T, store objstore.Store) (*ForecastHandler, *echo.Echo) {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Hour).Add(-48 * time.Hour)
	ticks := &stubTickStore{}
	for h := 0; h < 48; h++ {
		ticks.records = append(ticks.records, models.RawRecord{
			TS:     base.Add(time.Duration(h) * time.Hour),
			Fields: map[string]float64{"close": 100 + float64(h), "volume": 1},
		})
	}

	preparer := usecase.NewPreparer(time.Hour, nil, nil, log, nil)
	candles := usecase.NewCandleService(ticks, preparer, log)

	h := NewForecastHandler(candles, store, &stubStream{up: true}, "test",
		func(symbol string) string { return "reports/" + symbol + ".csv" }, log)

	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func TestCandlesEndpoint(t *testing.T) {
	_, e := newTestHandler(t, objstore.NewMemoryStore())

	req := httptest.NewRequest("GET", "/api/candles?symbol=BTCUSDT&column=close", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Status int `json:"status"`
		Data   struct {
			Symbol string               `json:"symbol"`
			Count  int                  `json:"count"`
			Points []models.CandlePoint `json:"points"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != 200 || body.Data.Symbol != "BTCUSDT" || body.Data.Count != 48 {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestCandlesEndpointRejectsBadColumn(t *testing.T) {
	_, e := newTestHandler(t, objstore.NewMemoryStore())

	req := httptest.NewRequest("GET", "/api/candles?symbol=BTCUSDT&column=bogus", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != 400 {
		t.Fatalf("status field = %d, want 400", body.Status)
	}
}

func TestReportEndpoint(t *testing.T) {
	store := objstore.NewMemoryStore()
	csv := "time,Price,50thPercentile\n2024-01-01 00:00:00,100,101\n"
	if err := store.Put(context.Background(), "reports/BTCUSDT.csv", []byte(csv), true); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	_, e := newTestHandler(t, store)

	req := httptest.NewRequest("GET", "/api/forecast/report?symbol=BTCUSDT", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Body.String() != csv {
		t.Fatalf("body = %q", rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/forecast/report?symbol=UNKNOWN", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != 404 {
		t.Fatalf("status field = %d, want 404", body.Status)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, e := newTestHandler(t, objstore.NewMemoryStore())

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Data models.StatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Data.Environment != "test" || !body.Data.StreamUp {
		t.Fatalf("unexpected status: %+v", body.Data)
	}
}
