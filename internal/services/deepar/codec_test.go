package deepar

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"PriceCast/internal/domain/models"
)

func hourlyWindow(start time.Time, values []float64) models.Window {
	points := make([]models.TimePoint, len(values))
	for i, v := range values {
		points[i] = models.TimePoint{TS: start.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return models.Window{
		Start:  start,
		End:    start.Add(time.Duration(len(values)) * time.Hour),
		Freq:   time.Hour,
		Points: points,
	}
}

func TestEncodeRequestMissingAsNaNLiteral(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	w := hourlyWindow(start, []float64{1.5, models.Missing, 3})

	data, err := EncodeRequest([]models.Window{w}, RequestConfig{
		SampleCount:    100,
		QuantileLevels: []float64{0.5},
	})
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"target":[1.5,"NaN",3]`) {
		t.Fatalf("missing value not encoded as NaN literal: %s", s)
	}
	if strings.Contains(s, "null") {
		t.Fatalf("payload must not contain null: %s", s)
	}
	if !strings.Contains(s, `"start":"2024-03-01 09:00:00"`) {
		t.Fatalf("wrong start format: %s", s)
	}
}

func TestEncodeRequestCategoryHandling(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := hourlyWindow(start, []float64{1, 2})

	data, err := EncodeRequest([]models.Window{w}, RequestConfig{
		SampleCount:    10,
		QuantileLevels: []float64{0.5},
	})
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	if strings.Contains(string(data), `"cat"`) {
		t.Fatalf("cat must be omitted when no category is set: %s", data)
	}

	cat := 7
	w.Category = &cat
	data, err = EncodeRequest([]models.Window{w}, RequestConfig{
		SampleCount:    10,
		QuantileLevels: []float64{0.5},
	})
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	if !strings.Contains(string(data), `"cat":[7]`) {
		t.Fatalf("category not encoded: %s", data)
	}
}

func TestEncodeRequestConfiguration(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := hourlyWindow(start, []float64{1, 2, 3})

	data, err := EncodeRequest([]models.Window{w}, RequestConfig{
		SampleCount:    250,
		QuantileLevels: []float64{0.1, 0.5, 0.9},
	})
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}

	var req struct {
		Configuration struct {
			NumSamples  int      `json:"num_samples"`
			OutputTypes []string `json:"output_types"`
			Quantiles   []string `json:"quantiles"`
		} `json:"configuration"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if req.Configuration.NumSamples != 250 {
		t.Fatalf("num_samples = %d, want 250", req.Configuration.NumSamples)
	}
	if len(req.Configuration.OutputTypes) != 1 || req.Configuration.OutputTypes[0] != "quantiles" {
		t.Fatalf("output_types = %v, want [quantiles]", req.Configuration.OutputTypes)
	}
	want := []string{"0.1", "0.5", "0.9"}
	for i, q := range want {
		if req.Configuration.Quantiles[i] != q {
			t.Fatalf("quantiles = %v, want %v", req.Configuration.Quantiles, want)
		}
	}

	data, err = EncodeRequest([]models.Window{w}, RequestConfig{
		SampleCount:    250,
		QuantileLevels: []float64{0.5},
		IncludeSamples: true,
	})
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	if !strings.Contains(string(data), `"output_types":["quantiles","samples"]`) {
		t.Fatalf("samples output type missing: %s", data)
	}
}

func TestEncodeRequestRejectsBadInput(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := hourlyWindow(start, []float64{1})

	if _, err := EncodeRequest(nil, RequestConfig{SampleCount: 10, QuantileLevels: []float64{0.5}}); err == nil {
		t.Fatal("expected error for empty window list")
	}
	if _, err := EncodeRequest([]models.Window{w}, RequestConfig{SampleCount: 0, QuantileLevels: []float64{0.5}}); err == nil {
		t.Fatal("expected error for zero sample count")
	}
	if _, err := EncodeRequest([]models.Window{w}, RequestConfig{SampleCount: 10, QuantileLevels: []float64{1.5}}); err == nil {
		t.Fatal("expected error for out-of-range quantile")
	}
}

func TestDecodeResponse(t *testing.T) {
	body := `{"predictions":[{"quantiles":{"0.9":[30,31],"0.1":[10,11],"0.5":[20,21]}}]}`
	anchor := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	results, err := DecodeResponse([]byte(body), time.Hour, []time.Time{anchor}, 2, false)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if !r.Start.Equal(anchor) {
		t.Fatalf("start = %v, want %v", r.Start, anchor)
	}
	wantKeys := []string{"0.1", "0.5", "0.9"}
	for i, k := range wantKeys {
		if r.QuantileKeys[i] != k {
			t.Fatalf("keys = %v, want %v", r.QuantileKeys, wantKeys)
		}
	}
	if r.Quantiles["0.5"][1] != 21 {
		t.Fatalf("quantile 0.5 = %v", r.Quantiles["0.5"])
	}
	if r.Length != 2 {
		t.Fatalf("length = %d, want 2", r.Length)
	}
}

func TestDecodeResponseKeepsKeysVerbatim(t *testing.T) {
	body := `{"predictions":[{"quantiles":{"0.50":[20],"0.10":[10]}}]}`
	anchor := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	results, err := DecodeResponse([]byte(body), time.Hour, []time.Time{anchor}, 1, false)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if results[0].QuantileKeys[0] != "0.10" || results[0].QuantileKeys[1] != "0.50" {
		t.Fatalf("keys rewritten: %v", results[0].QuantileKeys)
	}
}

func TestDecodeResponsePredictionCountMismatch(t *testing.T) {
	body := `{"predictions":[{"quantiles":{"0.5":[1]}}]}`
	anchors := []time.Time{time.Now(), time.Now()}

	_, err := DecodeResponse([]byte(body), time.Hour, anchors, 1, false)
	var malformed *models.MalformedResponseError
	if err == nil {
		t.Fatal("expected error for prediction count mismatch")
	}
	if !asMalformed(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %T: %v", err, err)
	}
}

func TestDecodeResponseLengthMismatch(t *testing.T) {
	body := `{"predictions":[{"quantiles":{"0.5":[1,2,3]}}]}`
	anchors := []time.Time{time.Now()}

	_, err := DecodeResponse([]byte(body), time.Hour, anchors, 2, false)
	var malformed *models.MalformedResponseError
	if !asMalformed(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestDecodeResponseSamples(t *testing.T) {
	anchors := []time.Time{time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}

	body := `{"predictions":[{"quantiles":{"0.5":[1,2]},"samples":[[1,2],[3,4]]}]}`
	results, err := DecodeResponse([]byte(body), time.Hour, anchors, 2, true)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if len(results[0].Samples) != 2 {
		t.Fatalf("got %d sample paths, want 2", len(results[0].Samples))
	}

	noSamples := `{"predictions":[{"quantiles":{"0.5":[1,2]}}]}`
	var malformed *models.MalformedResponseError
	_, err = DecodeResponse([]byte(noSamples), time.Hour, anchors, 2, true)
	if !asMalformed(err, &malformed) {
		t.Fatalf("expected MalformedResponseError when samples requested but absent, got %v", err)
	}

	_, err = DecodeResponse([]byte(body), time.Hour, anchors, 2, false)
	if !asMalformed(err, &malformed) {
		t.Fatalf("expected MalformedResponseError when samples present but not requested, got %v", err)
	}
}

func TestEncodeDatasetRecord(t *testing.T) {
	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	w := hourlyWindow(start, []float64{42, models.Missing})

	line, err := EncodeDatasetRecord(w)
	if err != nil {
		t.Fatalf("EncodeDatasetRecord failed: %v", err)
	}
	want := `{"start":"2024-01-15 08:00:00","target":[42,"NaN"]}`
	if string(line) != want {
		t.Fatalf("record = %s, want %s", line, want)
	}
}

func TestTargetValueRoundTrip(t *testing.T) {
	var v targetValue
	if err := json.Unmarshal([]byte(`"NaN"`), &v); err != nil {
		t.Fatalf("unmarshal NaN literal: %v", err)
	}
	if !math.IsNaN(float64(v)) {
		t.Fatalf("got %v, want NaN", float64(v))
	}
	if err := json.Unmarshal([]byte(`2.5`), &v); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if float64(v) != 2.5 {
		t.Fatalf("got %v, want 2.5", float64(v))
	}
}

func asMalformed(err error, target **models.MalformedResponseError) bool {
	if err == nil {
		return false
	}
	m, ok := err.(*models.MalformedResponseError)
	if ok {
		*target = m
	}
	return ok
}
