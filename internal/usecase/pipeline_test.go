package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	"PriceCast/pkg/objstore"
)

type noopMetrics struct{}

func (noopMetrics) RecordForecastCall(string)       {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordLatency(string, float64)   {}
func (noopMetrics) RecordSeriesLength(string, int)  {}

type fakeTickStore struct {
	records []models.RawRecord
}

func (f *fakeTickStore) Init(context.Context) error                       { return nil }
func (f *fakeTickStore) Store(context.Context, *models.Tick) error        { return nil }
func (f *fakeTickStore) StoreBatch(context.Context, []*models.Tick) error { return nil }
func (f *fakeTickStore) Health(context.Context) error                     { return nil }
func (f *fakeTickStore) Close() error                                     { return nil }

func (f *fakeTickStore) RawRecords(_ context.Context, _ string, from, to time.Time) ([]models.RawRecord, error) {
	var out []models.RawRecord
	for _, r := range f.records {
		if !r.TS.Before(from) && r.TS.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTrainer struct {
	jobs []service.TrainingJob
}

func (f *fakeTrainer) Train(_ context.Context, job service.TrainingJob) (service.TrainingMetrics, error) {
	f.jobs = append(f.jobs, job)
	return service.TrainingMetrics{"test:RMSE": 2.5}, nil
}

// fakeEndpoint answers every invocation with a constant forecast of the
// requested length and counts lifecycle calls.
type fakeEndpoint struct {
	horizon  int
	deploys  int
	invokes  int
	destroys int
	failOn   int // 1-based invocation index to fail, 0 = never
}

func (f *fakeEndpoint) Deploy(context.Context) error {
	f.deploys++
	return nil
}

func (f *fakeEndpoint) Destroy(context.Context) error {
	f.destroys++
	return nil
}

func (f *fakeEndpoint) Invoke(_ context.Context, request []byte) ([]byte, error) {
	f.invokes++
	if f.failOn != 0 && f.invokes == f.failOn {
		return nil, fmt.Errorf("invocation %d refused", f.invokes)
	}

	var req struct {
		Instances []struct {
			Target []json.RawMessage `json:"target"`
		} `json:"instances"`
		Configuration struct {
			Quantiles []string `json:"quantiles"`
		} `json:"configuration"`
	}
	if err := json.Unmarshal(request, &req); err != nil {
		return nil, err
	}

	quantiles := make(map[string][]float64, len(req.Configuration.Quantiles))
	for qi, q := range req.Configuration.Quantiles {
		vals := make([]float64, f.horizon)
		for i := range vals {
			vals[i] = float64(100*(qi+1) + i)
		}
		quantiles[q] = vals
	}
	resp := map[string]interface{}{
		"predictions": []map[string]interface{}{{"quantiles": quantiles}},
	}
	return json.Marshal(resp)
}

func pipelineFixture(t *testing.T, endpoint *fakeEndpoint) (*Pipeline, *objstore.MemoryStore, *fakeTrainer) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ticks := &fakeTickStore{}
	for h := 0; h < 120; h++ {
		ticks.records = append(ticks.records, models.RawRecord{
			TS:     start.Add(time.Duration(h) * time.Hour),
			Fields: map[string]float64{"close": 100 + float64(h)},
		})
	}

	log := newTestLogger(t)
	store := objstore.NewMemoryStore()
	trainer := &fakeTrainer{}

	cfg := PipelineConfig{
		Symbol:         "BTCUSDT",
		TargetColumn:   "close",
		Freq:           time.Hour,
		Start:          start,
		EndTraining:    start.Add(72 * time.Hour),
		Horizon:        24,
		WindowCount:    2,
		DatasetPrefix:  "datasets",
		ReportPath:     "reports/forecast.csv",
		Overwrite:      true,
		ModelName:      "price-model",
		SampleCount:    100,
		QuantileLevels: []float64{0.1, 0.5, 0.9},
		Hyperparams:    map[string]string{"prediction_length": "24"},
	}

	p := NewPipeline(
		cfg,
		ticks,
		NewPreparer(time.Hour, nil, nil, log, nil),
		NewWindowBuilder(log),
		NewDatasetWriter(store, log),
		trainer,
		endpoint,
		store,
		nil,
		noopMetrics{},
		log,
	)
	return p, store, trainer
}

func TestPipelineRun(t *testing.T) {
	endpoint := &fakeEndpoint{horizon: 24}
	p, store, trainer := pipelineFixture(t, endpoint)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if endpoint.deploys != 1 {
		t.Fatalf("deploys = %d, want 1", endpoint.deploys)
	}
	if endpoint.destroys != 1 {
		t.Fatalf("destroys = %d, want exactly 1", endpoint.destroys)
	}
	if endpoint.invokes != 2 {
		t.Fatalf("invokes = %d, want 2", endpoint.invokes)
	}

	if len(trainer.jobs) != 1 {
		t.Fatalf("trainer called %d times, want 1", len(trainer.jobs))
	}
	job := trainer.jobs[0]
	if job.Channels["train"] != "datasets/train.json" || job.Channels["test"] != "datasets/test.json" {
		t.Fatalf("job channels = %v", job.Channels)
	}
	if report.TrainingMetrics["test:RMSE"] != 2.5 {
		t.Fatalf("training metrics = %v", report.TrainingMetrics)
	}

	if len(report.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(report.Outcomes))
	}
	for _, o := range report.Outcomes {
		if o.Err != nil {
			t.Fatalf("outcome %d failed: %v", o.Index, o.Err)
		}
		if o.Result.Length != 24 {
			t.Fatalf("outcome %d length = %d, want 24", o.Index, o.Result.Length)
		}
	}

	// forecasts anchor directly after their context window
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !report.Outcomes[0].Result.Start.Equal(start.Add(72 * time.Hour)) {
		t.Fatalf("first forecast anchored at %v", report.Outcomes[0].Result.Start)
	}
	if !report.Outcomes[1].Result.Start.Equal(start.Add(96 * time.Hour)) {
		t.Fatalf("second forecast anchored at %v", report.Outcomes[1].Result.Start)
	}

	if exists, _ := store.Exists(context.Background(), "reports/forecast.csv"); !exists {
		t.Fatal("report was not uploaded")
	}
	if exists, _ := store.Exists(context.Background(), "datasets/train.json"); !exists {
		t.Fatal("training dataset was not uploaded")
	}
}

func TestPipelineContinuesPastFailedWindow(t *testing.T) {
	endpoint := &fakeEndpoint{horizon: 24, failOn: 1}
	p, _, _ := pipelineFixture(t, endpoint)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(report.Outcomes))
	}
	if report.Outcomes[0].Err == nil {
		t.Fatal("first window should have failed")
	}
	if report.Outcomes[1].Err != nil {
		t.Fatalf("second window should have succeeded, got %v", report.Outcomes[1].Err)
	}
	if endpoint.destroys != 1 {
		t.Fatalf("destroys = %d, want exactly 1", endpoint.destroys)
	}
}
