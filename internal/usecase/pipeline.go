package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/deepar"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/objstore"
)

// PipelineConfig is the full parameter set for one rolling forecast run.
type PipelineConfig struct {
	Symbol       string
	TargetColumn string
	Freq         time.Duration
	Start        time.Time
	EndTraining  time.Time
	Horizon      int
	WindowCount  int

	DatasetPrefix string
	ReportPath    string
	Overwrite     bool

	ModelName      string
	SampleCount    int
	QuantileLevels []float64
	IncludeSamples bool
	Hyperparams    map[string]string
}

// RunReport is what one pipeline run produced.
type RunReport struct {
	TrainingMetrics service.TrainingMetrics
	Outcomes        []models.WindowOutcome
	Table           *models.MergedTable
	ReportPath      string
}

// Pipeline runs the whole rolling evaluation: prepare series, cut windows,
// upload datasets, train, deploy, forecast each window, merge, report.
type Pipeline struct {
	cfg       PipelineConfig
	ticks     repository.TickStore
	preparer  *Preparer
	builder   *WindowBuilder
	datasets  *DatasetWriter
	trainer   service.Trainer
	endpoint  service.Endpoint
	store     objstore.Store
	publisher repository.Publisher
	metrics   repository.Metrics
	logger    *logger.Logger
}

func NewPipeline(
	cfg PipelineConfig,
	ticks repository.TickStore,
	preparer *Preparer,
	builder *WindowBuilder,
	datasets *DatasetWriter,
	trainer service.Trainer,
	endpoint service.Endpoint,
	store objstore.Store,
	publisher repository.Publisher,
	metrics repository.Metrics,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		ticks:     ticks,
		preparer:  preparer,
		builder:   builder,
		datasets:  datasets,
		trainer:   trainer,
		endpoint:  endpoint,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    log,
	}
}

// Run executes the pipeline. Individual window forecasts may fail without
// aborting the run; their errors land in the returned outcomes. The
// endpoint is torn down before Run returns, success or not.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	started := time.Now()
	spec := WindowSpec{
		Start:       p.cfg.Start,
		EndTraining: p.cfg.EndTraining,
		Horizon:     p.cfg.Horizon,
		Count:       p.cfg.WindowCount,
	}

	trainingSeries, truthSeries, err := p.prepareSeries(ctx, spec)
	if err != nil {
		return nil, err
	}

	trainingWindow, testWindows, err := p.buildWindows(trainingSeries, spec)
	if err != nil {
		return nil, err
	}

	trainPath, testPath := p.datasetPaths()
	if err := p.datasets.Write(ctx, trainPath, []models.Window{trainingWindow}, p.cfg.Overwrite); err != nil {
		return nil, err
	}
	if err := p.datasets.Write(ctx, testPath, testWindows, p.cfg.Overwrite); err != nil {
		return nil, err
	}

	trainMetrics, err := p.train(ctx, trainPath, testPath)
	if err != nil {
		return nil, err
	}

	if err := p.endpoint.Deploy(ctx); err != nil {
		return nil, fmt.Errorf("deploy endpoint: %w", err)
	}
	defer func() {
		// Destroy is idempotent; a failure here must not mask the result.
		if derr := p.endpoint.Destroy(context.WithoutCancel(ctx)); derr != nil {
			p.logger.Error("endpoint teardown failed", logger.Error(derr))
		}
	}()

	outcomes := p.forecastWindows(ctx, truthSeries, testWindows, spec)

	finalEnd := spec.EndTraining.Add(time.Duration(spec.Count) * spec.horizonSpan(truthSeries.Freq))
	evalTruth := models.Series{Freq: truthSeries.Freq, Points: truthSeries.Slice(spec.Start, finalEnd)}
	table := Merge(evalTruth, outcomes)

	if err := p.writeReport(ctx, table); err != nil {
		return nil, err
	}
	if p.publisher != nil {
		if err := p.publisher.PublishReport(ctx, p.cfg.Symbol, table); err != nil {
			p.logger.Error("publish report failed", logger.Error(err))
		}
	}

	p.metrics.RecordLatency("pipeline_run", time.Since(started).Seconds())
	p.logger.Info("pipeline run finished",
		logger.String("symbol", p.cfg.Symbol),
		logger.Int("windows", len(outcomes)),
		logger.Int("failed", countFailed(outcomes)),
		logger.Duration("elapsed", time.Since(started)))

	return &RunReport{
		TrainingMetrics: trainMetrics,
		Outcomes:        outcomes,
		Table:           table,
		ReportPath:      p.cfg.ReportPath,
	}, nil
}

// prepareSeries builds the two cleanings of the target column: training
// data keeps trailing quiet periods (the model should learn them), while
// the prediction/truth series strips both edges so inference contexts
// never end in a dead stretch.
func (p *Pipeline) prepareSeries(ctx context.Context, spec WindowSpec) (models.Series, models.Series, error) {
	finalEnd := spec.EndTraining.Add(time.Duration(spec.Count) * spec.horizonSpan(p.cfg.Freq))
	records, err := p.ticks.RawRecords(ctx, p.cfg.Symbol, spec.Start, finalEnd)
	if err != nil {
		return models.Series{}, models.Series{}, fmt.Errorf("load source rows: %w", err)
	}

	training, err := p.preparer.Prepare(records, p.cfg.TargetColumn, models.TrimLeading)
	if err != nil {
		return models.Series{}, models.Series{}, err
	}
	truth, err := p.preparer.Prepare(records, p.cfg.TargetColumn, models.TrimLeadingTrailing)
	if err != nil {
		return models.Series{}, models.Series{}, err
	}
	return training, truth, nil
}

func (p *Pipeline) buildWindows(series models.Series, spec WindowSpec) (models.Window, []models.Window, error) {
	training, err := p.builder.Training(series, spec)
	if err != nil {
		return models.Window{}, nil, err
	}
	tests, err := p.builder.Test(series, spec)
	if err != nil {
		return models.Window{}, nil, err
	}
	return training, tests, nil
}

func (p *Pipeline) datasetPaths() (string, string) {
	prefix := strings.TrimSuffix(p.cfg.DatasetPrefix, "/")
	return prefix + "/train.json", prefix + "/test.json"
}

func (p *Pipeline) train(ctx context.Context, trainPath, testPath string) (service.TrainingMetrics, error) {
	job := service.TrainingJob{
		Name: p.cfg.ModelName,
		Channels: map[string]string{
			"train": trainPath,
			"test":  testPath,
		},
		Hyperparameters: p.cfg.Hyperparams,
	}

	metrics, err := p.trainer.Train(ctx, job)
	if err != nil {
		p.metrics.RecordError("training")
		return nil, fmt.Errorf("train model %q: %w", p.cfg.ModelName, err)
	}
	for name, value := range metrics {
		p.logger.Info("training metric",
			logger.String("metric", name),
			logger.Float64("value", value))
	}
	return metrics, nil
}

// forecastWindows invokes the endpoint once per test window. The inference
// context for window k is the prediction-cleaned series up to the window
// end minus one horizon, so the predicted steps line up with the window's
// final horizon.
func (p *Pipeline) forecastWindows(ctx context.Context, truth models.Series, testWindows []models.Window, spec WindowSpec) []models.WindowOutcome {
	outcomes := make([]models.WindowOutcome, 0, len(testWindows))
	span := spec.horizonSpan(truth.Freq)

	for k, win := range testWindows {
		result, err := p.forecastOne(ctx, truth, win.End.Add(-span), spec)
		if err != nil {
			p.metrics.RecordForecastCall("error")
			p.metrics.RecordError("forecast")
			p.logger.Error("window forecast failed",
				logger.Int("window", k),
				logger.Error(err))
			outcomes = append(outcomes, models.WindowOutcome{Index: k, Err: err})
			continue
		}
		p.metrics.RecordForecastCall("ok")
		outcomes = append(outcomes, models.WindowOutcome{Index: k, Result: result})
	}
	return outcomes
}

func (p *Pipeline) forecastOne(ctx context.Context, truth models.Series, contextEnd time.Time, spec WindowSpec) (*models.ForecastResult, error) {
	points := truth.Slice(spec.Start, contextEnd)
	if len(points) == 0 {
		return nil, &models.RangeError{
			Reason: fmt.Sprintf("no prediction context in [%v, %v)", spec.Start, contextEnd),
		}
	}
	contextWindow := models.Window{
		Start:  spec.Start,
		End:    contextEnd,
		Freq:   truth.Freq,
		Points: points,
	}

	request, err := deepar.EncodeRequest([]models.Window{contextWindow}, deepar.RequestConfig{
		SampleCount:    p.cfg.SampleCount,
		QuantileLevels: p.cfg.QuantileLevels,
		IncludeSamples: p.cfg.IncludeSamples,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	raw, err := p.endpoint.Invoke(ctx, request)
	if err != nil {
		return nil, err
	}

	anchors := []time.Time{contextWindow.FirstPredictionTS()}
	results, err := deepar.DecodeResponse(raw, truth.Freq, anchors, spec.Horizon, p.cfg.IncludeSamples)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

func (p *Pipeline) writeReport(ctx context.Context, table *models.MergedTable) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table, valueLabel(p.cfg.TargetColumn)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	err := p.store.Put(ctx, p.cfg.ReportPath, buf.Bytes(), p.cfg.Overwrite)
	if errors.Is(err, objstore.ErrConflict) {
		p.logger.Warn("report already exists, keeping stored copy",
			logger.String("path", p.cfg.ReportPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("upload report %s: %w", p.cfg.ReportPath, err)
	}

	p.logger.Info("report uploaded",
		logger.String("path", p.cfg.ReportPath),
		logger.Int("rows", len(table.Rows)))
	return nil
}

func valueLabel(column string) string {
	if column == "" {
		return "Value"
	}
	return strings.ToUpper(column[:1]) + column[1:]
}

func countFailed(outcomes []models.WindowOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
