package deepar

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/util"
)

// RequestConfig controls how inference requests are encoded.
type RequestConfig struct {
	SampleCount    int
	QuantileLevels []float64
	IncludeSamples bool
}

// targetValue is a float64 that serializes missing values as the
// string literal "NaN", which is what the inference endpoint expects
// instead of JSON null.
type targetValue float64

func (v targetValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte(`"NaN"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (v *targetValue) UnmarshalJSON(data []byte) error {
	if string(data) == `"NaN"` {
		*v = targetValue(models.Missing)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = targetValue(f)
	return nil
}

// wireInstance is one series in the request payload. Cat must be
// omitted entirely when the window has no category; an explicit null
// is rejected by the endpoint.
type wireInstance struct {
	Start       string        `json:"start"`
	Target      []targetValue `json:"target"`
	Cat         []int         `json:"cat,omitempty"`
	DynamicFeat [][]float64   `json:"dynamic_feat,omitempty"`
}

type wireConfiguration struct {
	NumSamples  int      `json:"num_samples"`
	OutputTypes []string `json:"output_types"`
	Quantiles   []string `json:"quantiles"`
}

type wireRequest struct {
	Instances     []wireInstance    `json:"instances"`
	Configuration wireConfiguration `json:"configuration"`
}

type wirePrediction struct {
	Quantiles map[string][]targetValue `json:"quantiles"`
	Samples   [][]targetValue          `json:"samples"`
}

type wireResponse struct {
	Predictions []wirePrediction `json:"predictions"`
}

// FormatQuantile canonicalizes a quantile level to its wire string,
// e.g. 0.1 -> "0.1", 0.5 -> "0.5".
func FormatQuantile(q float64) string {
	return strconv.FormatFloat(q, 'g', -1, 64)
}

// EncodeRequest builds the JSON inference payload for the given
// windows. Output types always include quantiles; samples are added
// only when requested.
func EncodeRequest(windows []models.Window, cfg RequestConfig) ([]byte, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("no windows to encode")
	}
	if cfg.SampleCount <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", cfg.SampleCount)
	}
	if len(cfg.QuantileLevels) == 0 {
		return nil, fmt.Errorf("at least one quantile level is required")
	}

	instances := make([]wireInstance, 0, len(windows))
	for i, w := range windows {
		if len(w.Points) == 0 {
			return nil, fmt.Errorf("window %d is empty", i)
		}
		target := make([]targetValue, len(w.Points))
		for j, p := range w.Points {
			target[j] = targetValue(p.Value)
		}
		inst := wireInstance{
			Start:       util.FormatStart(w.Start),
			Target:      target,
			DynamicFeat: w.DynamicFeatures,
		}
		if w.Category != nil {
			inst.Cat = []int{*w.Category}
		}
		instances = append(instances, inst)
	}

	quantiles := make([]string, len(cfg.QuantileLevels))
	for i, q := range cfg.QuantileLevels {
		if q <= 0 || q >= 1 {
			return nil, fmt.Errorf("quantile level out of range (0,1): %v", q)
		}
		quantiles[i] = FormatQuantile(q)
	}

	outputTypes := []string{"quantiles"}
	if cfg.IncludeSamples {
		outputTypes = append(outputTypes, "samples")
	}

	req := wireRequest{
		Instances: instances,
		Configuration: wireConfiguration{
			NumSamples:  cfg.SampleCount,
			OutputTypes: outputTypes,
			Quantiles:   quantiles,
		},
	}
	return json.Marshal(req)
}

// DecodeResponse parses and validates an inference response. The
// anchors give the timestamp of the first predicted step for each
// window, which the endpoint does not echo back. Quantile keys are
// kept exactly as the service returned them.
func DecodeResponse(data []byte, freq time.Duration, anchors []time.Time, predictionLength int, includeSamples bool) ([]models.ForecastResult, error) {
	var resp wireResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &models.MalformedResponseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if len(resp.Predictions) != len(anchors) {
		return nil, &models.MalformedResponseError{
			Reason: fmt.Sprintf("expected %d predictions, got %d", len(anchors), len(resp.Predictions)),
		}
	}

	results := make([]models.ForecastResult, 0, len(resp.Predictions))
	for i, pred := range resp.Predictions {
		if len(pred.Quantiles) == 0 {
			return nil, &models.MalformedResponseError{
				Reason: fmt.Sprintf("prediction %d has no quantiles", i),
			}
		}

		keys := make([]string, 0, len(pred.Quantiles))
		quantiles := make(map[string][]float64, len(pred.Quantiles))
		for key, vals := range pred.Quantiles {
			if len(vals) != predictionLength {
				return nil, &models.MalformedResponseError{
					Reason: fmt.Sprintf("prediction %d quantile %q has %d values, want %d", i, key, len(vals), predictionLength),
				}
			}
			keys = append(keys, key)
			quantiles[key] = toFloats(vals)
		}
		sortQuantileKeys(keys)

		var samples [][]float64
		if includeSamples {
			if len(pred.Samples) == 0 {
				return nil, &models.MalformedResponseError{
					Reason: fmt.Sprintf("prediction %d is missing requested samples", i),
				}
			}
			samples = make([][]float64, len(pred.Samples))
			for j, s := range pred.Samples {
				if len(s) != predictionLength {
					return nil, &models.MalformedResponseError{
						Reason: fmt.Sprintf("prediction %d sample %d has %d values, want %d", i, j, len(s), predictionLength),
					}
				}
				samples[j] = toFloats(s)
			}
		} else if len(pred.Samples) > 0 {
			return nil, &models.MalformedResponseError{
				Reason: fmt.Sprintf("prediction %d contains samples that were not requested", i),
			}
		}

		results = append(results, models.ForecastResult{
			Start:        anchors[i],
			Freq:         freq,
			QuantileKeys: keys,
			Quantiles:    quantiles,
			Samples:      samples,
			Length:       predictionLength,
		})
	}
	return results, nil
}

// datasetRecord is one JSON line of a training/test dataset.
type datasetRecord struct {
	Start  string        `json:"start"`
	Target []targetValue `json:"target"`
	Cat    []int         `json:"cat,omitempty"`
}

// EncodeDatasetRecord serializes one series as a dataset JSON line
// (without trailing newline).
func EncodeDatasetRecord(w models.Window) ([]byte, error) {
	target := make([]targetValue, len(w.Points))
	for i, p := range w.Points {
		target[i] = targetValue(p.Value)
	}
	rec := datasetRecord{
		Start:  util.FormatStart(w.Start),
		Target: target,
	}
	if w.Category != nil {
		rec.Cat = []int{*w.Category}
	}
	return json.Marshal(rec)
}

func toFloats(vals []targetValue) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}

// sortQuantileKeys orders keys numerically where possible so result
// columns come out in a stable order regardless of map iteration.
func sortQuantileKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		fi, erri := strconv.ParseFloat(keys[i], 64)
		fj, errj := strconv.ParseFloat(keys[j], 64)
		if erri == nil && errj == nil {
			return fi < fj
		}
		return keys[i] < keys[j]
	})
}
