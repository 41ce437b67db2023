package usecase

import (
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/logger"
)

// WindowSpec describes one rolling evaluation layout: a shared start, a
// training cutoff, and Count test windows each extending the previous one
// by Horizon steps.
type WindowSpec struct {
	Start       time.Time
	EndTraining time.Time
	Horizon     int // steps appended per test window
	Count       int // number of rolling test windows
}

func (s WindowSpec) validate(freq time.Duration) error {
	if !s.Start.Before(s.EndTraining) {
		return &models.RangeError{Reason: fmt.Sprintf("start %v is not before training end %v", s.Start, s.EndTraining)}
	}
	if s.Horizon <= 0 {
		return &models.RangeError{Reason: fmt.Sprintf("horizon must be positive, got %d", s.Horizon)}
	}
	if s.Count < 0 {
		return &models.RangeError{Reason: fmt.Sprintf("window count must not be negative, got %d", s.Count)}
	}
	if freq <= 0 {
		return &models.RangeError{Reason: "series frequency must be positive"}
	}
	return nil
}

// horizonSpan is the wall-clock length of one horizon extension.
func (s WindowSpec) horizonSpan(freq time.Duration) time.Duration {
	return time.Duration(s.Horizon) * freq
}

// checkBounds rejects layouts that reach outside the series. A window that
// silently covered less history than requested would hand the model less
// training data than configured.
func checkBounds(series models.Series, spec WindowSpec) error {
	if series.Len() == 0 {
		return &models.RangeError{Reason: "series is empty"}
	}
	if spec.Start.Before(series.First()) {
		return &models.RangeError{
			Reason: fmt.Sprintf("start %v precedes first observation %v", spec.Start, series.First()),
		}
	}
	covered := series.Last().Add(series.Freq)
	if spec.EndTraining.After(covered) {
		return &models.RangeError{
			Reason: fmt.Sprintf("training end %v exceeds data coverage %v", spec.EndTraining, covered),
		}
	}
	return nil
}

// WindowBuilder cuts training and rolling test windows out of a prepared
// series. Every returned window owns its points; mutating one window never
// affects another or the source series.
type WindowBuilder struct {
	logger *logger.Logger
}

func NewWindowBuilder(log *logger.Logger) *WindowBuilder {
	return &WindowBuilder{logger: log}
}

// Training returns the [Start, EndTraining) window.
func (b *WindowBuilder) Training(series models.Series, spec WindowSpec) (models.Window, error) {
	if err := spec.validate(series.Freq); err != nil {
		return models.Window{}, err
	}
	if err := checkBounds(series, spec); err != nil {
		return models.Window{}, err
	}

	points := series.Slice(spec.Start, spec.EndTraining)
	if len(points) == 0 {
		return models.Window{}, &models.RangeError{
			Reason: fmt.Sprintf("no data in training range [%v, %v)", spec.Start, spec.EndTraining),
		}
	}

	return models.Window{
		Start:  spec.Start,
		End:    spec.EndTraining,
		Freq:   series.Freq,
		Points: points,
	}, nil
}

// Test returns Count windows where the k-th (1-based) spans
// [Start, EndTraining + k*Horizon). Each is a strict prefix of the next.
func (b *WindowBuilder) Test(series models.Series, spec WindowSpec) ([]models.Window, error) {
	if err := spec.validate(series.Freq); err != nil {
		return nil, err
	}
	if err := checkBounds(series, spec); err != nil {
		return nil, err
	}

	span := spec.horizonSpan(series.Freq)
	finalEnd := spec.EndTraining.Add(time.Duration(spec.Count) * span)
	if spec.Count > 0 {
		covered := series.Last().Add(series.Freq)
		if finalEnd.After(covered) {
			return nil, &models.RangeError{
				Reason: fmt.Sprintf("final test window ends at %v but data covers only through %v", finalEnd, covered),
			}
		}
	}

	windows := make([]models.Window, 0, spec.Count)
	for k := 1; k <= spec.Count; k++ {
		end := spec.EndTraining.Add(time.Duration(k) * span)
		windows = append(windows, models.Window{
			Start:  spec.Start,
			End:    end,
			Freq:   series.Freq,
			Points: series.Slice(spec.Start, end),
		})
	}

	b.logger.Debug("test windows built",
		logger.Int("count", len(windows)),
		logger.Time("start", spec.Start),
		logger.Time("final_end", finalEnd))

	return windows, nil
}
