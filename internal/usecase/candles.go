package usecase

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/repository"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// CandleService answers API queries for prepared series.
type CandleService struct {
	ticks    repository.TickStore
	preparer *Preparer
	logger   *logger.Logger
}

func NewCandleService(ticks repository.TickStore, preparer *Preparer, log *logger.Logger) *CandleService {
	return &CandleService{ticks: ticks, preparer: preparer, logger: log}
}

// Candles prepares the requested column over the requested range. An empty
// From defaults to 30 days back, an empty To to now.
func (s *CandleService) Candles(ctx context.Context, req *models.CandlesRequest) (*models.CandlesResponse, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return nil, &models.MalformedInputError{Column: "from", Reason: "unparseable time " + req.From}
		}
		from = t
	}
	if req.To != "" {
		t, ok := util.ParseTime(req.To)
		if !ok {
			return nil, &models.MalformedInputError{Column: "to", Reason: "unparseable time " + req.To}
		}
		to = t
	}
	if !from.Before(to) {
		return nil, &models.RangeError{Reason: fmt.Sprintf("from %v is not before to %v", from, to)}
	}

	records, err := s.ticks.RawRecords(ctx, req.Symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load source rows: %w", err)
	}

	series, err := s.preparer.Prepare(records, req.Column, models.TrimMode(req.Trim))
	if err != nil {
		return nil, err
	}

	points := make([]models.CandlePoint, series.Len())
	for i, p := range series.Points {
		v := p.Value
		point := models.CandlePoint{Time: util.FormatStart(p.TS)}
		if !models.IsMissing(v) {
			point.Value = &v
		}
		points[i] = point
	}

	return &models.CandlesResponse{
		Symbol: req.Symbol,
		Column: req.Column,
		Freq:   series.Freq.String(),
		Count:  len(points),
		Points: points,
	}, nil
}
