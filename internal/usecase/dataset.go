package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/deepar"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/objstore"
)

// DatasetWriter uploads training and test datasets to the object store as
// JSON lines, one series per line.
type DatasetWriter struct {
	store  objstore.Store
	logger *logger.Logger
}

func NewDatasetWriter(store objstore.Store, log *logger.Logger) *DatasetWriter {
	return &DatasetWriter{store: store, logger: log}
}

// Write serializes the windows to path. When overwrite is false and the
// object already exists, the conflict is logged and treated as done: the
// dataset on the store is assumed to be the one we would have written.
func (w *DatasetWriter) Write(ctx context.Context, path string, windows []models.Window, overwrite bool) error {
	if len(windows) == 0 {
		return fmt.Errorf("no windows to write to %s", path)
	}

	var buf bytes.Buffer
	for i, win := range windows {
		line, err := deepar.EncodeDatasetRecord(win)
		if err != nil {
			return fmt.Errorf("encode record %d for %s: %w", i, path, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	err := w.store.Put(ctx, path, buf.Bytes(), overwrite)
	if errors.Is(err, objstore.ErrConflict) {
		w.logger.Warn("dataset already exists, keeping stored copy",
			logger.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("upload dataset %s: %w", path, err)
	}

	w.logger.Info("dataset uploaded",
		logger.String("path", path),
		logger.Int("series", len(windows)),
		logger.Int("bytes", buf.Len()))
	return nil
}

// Peek returns the first line of a stored dataset, useful for sanity
// checking what a training job will actually read.
func (w *DatasetWriter) Peek(ctx context.Context, path string) (string, error) {
	line, err := w.store.GetLine(ctx, path)
	if err != nil {
		return "", fmt.Errorf("peek dataset %s: %w", path, err)
	}
	return string(line), nil
}
