package deepar

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"PriceCast/internal/domain/service"
	"PriceCast/pkg/logger"
)

// Job status values reported by the training service.
const (
	statusInProgress = "InProgress"
	statusCompleted  = "Completed"
	statusFailed     = "Failed"
)

// Trainer submits training jobs to the forecasting service and polls
// until they finish.
type Trainer struct {
	client       *ServiceClient
	pollInterval time.Duration
	logger       *logger.Logger
}

// NewTrainer creates a training job client.
func NewTrainer(client *ServiceClient, pollInterval time.Duration, log *logger.Logger) *Trainer {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Trainer{client: client, pollInterval: pollInterval, logger: log}
}

type trainingJobRequest struct {
	Name            string            `json:"name"`
	Channels        map[string]string `json:"channels"`
	Hyperparameters map[string]string `json:"hyperparameters"`
}

type trainingJobStatus struct {
	Name          string             `json:"name"`
	Status        string             `json:"status"`
	FailureReason string             `json:"failure_reason,omitempty"`
	FinalMetrics  map[string]float64 `json:"final_metrics,omitempty"`
}

// Train submits the job and blocks until it completes or fails. On
// success it returns the metrics the service computed; a job with no
// test channel yields an empty metric set.
func (t *Trainer) Train(ctx context.Context, job service.TrainingJob) (service.TrainingMetrics, error) {
	if job.Name == "" {
		return nil, fmt.Errorf("training job name is required")
	}
	if len(job.Channels) == 0 {
		return nil, fmt.Errorf("training job %q has no data channels", job.Name)
	}

	req := trainingJobRequest{
		Name:            job.Name,
		Channels:        job.Channels,
		Hyperparameters: job.Hyperparameters,
	}

	var status trainingJobStatus
	if err := t.client.PostJSON(ctx, "/training-jobs", req, &status); err != nil {
		return nil, fmt.Errorf("submit training job %q: %w", job.Name, err)
	}

	t.logger.Info("training job submitted",
		logger.String("job", job.Name),
		logger.Int("channels", len(job.Channels)))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		switch status.Status {
		case statusCompleted:
			t.logger.Info("training job completed",
				logger.String("job", job.Name),
				logger.Int("metrics", len(status.FinalMetrics)))
			return service.TrainingMetrics(status.FinalMetrics), nil
		case statusFailed:
			return nil, fmt.Errorf("training job %q failed: %s", job.Name, status.FailureReason)
		case statusInProgress, "":
		default:
			return nil, fmt.Errorf("training job %q reported unknown status %q", job.Name, status.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		path := "/training-jobs/" + url.PathEscape(job.Name)
		if err := t.client.GetJSON(ctx, path, &status); err != nil {
			return nil, fmt.Errorf("poll training job %q: %w", job.Name, err)
		}
	}
}
