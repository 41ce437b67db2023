package service

import "context"

// TrainingJob describes one managed training run: named data channels
// pointing at object store locations, plus free-form string hyperparameters
// (frequency, epochs, context length, prediction length, ...). The core does
// not validate hyperparameter keys; the service owns that contract.
type TrainingJob struct {
	Name            string
	Channels        map[string]string
	Hyperparameters map[string]string
}

// TrainingMetrics are the accuracy metrics the service computes when a "test"
// channel is supplied.
type TrainingMetrics map[string]float64

// Trainer submits a training job and blocks until completion or failure.
type Trainer interface {
	Train(ctx context.Context, job TrainingJob) (TrainingMetrics, error)
}

// Endpoint is a deployed model behind a synchronous HTTP invocation surface.
// Destroy must be called exactly once when the endpoint is no longer needed;
// that is the caller's responsibility, not enforced here.
type Endpoint interface {
	Deploy(ctx context.Context) error
	Invoke(ctx context.Context, request []byte) ([]byte, error)
	Destroy(ctx context.Context) error
}
