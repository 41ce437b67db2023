package deepar

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"PriceCast/pkg/logger"
)

// Endpoint status values reported by the service.
const (
	endpointCreating  = "Creating"
	endpointInService = "InService"
	endpointFailed    = "Failed"
)

// ModelEndpoint deploys a trained model behind a synchronous HTTP
// invocation surface and tears it down when the caller is done.
type ModelEndpoint struct {
	client       *ServiceClient
	name         string
	modelName    string
	pollInterval time.Duration
	logger       *logger.Logger

	destroyOnce sync.Once
	destroyErr  error
}

// NewModelEndpoint creates an endpoint handle. Nothing is provisioned
// until Deploy is called.
func NewModelEndpoint(client *ServiceClient, name, modelName string, pollInterval time.Duration, log *logger.Logger) *ModelEndpoint {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &ModelEndpoint{
		client:       client,
		name:         name,
		modelName:    modelName,
		pollInterval: pollInterval,
		logger:       log,
	}
}

type endpointRequest struct {
	Name      string `json:"name"`
	ModelName string `json:"model_name"`
}

type endpointStatus struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Deploy provisions the endpoint and blocks until it is in service.
func (e *ModelEndpoint) Deploy(ctx context.Context) error {
	req := endpointRequest{Name: e.name, ModelName: e.modelName}

	var status endpointStatus
	if err := e.client.PostJSON(ctx, "/endpoints", req, &status); err != nil {
		return fmt.Errorf("create endpoint %q: %w", e.name, err)
	}

	e.logger.Info("endpoint deployment started",
		logger.String("endpoint", e.name),
		logger.String("model", e.modelName))

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		switch status.Status {
		case endpointInService:
			e.logger.Info("endpoint in service", logger.String("endpoint", e.name))
			return nil
		case endpointFailed:
			return fmt.Errorf("endpoint %q failed to deploy: %s", e.name, status.FailureReason)
		case endpointCreating, "":
		default:
			return fmt.Errorf("endpoint %q reported unknown status %q", e.name, status.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := e.client.GetJSON(ctx, e.path(""), &status); err != nil {
			return fmt.Errorf("poll endpoint %q: %w", e.name, err)
		}
	}
}

// Invoke posts a raw request payload and returns the raw response body.
func (e *ModelEndpoint) Invoke(ctx context.Context, request []byte) ([]byte, error) {
	var body []byte
	err := e.client.PostJSON(ctx, e.path("/invocations"), request, &body)
	if err != nil {
		return nil, fmt.Errorf("invoke endpoint %q: %w", e.name, err)
	}
	return body, nil
}

// Destroy tears the endpoint down. Repeated calls return the result of
// the first, so cleanup paths can call it unconditionally.
func (e *ModelEndpoint) Destroy(ctx context.Context) error {
	e.destroyOnce.Do(func() {
		if err := e.client.Delete(ctx, e.path("")); err != nil {
			e.destroyErr = fmt.Errorf("destroy endpoint %q: %w", e.name, err)
			return
		}
		e.logger.Info("endpoint destroyed", logger.String("endpoint", e.name))
	})
	return e.destroyErr
}

func (e *ModelEndpoint) path(suffix string) string {
	return "/endpoints/" + url.PathEscape(e.name) + suffix
}
