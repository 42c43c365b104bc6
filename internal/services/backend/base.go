package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	xhttp "MarketSim/pkg/http"
)

// ErrNotConfigured is returned when no backend URL is set.
var ErrNotConfigured = errors.New("backend url not configured")

// HTTPServiceBase centralizes client construction and JSON requests with
// retries for the model backend.
type HTTPServiceBase struct {
	client     *xhttp.Client
	maxRetries int
	initial    time.Duration
	maxElapsed time.Duration
}

func newHTTPServiceBase(baseURL string, timeout time.Duration, maxRetries int) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPServiceBase{
		client:     xhttp.NewClient(xhttp.WithBaseURL(baseURL), xhttp.WithTimeout(timeout)),
		maxRetries: maxRetries,
		initial:    100 * time.Millisecond,
		maxElapsed: 2 * timeout,
	}
}

// Do sends one request and decodes the JSON reply into dest, retrying
// transport errors and temporary statuses with exponential backoff.
func (b *HTTPServiceBase) Do(ctx context.Context, method, path string, payload, dest interface{}) error {
	if !b.configured() {
		return ErrNotConfigured
	}

	operation := func() error {
		err := b.client.Do(ctx, method, path, payload, dest)
		if err == nil {
			return nil
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = b.initial
	strategy.MaxElapsedTime = b.maxElapsed

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(strategy, uint64(b.maxRetries)), ctx))
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func (b *HTTPServiceBase) configured() bool {
	return b.client != nil && b.client.BaseURL() != ""
}
