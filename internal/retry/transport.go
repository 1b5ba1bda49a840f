package retry

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Transport retries requests according to RetryOn and RetryStrategy.
// The attempt ordinal travels in the request context so recursive
// round-trips share one budget.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

type contextKey struct{}

func attemptFromContext(ctx context.Context) uint {
	attempt, ok := ctx.Value(contextKey{}).(uint)
	if !ok {
		return 0
	}
	return attempt
}

func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, contextKey{}, attempt)
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	attempt := attemptFromContext(request.Context())
	sleep, exhausted := t.strategy().Sleep(attempt)

	response, err := t.transport().RoundTrip(request)

	var retriable bool
	if t.RetryOn != nil {
		if err != nil {
			retriable = t.RetryOn.CheckError(err)
		} else {
			retriable = t.RetryOn.CheckResponse(response)
		}
	}
	if exhausted || !retriable {
		return response, err
	}

	if response != nil {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-request.Context().Done():
		return nil, request.Context().Err()
	case <-timer.C:
	}
	return t.RoundTrip(request.WithContext(withAttempt(request.Context(), attempt+1)))
}

func (t *Transport) transport() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) strategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
