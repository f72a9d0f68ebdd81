package transport

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"claimgate/internal/config"
	"claimgate/internal/constants"
	"claimgate/internal/logger"
	"claimgate/pkg/circuitbreaker"
	"claimgate/pkg/errors"
	"claimgate/pkg/metrics"
	"claimgate/pkg/models"
	"claimgate/pkg/retry"
)

// Client sends an envelope to the exchange endpoint and classifies the
// transport outcome. It never inspects payload semantics; a 200 carrying a
// business failure is still a transport success here.
type Client interface {
	Send(ctx context.Context, env *models.Envelope, opts ...SendOption) (*Result, error)
}

// Result is a transported response. RawBody is kept verbatim for the audit
// trail.
type Result struct {
	StatusCode int
	Envelope   *models.Envelope
	RawBody    []byte
}

type sendOptions struct {
	timeout time.Duration
}

type SendOption func(*sendOptions)

// WithTimeout overrides the per-request timeout for one send.
func WithTimeout(d time.Duration) SendOption {
	return func(o *sendOptions) {
		o.timeout = d
	}
}

type HTTPClient struct {
	endpoint string
	client   *http.Client
	policy   retry.Policy
	timeout  time.Duration
	breaker  *circuitbreaker.Wrapper
	logger   logger.Logger
}

func NewHTTPClient(cfg config.ExchangeConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) *HTTPClient {
	c := &HTTPClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{},
		timeout:  cfg.RequestTimeout,
		policy: retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      cfg.Retry.Multiplier,
		},
		logger: log,
	}

	if cbCfg.Enabled {
		breakerCfg := circuitbreaker.DefaultConfig("exchange")
		if cbCfg.MaxRequests > 0 {
			breakerCfg.MaxRequests = cbCfg.MaxRequests
		}
		if cbCfg.Interval > 0 {
			breakerCfg.Interval = cbCfg.Interval
		}
		if cbCfg.Timeout > 0 {
			breakerCfg.Timeout = cbCfg.Timeout
		}
		c.breaker = circuitbreaker.NewWrapper(breakerCfg)
	}

	return c
}

// Send transmits the envelope with bounded retry. A status in the 4xx range
// is terminal; status >= 500 or no response at all is retried up to the
// policy bound. Batch submissions get double the configured timeout for
// their larger payloads.
func (c *HTTPClient) Send(ctx context.Context, env *models.Envelope, opts ...SendOption) (*Result, error) {
	options := sendOptions{timeout: c.timeout}

	eventKind := ""
	if header, err := env.Header(); err == nil {
		eventKind = string(header.EventKind)
		if header.EventKind == models.EventBatchRequest {
			options.timeout = c.timeout * constants.BatchTimeoutMultiplier
		}
	}

	for _, opt := range opts {
		opt(&options)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, errors.ErrTransport.
			WithCause(err).
			WithDetail("class", errors.TransportClassRequestError).
			AsFatal()
	}

	var result *Result
	attempt := 0

	operation := func() error {
		attempt++
		start := time.Now()
		res, attemptErr := c.attempt(ctx, body, options.timeout)
		duration := time.Since(start)

		if attemptErr != nil {
			metrics.ObserveTransportAttempt(eventKind, transportClass(attemptErr), duration)
			return attemptErr
		}

		metrics.ObserveTransportAttempt(eventKind, "success", duration)
		result = res
		return nil
	}

	onRetry := func(n int, retryErr error, nextDelay time.Duration) {
		c.logger.WarnwCtx(ctx, "Exchange attempt failed, retrying",
			"event_kind", eventKind,
			"attempt", n,
			"next_delay", nextDelay,
			"error", retryErr,
		)
	}

	if err := retry.RetryWithCallback(ctx, c.policy, operation, onRetry); err != nil {
		c.logger.ErrorwCtx(ctx, "Exchange send failed",
			"event_kind", eventKind,
			"attempts", attempt,
			"error", err,
		)
		return nil, err
	}

	return result, nil
}

// attempt performs one HTTP exchange and classifies the outcome.
func (c *HTTPClient) attempt(ctx context.Context, body []byte, timeout time.Duration) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, errors.ErrTransport.
				WithCause(err).
				WithDetail("class", errors.TransportClassRequestError).
				AsFatal()
		}
		req.Header.Set("Content-Type", constants.ExchangeMediaType)
		req.Header.Set("Accept", constants.ExchangeMediaType)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, errors.ErrTransport.
				WithCause(err).
				WithDetail("class", errors.TransportClassNoResponse).
				AsRetryable()
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.ErrTransport.
				WithCause(err).
				WithDetail("class", errors.TransportClassNoResponse).
				AsRetryable()
		}

		switch {
		case resp.StatusCode >= 500:
			return nil, errors.ErrTransport.
				WithDetail("class", errors.TransportClassHTTPError).
				WithDetail("status", resp.StatusCode).
				WithMessage(fmt.Sprintf("exchange returned status %d", resp.StatusCode)).
				AsRetryable()
		case resp.StatusCode >= 400:
			// The request itself was malformed or rejected; retrying an
			// identical envelope cannot succeed.
			return nil, errors.ErrTransport.
				WithDetail("class", errors.TransportClassHTTPError).
				WithDetail("status", resp.StatusCode).
				WithMessage(fmt.Sprintf("exchange returned status %d", resp.StatusCode)).
				AsFatal()
		}

		var respEnv models.Envelope
		if err := json.Unmarshal(raw, &respEnv); err != nil {
			return nil, errors.ErrStructural.
				WithCause(err).
				WithDetail("status", resp.StatusCode).
				AsFatal()
		}

		return &Result{StatusCode: resp.StatusCode, Envelope: &respEnv, RawBody: raw}, nil
	}

	var (
		value interface{}
		err   error
	)
	if c.breaker != nil {
		value, err = c.breaker.Execute(ctx, run)
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			err = errors.ErrServiceUnavailable.
				WithCause(err).
				WithDetail("class", errors.TransportClassNoResponse).
				AsFatal()
		}
	} else {
		value, err = run()
	}
	if err != nil {
		return nil, err
	}

	return value.(*Result), nil
}

func transportClass(err error) string {
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		if class, ok := appErr.Details["class"].(string); ok {
			return class
		}
	}
	return errors.TransportClassNoResponse
}
