package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgate/internal/config"
	"claimgate/internal/logger"
	"claimgate/pkg/errors"
	"claimgate/pkg/models"
)

func testEnvelope(t *testing.T, kind models.EventKind) *models.Envelope {
	t.Helper()
	header, err := models.NewEntry(models.ResourceMessageHeader, models.MessageHeader{
		EventKind: kind,
		Sender:    models.Identity{Value: "PRV-001"},
		Receiver:  models.Identity{Value: "INS-900"},
	})
	require.NoError(t, err)
	return &models.Envelope{ID: "env-1", Timestamp: time.Now().UTC(), Entries: []models.Entry{header}}
}

func newTestClient(endpoint string) *HTTPClient {
	return NewHTTPClient(config.ExchangeConfig{
		Endpoint:       endpoint,
		RequestTimeout: 2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2.0,
		},
	}, config.CircuitBreakerConfig{}, logger.NopLogger())
}

func serveEnvelope(t *testing.T, w http.ResponseWriter, code models.ResponseCode) {
	t.Helper()
	header, err := models.NewEntry(models.ResourceMessageHeader, models.MessageHeader{
		EventKind:    models.EventClaimRequest,
		ResponseCode: code,
	})
	require.NoError(t, err)
	env := models.Envelope{ID: "resp-1", Timestamp: time.Now().UTC(), Entries: []models.Entry{header}}
	require.NoError(t, json.NewEncoder(w).Encode(env))
}

func TestSendSuccess(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		assert.Equal(t, "application/claim-exchange+json", r.Header.Get("Content-Type"))
		serveEnvelope(t, w, models.ResponseOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Send(context.Background(), testEnvelope(t, models.EventClaimRequest))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.NotNil(t, result.Envelope)
	assert.NotEmpty(t, result.RawBody)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestSend4xxIsTerminal(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Send(context.Background(), testEnvelope(t, models.EventClaimRequest))
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "4xx must never be retried")

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.TransportClassHTTPError, appErr.Details["class"])
	assert.Equal(t, http.StatusNotFound, appErr.Details["status"])
}

func TestSend5xxIsRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Send(context.Background(), testEnvelope(t, models.EventClaimRequest))
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts), "5xx retried up to the attempt bound")
}

func TestSendNoResponseIsRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server.URL)
	_, err := client.Send(context.Background(), testEnvelope(t, models.EventClaimRequest))
	require.Error(t, err)

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.TransportClassNoResponse, appErr.Details["class"])
}

func TestSendRecoversAfterTransientFailure(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		serveEnvelope(t, w, models.ResponseOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Send(context.Background(), testEnvelope(t, models.EventClaimRequest))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestSendMalformedBodyIsStructural(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Write([]byte("not an envelope"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Send(context.Background(), testEnvelope(t, models.EventClaimRequest))
	require.Error(t, err)
	assert.True(t, errors.IsStructural(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "a malformed body is a data problem, not a transient fault")
}

func TestSendBusinessErrorIsStillTransportSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveEnvelope(t, w, models.ResponseFatalError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Send(context.Background(), testEnvelope(t, models.EventClaimRequest))
	require.NoError(t, err, "payload semantics are the validator's job")

	header, err := result.Envelope.Header()
	require.NoError(t, err)
	assert.Equal(t, models.ResponseFatalError, header.ResponseCode)
}
