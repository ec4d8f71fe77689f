package node

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 2*time.Second)
}

func respondWith(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestClient_Request_envelopeSuccess(t *testing.T) {
	for _, body := range []string{
		`{"value": 1}`,
		`{"error": "ok", "value": 1}`,
		`{"error": ":ok", "value": 1}`,
		`{"error": null, "value": 1}`,
	} {
		client := newTestServer(t, respondWith(http.StatusOK, body))
		payload, err := client.Request(context.Background(), "/chain/stats", nil)
		require.NoError(t, err, body)
		assert.JSONEq(t, body, string(payload))
	}
}

func TestClient_Request_givenErrorField_thenDomainError(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"error": "invalid_height"}`))

	_, err := client.Request(context.Background(), "/chain/height/x", nil)
	require.Error(t, err)
	assert.True(t, IsDomain(err))
	assert.False(t, IsTransport(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_height", apiErr.Message)
	assert.Equal(t, "/chain/height/x", apiErr.Path)
}

func TestClient_Request_givenNotFound_thenErrNotFound(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusNotFound, `{"error": "not_found"}`))

	_, err := client.Request(context.Background(), "/chain/tx/abc", nil)
	require.ErrorIs(t, err, entities.ErrNotFound)
	assert.True(t, IsDomain(err))
}

func TestClient_Request_givenMalformedBody_thenTransportError(t *testing.T) {
	for _, body := range []string{`<html>bad gateway</html>`, `[1,2,3]`, `null`, ``} {
		client := newTestServer(t, respondWith(http.StatusBadGateway, body))
		_, err := client.Request(context.Background(), "/chain/stats", nil)
		require.Error(t, err, body)
		assert.True(t, IsTransport(err), body)
	}
}

func TestClient_Request_givenServerError_thenTransportError(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusServiceUnavailable, `{"message": "overloaded"}`))
	_, err := client.Request(context.Background(), "/chain/stats", nil)
	assert.True(t, IsTransport(err))
}

func TestClient_Request_givenUnreachable_thenTransportError(t *testing.T) {
	server := httptest.NewServer(respondWith(http.StatusOK, `{}`))
	client := NewClient(server.URL, time.Second)
	server.Close()

	_, err := client.Request(context.Background(), "/chain/stats", nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestClient_Request_givenSlowServer_thenTransportError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	defer close(release)

	client := NewClient(server.URL, 50*time.Millisecond)
	_, err := client.Request(context.Background(), "/chain/stats", nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestEnvelopeError_givenNonStringError_thenFailure(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"error": {"code": 5}}`))
	_, err := client.Request(context.Background(), "/chain/stats", nil)
	assert.True(t, IsDomain(err))
}
