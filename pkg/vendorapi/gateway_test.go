package vendorapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minicrm/backend/pkg/authtoken"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedGateway_AlwaysSucceeds(t *testing.T) {
	g := NewSimulatedGateway(0, time.Millisecond, 1)

	res, err := g.Send(context.Background(), "a@example.com", "hi")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.MessageID)
}

func TestSimulatedGateway_AlwaysFails(t *testing.T) {
	g := NewSimulatedGateway(0, 0, 0)

	res, err := g.Send(context.Background(), "a@example.com", "hi")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to deliver message", res.Error)
}

func TestSimulatedGateway_HonoursContext(t *testing.T) {
	g := NewSimulatedGateway(time.Hour, time.Hour, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Send(ctx, "a@example.com", "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRejectingGateway(t *testing.T) {
	res, err := RejectingGateway{Reason: "Campaign failed to send"}.Send(context.Background(), "a@example.com", "hi")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Campaign failed to send", res.Error)
}

func TestMockGateway(t *testing.T) {
	g := NewMockGateway("test")
	g.Fail["b@example.com"] = true

	ok, err := g.Send(context.Background(), "a@example.com", "hi")
	require.NoError(t, err)
	assert.True(t, ok.Success)

	bad, err := g.Send(context.Background(), "b@example.com", "hi")
	require.NoError(t, err)
	assert.False(t, bad.Success)
	assert.Equal(t, 2, g.Calls())
}

func TestHTTPGateway_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		_, err := authtoken.NewSigner("vendor-key", 0).Verify(token)
		assert.NoError(t, err)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@example.com", req["to"])
		assert.Equal(t, "hello", req["message"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"messageId":"abc123"}`))
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "vendor-key", time.Second)
	res, err := g.Send(context.Background(), "a@example.com", "hello")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "abc123", res.MessageID)
}

func TestHTTPGateway_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPGateway(server.URL, "k", time.Second).Send(context.Background(), "a@example.com", "hi")
	assert.ErrorContains(t, err, "status 502")
}
