// Package vendorapi is the client side of the message delivery vendor.
package vendorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/minicrm/backend/pkg/authtoken"
)

// Result is the vendor's answer for one message
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Gateway delivers a single message to a single recipient. A returned error
// means the call itself failed; a delivered-or-not answer is carried by
// Result.
type Gateway interface {
	Send(ctx context.Context, to, body string) (*Result, error)
}

// SimulatedGateway stands in for a real vendor: it sleeps for a random delay
// and then succeeds with the configured probability.
type SimulatedGateway struct {
	MinDelay           time.Duration
	MaxDelay           time.Duration
	SuccessProbability float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedGateway creates a simulated gateway
func NewSimulatedGateway(minDelay, maxDelay time.Duration, successProbability float64) *SimulatedGateway {
	return &SimulatedGateway{
		MinDelay:           minDelay,
		MaxDelay:           maxDelay,
		SuccessProbability: successProbability,
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Send simulates delivery of body to the recipient
func (g *SimulatedGateway) Send(ctx context.Context, to, body string) (*Result, error) {
	g.mu.Lock()
	delay := g.MinDelay
	if span := g.MaxDelay - g.MinDelay; span > 0 {
		delay += time.Duration(g.rng.Int63n(int64(span)))
	}
	success := g.rng.Float64() < g.SuccessProbability
	g.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if !success {
		return &Result{Success: false, Error: "Failed to deliver message"}, nil
	}
	return &Result{Success: true, MessageID: uuid.NewString()}, nil
}

// RejectingGateway never contacts the vendor and fails every message with
// Reason.
type RejectingGateway struct {
	Reason string
}

// Send returns a failed result without delivering anything
func (g RejectingGateway) Send(ctx context.Context, to, body string) (*Result, error) {
	return &Result{Success: false, Error: g.Reason}, nil
}

// MockGateway is a deterministic gateway for tests and local runs. Recipients
// listed in Fail are rejected; everyone else is delivered.
type MockGateway struct {
	Name string
	Fail map[string]bool

	calls atomic.Int64
}

// NewMockGateway creates a mock gateway that delivers to everyone
func NewMockGateway(name string) *MockGateway {
	return &MockGateway{Name: name, Fail: map[string]bool{}}
}

// Send records the call and answers deterministically
func (g *MockGateway) Send(ctx context.Context, to, body string) (*Result, error) {
	n := g.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Fail[to] {
		return &Result{Success: false, Error: "Failed to deliver message"}, nil
	}
	return &Result{Success: true, MessageID: fmt.Sprintf("%s-MOCK-MSG-%d", g.Name, n)}, nil
}

// Calls returns how many times Send has been invoked
func (g *MockGateway) Calls() int {
	return int(g.calls.Load())
}

// HTTPGateway posts messages to a vendor HTTP endpoint authenticated with a
// short-lived bearer token signed with the vendor API key.
type HTTPGateway struct {
	BaseURL    string
	signer     *authtoken.Signer
	httpClient *http.Client
}

// NewHTTPGateway creates a vendor HTTP client
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		signer:  authtoken.NewSigner(apiKey, 5*time.Minute),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts a single message to the vendor
func (g *HTTPGateway) Send(ctx context.Context, to, body string) (*Result, error) {
	token, err := g.signer.Sign("minicrm", "campaign-sender")
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor token: %w", err)
	}

	jsonBody, err := json.Marshal(map[string]string{
		"to":      to,
		"message": body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}
