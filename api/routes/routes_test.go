package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/minicrm/backend/internal/handlers"
	"github.com/minicrm/backend/internal/locks"
	"github.com/minicrm/backend/internal/repositories/memory"
	"github.com/minicrm/backend/internal/services"
	"github.com/minicrm/backend/pkg/authtoken"
	"github.com/minicrm/backend/pkg/vendorapi"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type testServer struct {
	router  *gin.Engine
	token   string
	gateway *vendorapi.MockGateway
}

func newTestServer(t *testing.T, opts ...func(*HandlerDependencies)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	store := memory.NewStore()
	gateway := vendorapi.NewMockGateway("TEST")

	engagement := services.NewEngagementScheduler(store.Campaigns, store.Messages, services.RatioEstimator{Open: 0.8, Click: 0.4}, time.Hour, log)
	t.Cleanup(engagement.Stop)

	resolver := services.NewAudienceResolver(store.Customers, store.Orders, store.Segments, log)
	campaigns := services.NewCampaignService(store.Campaigns, store.Segments, store.Messages, resolver, services.SendPipeline{
		Dispatcher: services.NewDispatcher(10, time.Second, log),
		Gateway:    gateway,
		Decider:    services.FixedDecider(true),
		Locker:     locks.NewLocalLocker(),
		LockTTL:    time.Minute,
		Engagement: engagement,
	}, log)

	signer := authtoken.NewSigner("test-secret", time.Hour)
	token, err := signer.Sign(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	deps := HandlerDependencies{
		CustomerHandler: handlers.NewCustomerHandler(services.NewCustomerService(store.Customers, store.Orders, log), log),
		OrderHandler:    handlers.NewOrderHandler(services.NewOrderService(store.Orders, store.Customers, log), log),
		SegmentHandler:  handlers.NewSegmentHandler(services.NewSegmentService(store.Segments, store.Customers, resolver, log), log),
		CampaignHandler: handlers.NewCampaignHandler(campaigns, log),
		MessageHandler:  handlers.NewMessageHandler(services.NewMessageService(store.Messages, log), log),
		Signer:          signer,
		AllowedOrigins:  []string{"http://localhost:3000"},
		Log:             log,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	router := SetupRouter(deps)
	return &testServer{router: router, token: token, gateway: gateway}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/customers", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}

func TestSendCampaignFlow(t *testing.T) {
	s := newTestServer(t)

	for i, visits := range []int{5, 15, 20} {
		w, _ := s.do(t, http.MethodPost, "/api/customers", map[string]interface{}{
			"name":   fmt.Sprintf("Customer %d", i),
			"email":  fmt.Sprintf("c%d@example.com", i),
			"visits": visits,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, body := s.do(t, http.MethodPost, "/api/segments/preview", map[string]interface{}{
		"rules": []map[string]interface{}{{"field": "visits", "operator": "greaterThan", "value": "10"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])

	w, body = s.do(t, http.MethodPost, "/api/segments", map[string]interface{}{
		"name":  "Frequent visitors",
		"rules": []map[string]interface{}{{"field": "visits", "operator": "greaterThan", "value": "10"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	segmentID := body["_id"].(string)
	assert.EqualValues(t, 2, body["customerCount"])

	w, body = s.do(t, http.MethodPost, "/api/campaigns", map[string]interface{}{
		"name":      "Loyalty",
		"segmentId": segmentID,
		"message":   "Thanks for visiting!",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	campaignID := body["data"].(map[string]interface{})["_id"].(string)

	w, body = s.do(t, http.MethodPost, "/api/campaigns/"+campaignID+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", body["status"])
	campaign := body["data"].(map[string]interface{})["campaign"].(map[string]interface{})
	assert.Equal(t, "completed", campaign["status"])
	assert.Equal(t, "Thanks for visiting!", campaign["message"])
	assert.NotNil(t, campaign["sentAt"])
	stats := campaign["stats"].(map[string]interface{})
	assert.EqualValues(t, 2, stats["delivered"])
	assert.Equal(t, 2, s.gateway.Calls())

	w, body = s.do(t, http.MethodPost, "/api/campaigns/"+campaignID+"/send", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, 2, s.gateway.Calls())

	w, body = s.do(t, http.MethodGet, "/api/campaigns/"+campaignID+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["messages"], 2)
	assert.EqualValues(t, 2, body["pagination"].(map[string]interface{})["total"])

	w, _ = s.do(t, http.MethodDelete, "/api/campaigns/"+campaignID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/campaigns/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid campaign ID", body["message"])

	w, body = s.do(t, http.MethodGet, "/api/customers/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Customer not found", body["message"])

	w, body = s.do(t, http.MethodPost, "/api/customers", map[string]interface{}{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation Error", body["message"])
	assert.NotEmpty(t, body["errors"])

	w, _ = s.do(t, http.MethodPost, "/api/customers", map[string]interface{}{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	w, body = s.do(t, http.MethodPost, "/api/customers", map[string]interface{}{"name": "Ada", "email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Duplicate Error", body["message"])

	w, body = s.do(t, http.MethodPost, "/api/segments", map[string]interface{}{
		"name":  "bad",
		"rules": []map[string]interface{}{{"field": "visits", "operator": "between", "value": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, body["errors"], 1)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/customers", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSendRouteIsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newTestServer(t, func(deps *HandlerDependencies) {
		deps.Redis = rdb
		deps.SendRateLimit = 1
		deps.SendRateWindow = time.Minute
	})

	id := primitive.NewObjectID().Hex()
	w, _ := s.do(t, http.MethodPost, "/api/campaigns/"+id+"/send", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/campaigns/"+id+"/send", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", body["message"])

	w, _ = s.do(t, http.MethodGet, "/api/campaigns/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
