package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/weddingplanner-backend/api/middleware"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionqueue"
	"github.com/angelmondragon/weddingplanner-backend/internal/cart"
	"github.com/angelmondragon/weddingplanner-backend/internal/cartgateway"
	"github.com/angelmondragon/weddingplanner-backend/internal/replay"
	pkgAuth "github.com/angelmondragon/weddingplanner-backend/pkg/auth"
	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	"github.com/angelmondragon/weddingplanner-backend/pkg/db/dbtest"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/metrics"
)

const testDevice = "router-device-01"

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test"},
		JWT:      config.JWTConfig{Secret: "router-secret", Issuer: "weddingplanner", ExpirationMinutes: 15},
		Auth:     config.AuthConfig{LoginURL: "/login", ReturnPath: "/cart", DeviceCookie: "wp_device"},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Planning: config.PlanningConfig{Categories: []string{"venue", "catering"}},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.Nop()
	reg := prometheus.NewRegistry()

	client := dbtest.NewSQLite(t)
	svc, err := cart.NewService(cart.NewRepository(client.DB()), client)
	require.NoError(t, err)
	backend, err := cart.NewLocalBackend(svc, cfg.JWT)
	require.NoError(t, err)

	queue, err := actionqueue.NewManager(actionlog.NewMemoryLog(10), logg, metrics.NewQueueMetrics(reg))
	require.NoError(t, err)
	gw, err := cartgateway.New(cartgateway.Params{
		Queue:      queue,
		Backend:    backend,
		Identity:   middleware.TokenFromContext,
		Redirector: cartgateway.LoginRedirect{LoginURL: cfg.Auth.LoginURL, ReturnPath: cfg.Auth.ReturnPath},
		Logger:     logg,
		Metrics:    metrics.NewGatewayMetrics(reg),
	})
	require.NoError(t, err)
	coord, err := replay.NewCoordinator(replay.Params{
		Queue:   queue,
		Applier: gw,
		Guard:   replay.NewLocalGuard(),
		Logger:  logg,
		Metrics: metrics.NewReplayMetrics(reg),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          client,
		Gatherer:    reg,
		CartService: svc,
		Gateway:     gw,
		Coordinator: coord,
		Queue:       queue,
	}))
	t.Cleanup(srv.Close)
	return srv, cfg
}

func call(t *testing.T, srv *httptest.Server, method, path, token, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("X-Device-Id", testDevice)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := call(t, srv, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := call(t, srv, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"db":"up"`)

	resp, _ = call(t, srv, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCartRoutesRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := call(t, srv, http.MethodGet, "/api/v1/cart/items", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeferredActionReplaysAfterSignIn(t *testing.T) {
	srv, cfg := newTestServer(t)

	resp, body := call(t, srv, http.MethodPost, "/api/v1/planner/cart/actions", "",
		`{"kind":"add_to_cart","payload":{"vendor_id":9,"wedding_id":4,"category":"Venue"}}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, body)
	assert.Contains(t, body, "intent=cart_replay")
	assert.Equal(t, testDevice, resp.Header.Get("X-Device-Id"))

	resp, body = call(t, srv, http.MethodGet, "/api/v1/planner/pending", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"count":1`)

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	resp, body = call(t, srv, http.MethodPost, "/api/v1/planner/replay", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var replayed struct {
		Data replay.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &replayed))
	assert.Equal(t, 1, replayed.Data.Applied)
	assert.Zero(t, replayed.Data.Failed)

	resp, body = call(t, srv, http.MethodGet, "/api/v1/cart/items?wedding_id=4", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"vendor_id":9`)

	resp, body = call(t, srv, http.MethodGet, "/api/v1/planner/progress?wedding_id=4", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"percent":50`)

	resp, body = call(t, srv, http.MethodGet, "/api/v1/planner/pending", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"count":0`)

	resp, body = call(t, srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "deferred_actions_enqueued_total")
}

func TestSignedInActionAppliesImmediately(t *testing.T) {
	srv, cfg := newTestServer(t)
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	resp, body := call(t, srv, http.MethodPost, "/api/v1/planner/cart/actions", token,
		`{"kind":"add_to_cart","payload":{"vendor_id":3,"wedding_id":4}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"applied":true`)

	resp, body = call(t, srv, http.MethodGet, "/api/v1/planner/cart?wedding_id=4", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"label":"Wishlisted"`)
}
