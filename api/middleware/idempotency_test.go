package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
)

const plannerActionsPath = "/api/v1/planner/cart/actions"

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func plannerRequest(body, key, device string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, plannerActionsPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	if device != "" {
		req = req.WithContext(WithDeviceID(req.Context(), device))
	}
	return req
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"planner action", http.MethodPost, plannerActionsPath, defaultIdempotencyTTL, true},
		{"create item", http.MethodPost, "/api/v1/cart/items", defaultIdempotencyTTL, true},
		{"patch item", http.MethodPatch, "/api/v1/cart/items/6f1c", defaultIdempotencyTTL, true},
		{"delete item", http.MethodDelete, "/api/v1/cart/items/6f1c", criticalIdempotencyTTL, true},
		{"list items", http.MethodGet, "/api/v1/cart/items", 0, false},
		{"replay", http.MethodPost, "/api/v1/planner/replay", 0, false},
		{"empty", http.MethodPost, "", 0, false},
		{"bare item prefix", http.MethodDelete, "/api/v1/cart/items/", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewarePassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	})

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, plannerRequest(`{"kind":"add"}`, "", "device-0001"))
		if resp.Code != http.StatusAccepted {
			t.Fatalf("expected 202 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("handler executed %d times, expected 2", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("nothing should be stored without a key: %v", store.data)
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, plannerRequest(`{"kind":"add"}`, "abc", "device-0001"))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, plannerRequest(`{"kind":"add"}`, "abc", "device-0001"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if rec.Header().Get(replayedHeader) != "true" {
		t.Fatalf("expected replayed marker on stored response")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareScopesKeysPerDevice(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), plannerRequest(`{}`, "same", "device-0001"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), plannerRequest(`{}`, "same", "device-0002"))

	if calls != 2 {
		t.Fatalf("different devices must not share keys, handler ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareSkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), plannerRequest(`{}`, "retry-me", "device-0001"))
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, plannerRequest(`{}`, "retry-me", "device-0001"))

	if rec.Code != http.StatusOK || calls != 2 {
		t.Fatalf("expected retry to reach handler, code=%d calls=%d", rec.Code, calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), plannerRequest(`{"kind":"add"}`, "xyz", "device-0001"))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, plannerRequest(`{"kind":"remove"}`, "xyz", "device-0001"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareNilStore(t *testing.T) {
	mw := Idempotency(nil, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	mw(handler).ServeHTTP(httptest.NewRecorder(), plannerRequest(`{}`, "k", "device-0001"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), plannerRequest(`{}`, "k", "device-0001"))
	if calls != 2 {
		t.Fatalf("expected pass-through without a store, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareRejectsOversizedKey(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, plannerRequest(`{}`, strings.Repeat("k", maxIdempotencyKeyLen+1), "device-0001"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestIdempotencyMiddlewareRejectsDuplicateWhileInFlight(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			inner = httptest.NewRecorder()
			mw(handler).ServeHTTP(inner, plannerRequest(`{"kind":"add"}`, "double-tap", "device-0001"))
		}
		w.WriteHeader(http.StatusAccepted)
	})

	outer := httptest.NewRecorder()
	mw(handler).ServeHTTP(outer, plannerRequest(`{"kind":"add"}`, "double-tap", "device-0001"))

	if outer.Code != http.StatusAccepted {
		t.Fatalf("expected first request 202 got %d", outer.Code)
	}
	if inner == nil || inner.Code != http.StatusConflict {
		t.Fatalf("expected duplicate in flight to get 409, got %+v", inner)
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, plannerRequest(`{"kind":"add"}`, "double-tap", "device-0001"))
	if replay.Code != http.StatusAccepted || replay.Header().Get(replayedHeader) != "true" {
		t.Fatalf("expected completed response to replay, got %d", replay.Code)
	}
}
