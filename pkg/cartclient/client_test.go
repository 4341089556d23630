package cartclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/weddingplanner-backend/internal/cartgateway"
	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

var _ cartgateway.Backend = (*Client)(nil)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.BackendConfig{})
	assert.ErrorIs(t, err, errBaseURLRequired)
}

func TestCreateItemSendsTokenAndDecodesEnvelope(t *testing.T) {
	id := uuid.New()
	var captured *http.Request
	var body map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		raw, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		return jsonResponse(http.StatusCreated, `{"data":{"id":"`+id.String()+`","wedding_id":7,"vendor_id":42,"status":"wishlisted","price":"50000"}}`), nil
	})
	client, err := NewClient(config.BackendConfig{BaseURL: "http://cart.test/"}, WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	price := decimal.NewFromInt(50000)
	item, err := client.CreateItem(context.Background(), "tok", types.CartItemUpsert{
		WeddingID: 7, VendorID: 42, Price: &price, Status: enums.CartItemStatusWishlisted,
	})
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)
	assert.Equal(t, int64(42), item.VendorID)
	assert.True(t, decimal.NewFromInt(50000).Equal(item.Price))

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "http://cart.test/api/v1/cart/items", captured.URL.String())
	assert.Equal(t, "Bearer tok", captured.Header.Get("Authorization"))
	assert.Equal(t, float64(42), body["vendor_id"])
}

func TestListAndSummaryCarryWeddingQuery(t *testing.T) {
	var urls []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		urls = append(urls, req.URL.String())
		if strings.Contains(req.URL.Path, "summary") {
			return jsonResponse(http.StatusOK, `{"data":{"wedding_id":7,"total_items":2,"total_amount":"10","status_breakdown":{"booked":2}}}`), nil
		}
		return jsonResponse(http.StatusOK, `{"data":[{"id":"`+uuid.NewString()+`","vendor_id":1},{"id":"`+uuid.NewString()+`","vendor_id":2}]}`), nil
	})
	client, err := NewClient(config.BackendConfig{BaseURL: "http://cart.test"}, WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	items, err := client.ListItems(context.Background(), "tok", 7)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	summary, err := client.Summary(context.Background(), "tok", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalItems)
	assert.Equal(t, 2, summary.StatusBreakdown[enums.CartItemStatusBooked])

	assert.Equal(t, []string{
		"http://cart.test/api/v1/cart/items?wedding_id=7",
		"http://cart.test/api/v1/cart/summary?wedding_id=7",
	}, urls)
}

func TestErrorEnvelopeKeepsCodeAndMessage(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"error":{"code":"STATE_CONFLICT","message":"cannot move booked back to visited"}}`), nil
	})
	client, err := NewClient(config.BackendConfig{BaseURL: "http://cart.test"}, WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	_, err = client.UpdateItem(context.Background(), "tok", uuid.New(), types.CartItemPatch{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, "cannot move booked back to visited", typed.Message())
}

func TestUnstructuredErrorMapsStatus(t *testing.T) {
	cases := map[int]pkgerrors.Code{
		http.StatusNotFound:           pkgerrors.CodeNotFound,
		http.StatusUnauthorized:       pkgerrors.CodeUnauthorized,
		http.StatusBadGateway:         pkgerrors.CodeDependency,
		http.StatusServiceUnavailable: pkgerrors.CodeDependency,
	}
	for status, code := range cases {
		rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(status, "upstream exploded"), nil
		})
		client, err := NewClient(config.BackendConfig{BaseURL: "http://cart.test"}, WithHTTPClient(&http.Client{Transport: rt}))
		require.NoError(t, err)

		err = client.DeleteItem(context.Background(), "tok", uuid.New())
		assert.True(t, pkgerrors.IsCode(err, code), "status %d", status)
	}
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := NewClient(config.BackendConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, client.DeleteItem(context.Background(), "tok", uuid.New()))
}

func TestTimeoutIsDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := NewClient(config.BackendConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	_, err = client.ListItems(context.Background(), "tok", 7)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
