package cartgateway

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionqueue"
	"github.com/angelmondragon/weddingplanner-backend/internal/notify"
	"github.com/angelmondragon/weddingplanner-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

const slot = "device-1"

type fakeBackend struct {
	mu      sync.Mutex
	items   []types.CartItem
	calls   []string
	failOn  string
	failErr error
	block   bool
}

func (f *fakeBackend) record(call string) error {
	f.calls = append(f.calls, call)
	if f.failOn == call {
		return f.failErr
	}
	return nil
}

func (f *fakeBackend) ListItems(ctx context.Context, _ string, weddingID int64) ([]types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list"); err != nil {
		return nil, err
	}
	var out []types.CartItem
	for _, item := range f.items {
		if item.WeddingID == weddingID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateItem(ctx context.Context, _ string, in types.CartItemUpsert) (types.CartItem, error) {
	if f.block {
		<-ctx.Done()
		return types.CartItem{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create"); err != nil {
		return types.CartItem{}, err
	}
	item := types.CartItem{ID: uuid.New(), WeddingID: in.WeddingID, VendorID: in.VendorID, Status: in.Status}
	if in.Price != nil {
		item.Price = *in.Price
	}
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeBackend) UpdateItem(_ context.Context, _ string, id uuid.UUID, patch types.CartItemPatch) (types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update"); err != nil {
		return types.CartItem{}, err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			if patch.Status != nil {
				f.items[i].Status = *patch.Status
			}
			return f.items[i], nil
		}
	}
	return types.CartItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func (f *fakeBackend) DeleteItem(_ context.Context, _ string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete"); err != nil {
		return err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func (f *fakeBackend) Summary(context.Context, string, int64) (types.CartSummary, error) {
	return types.CartSummary{}, nil
}

func anonymous(context.Context) (string, bool) { return "", false }

func signedIn(context.Context) (string, bool) { return "token", true }

func newGateway(t *testing.T, backend Backend, identity IdentityProvider, log actionlog.Log) (*Gateway, *actionqueue.Manager) {
	t.Helper()
	queue, err := actionqueue.NewManager(log, logger.Nop(), nil)
	require.NoError(t, err)
	gw, err := New(Params{
		Queue:      queue,
		Backend:    backend,
		Identity:   identity,
		Redirector: LoginRedirect{LoginURL: "https://auth.example.com/login", ReturnPath: "/cart"},
		Logger:     logger.Nop(),
		Timeout:    time.Second,
	})
	require.NoError(t, err)
	return gw, queue
}

func addPayload(vendorID int64) types.CartPayload {
	price := decimal.NewFromInt(50000)
	return types.CartPayload{VendorID: vendorID, WeddingID: 7, Price: &price, Status: "wishlisted"}
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Params{})
	assert.Error(t, err)
}

func TestLoginRedirectCarriesReplayIntent(t *testing.T) {
	raw := LoginRedirect{LoginURL: "https://auth.example.com/login?lang=en", ReturnPath: "/cart"}.AuthRedirect(context.Background())
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "auth.example.com", u.Host)
	assert.Equal(t, "/cart", u.Query().Get("return_to"))
	assert.Equal(t, ReplayIntent, u.Query().Get("intent"))
	assert.Equal(t, "en", u.Query().Get("lang"))

	assert.Contains(t, LoginRedirect{}.AuthRedirect(context.Background()), "/login?intent=cart_replay")
}

func TestMutateDefersWithoutIdentity(t *testing.T) {
	backend := &fakeBackend{}
	gw, queue := newGateway(t, backend, anonymous, actionlog.NewMemoryLog(0))

	out, err := gw.Mutate(context.Background(), slot, enums.CartActionAddToCart, addPayload(42))
	require.NoError(t, err)
	assert.True(t, out.Deferred)
	assert.True(t, out.Persisted)
	assert.False(t, out.Applied)
	require.NotNil(t, out.ActionID)
	assert.Contains(t, out.RedirectURL, "intent=cart_replay")
	assert.Nil(t, out.Notification)
	assert.Empty(t, backend.calls)

	pending, err := queue.Pending(context.Background(), slot)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, *out.ActionID, pending[0].ID)
}

func TestMutateFailsOpenWhenLogIsFull(t *testing.T) {
	gw, _ := newGateway(t, &fakeBackend{}, anonymous, actionlog.NewMemoryLog(1))

	_, err := gw.Mutate(context.Background(), slot, enums.CartActionAddToCart, addPayload(1))
	require.NoError(t, err)

	out, err := gw.Mutate(context.Background(), slot, enums.CartActionAddToCart, addPayload(2))
	require.NoError(t, err)
	assert.True(t, out.Deferred)
	assert.False(t, out.Persisted)
	assert.NotEmpty(t, out.RedirectURL)
	require.NotNil(t, out.Notification)
	assert.Equal(t, enums.NotificationLevelWarning, out.Notification.Level)
}

func TestMutateRejectsInvalidPayload(t *testing.T) {
	gw, queue := newGateway(t, &fakeBackend{}, anonymous, actionlog.NewMemoryLog(0))

	_, err := gw.Mutate(context.Background(), slot, enums.CartActionAddToCart, types.CartPayload{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	pending, err := queue.HasPendingActions(context.Background(), slot)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestMutateAppliesWithIdentity(t *testing.T) {
	backend := &fakeBackend{}
	gw, queue := newGateway(t, backend, signedIn, actionlog.NewMemoryLog(0))

	out, err := gw.Mutate(context.Background(), slot, enums.CartActionAddToCart, addPayload(42))
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.False(t, out.Deferred)
	require.NotNil(t, out.Item)
	assert.Equal(t, int64(42), out.Item.VendorID)
	require.NotNil(t, out.Notification)
	assert.Equal(t, notify.MsgAdded, out.Notification.Message)
	assert.Equal(t, []string{"create"}, backend.calls)

	pending, err := queue.HasPendingActions(context.Background(), slot)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestMutateReportsBackendFailure(t *testing.T) {
	backend := &fakeBackend{failOn: "create", failErr: pkgerrors.New(pkgerrors.CodeConflict, "vendor unavailable on that date")}
	gw, _ := newGateway(t, backend, signedIn, actionlog.NewMemoryLog(0))

	out, err := gw.Mutate(context.Background(), slot, enums.CartActionAddToCart, addPayload(42))
	require.NoError(t, err)
	assert.False(t, out.Applied)
	require.NotNil(t, out.Notification)
	assert.Equal(t, enums.NotificationLevelError, out.Notification.Level)
	assert.Equal(t, "vendor unavailable on that date", out.Notification.Message)

	backend.failOn, backend.failErr = "create", errors.New("connection reset")
	out, err = gw.Mutate(context.Background(), slot, enums.CartActionAddToCart, addPayload(43))
	require.NoError(t, err)
	assert.Equal(t, notify.MsgGenericFailure, out.Notification.Message)
}

func TestApplyResolvesItemByVendor(t *testing.T) {
	id := uuid.New()
	backend := &fakeBackend{items: []types.CartItem{{ID: id, WeddingID: 7, VendorID: 42, Status: enums.CartItemStatusWishlisted}}}
	gw, _ := newGateway(t, backend, signedIn, actionlog.NewMemoryLog(0))

	item, err := gw.Apply(context.Background(), "token", enums.CartActionUpdateCart, types.CartPayload{VendorID: 42, WeddingID: 7, Status: "booked"})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, id, item.ID)
	assert.Equal(t, enums.CartItemStatusBooked, item.Status)
	assert.Equal(t, []string{"list", "update"}, backend.calls)

	_, err = gw.Apply(context.Background(), "token", enums.CartActionRemoveFromCart, types.CartPayload{VendorID: 42, WeddingID: 7})
	require.NoError(t, err)
	assert.Empty(t, backend.items)
}

func TestApplyUsesItemIDDirectly(t *testing.T) {
	id := uuid.New()
	backend := &fakeBackend{items: []types.CartItem{{ID: id, WeddingID: 7, VendorID: 42}}}
	gw, _ := newGateway(t, backend, signedIn, actionlog.NewMemoryLog(0))

	_, err := gw.Apply(context.Background(), "token", enums.CartActionRemoveFromCart, types.CartPayload{ItemID: &id})
	require.NoError(t, err)
	assert.Equal(t, []string{"delete"}, backend.calls)
}

func TestApplyWithItemIDSkipsListUnlessStatusChanges(t *testing.T) {
	id := uuid.New()
	backend := &fakeBackend{items: []types.CartItem{{ID: id, WeddingID: 7, VendorID: 42, Status: enums.CartItemStatusSelected}}}
	gw, _ := newGateway(t, backend, signedIn, actionlog.NewMemoryLog(0))
	ctx := context.Background()

	notes := "call back after tasting"
	_, err := gw.Apply(ctx, "token", enums.CartActionUpdateCart, types.CartPayload{ItemID: &id, WeddingID: 7, VendorID: 42, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, []string{"update"}, backend.calls)

	backend.calls = nil
	_, err = gw.Apply(ctx, "token", enums.CartActionUpdateCart, types.CartPayload{ItemID: &id, WeddingID: 7, VendorID: 42, Status: "visited"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, []string{"list"}, backend.calls)

	backend.calls = nil
	_, err = gw.Apply(ctx, "token", enums.CartActionRemoveFromCart, types.CartPayload{ItemID: &id, WeddingID: 7, VendorID: 42})
	require.NoError(t, err)
	assert.Equal(t, []string{"delete"}, backend.calls)
}

func TestApplyUnknownVendorIsNotFound(t *testing.T) {
	gw, _ := newGateway(t, &fakeBackend{}, signedIn, actionlog.NewMemoryLog(0))

	_, err := gw.Apply(context.Background(), "token", enums.CartActionRemoveFromCart, types.CartPayload{VendorID: 42, WeddingID: 7})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApplyRejectsBackwardTransitionLocally(t *testing.T) {
	backend := &fakeBackend{items: []types.CartItem{{ID: uuid.New(), WeddingID: 7, VendorID: 42, Status: enums.CartItemStatusBooked}}}
	gw, _ := newGateway(t, backend, signedIn, actionlog.NewMemoryLog(0))

	_, err := gw.Apply(context.Background(), "token", enums.CartActionUpdateCart, types.CartPayload{VendorID: 42, WeddingID: 7, Status: "visited"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, []string{"list"}, backend.calls)
}

func TestApplyTimesOut(t *testing.T) {
	backend := &fakeBackend{block: true}
	queue, err := actionqueue.NewManager(actionlog.NewMemoryLog(0), logger.Nop(), nil)
	require.NoError(t, err)
	gw, err := New(Params{
		Queue:      queue,
		Backend:    backend,
		Identity:   signedIn,
		Redirector: LoginRedirect{},
		Logger:     logger.Nop(),
		Timeout:    20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = gw.Apply(context.Background(), "token", enums.CartActionAddToCart, addPayload(42))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
