package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/angelmondragon/maison-storefront/internal/api"
	"github.com/angelmondragon/maison-storefront/internal/cart"
	"github.com/angelmondragon/maison-storefront/internal/fakeapi"
	"github.com/angelmondragon/maison-storefront/internal/session"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	fake    *fakeapi.Server
	store   *storage.Memory
	client  *api.Client
	sf      *Storefront
	logouts atomic.Int32
	logins  atomic.Int32
}

func newHarness(t *testing.T, shape fakeapi.Shape, opts ...api.Option) *harness {
	t.Helper()
	fake := fakeapi.New(fakeapi.Options{Shape: shape})
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	h := &harness{fake: fake, store: storage.NewMemory(), client: api.New(srv.URL, opts...)}
	h.sf = New(Options{API: h.client, Store: h.store})
	t.Cleanup(h.sf.Close)
	h.sf.Events().Subscribe(func(evt session.Event) {
		switch evt.Kind {
		case enums.SessionLoggedIn:
			h.logins.Add(1)
		case enums.SessionLoggedOut:
			h.logouts.Add(1)
		}
	})
	require.NoError(t, fake.AddAccount("ada", "ada@example.com", "hunter22", enums.RoleCustomer))
	return h
}

func (h *harness) login(t *testing.T) session.Session {
	t.Helper()
	sess, err := h.sf.Login(context.Background(), session.Credentials{Username: "ada", Password: "hunter22"})
	require.NoError(t, err)
	return sess
}

func (h *harness) hasKey(t *testing.T, key string) bool {
	t.Helper()
	_, ok, err := h.store.Get(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func product(id string, price string) cart.ProductSnapshot {
	return cart.ProductSnapshot{ID: id, Name: "watch " + id, Price: decimal.RequireFromString(price)}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code(), "error: %v", err)
}

func TestLoginMergesGuestCart(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()

	_, err := h.sf.AddToCart(ctx, product("1", "10250"), 1)
	require.NoError(t, err)
	_, err = h.sf.AddToCart(ctx, product("2", "8100"), 2)
	require.NoError(t, err)
	_, err = h.sf.AddToCart(ctx, product("3", "15100.50"), 3)
	require.NoError(t, err)
	_, err = h.sf.AddToWishlist(ctx, product("4", "10900"))
	require.NoError(t, err)

	var states []cart.State
	h.sf.States().Subscribe(func(s cart.State) { states = append(states, s) })

	sess := h.login(t)
	assert.True(t, sess.Authenticated())

	assert.Equal(t, map[string]int{"1": 1, "2": 2, "3": 3}, h.fake.CartOf("ada"))
	assert.Equal(t, []string{"4"}, h.fake.WishlistOf("ada"))
	assert.False(t, h.hasKey(t, storage.KeyGuestCart))
	assert.False(t, h.hasKey(t, storage.KeyGuestWishlist))
	assert.Equal(t, 3, h.fake.Calls("POST /cart"))
	assert.EqualValues(t, 1, h.logins.Load())

	require.NotEmpty(t, states)
	last := states[len(states)-1]
	assert.Equal(t, enums.CartModeAccount, last.Mode)
	assert.Equal(t, 6, last.Cart.ItemCount)
	assert.Equal(t, 1, last.Wishlist.Count)

	mode, err := h.sf.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.CartModeAccount, mode)
}

func TestRegisterAfterGuestShopping(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeFlat)
	ctx := context.Background()

	_, err := h.sf.AddToCart(ctx, product("1", "10250"), 2)
	require.NoError(t, err)
	_, err = h.sf.AddToCart(ctx, product("2", "8100"), 1)
	require.NoError(t, err)

	sess, err := h.sf.Register(ctx, session.Registration{
		Username: "grace",
		Email:    "grace@example.com",
		Password: "secret1",
		Role:     enums.RoleSeller,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleSeller, sess.User.Role)

	assert.Equal(t, map[string]int{"1": 2, "2": 1}, h.fake.CartOf("grace"))
	assert.False(t, h.hasKey(t, storage.KeyGuestCart))
	assert.False(t, h.hasKey(t, storage.KeyGuestWishlist))
	assert.Equal(t, session.SellerHomePath, h.sf.RedirectPath(ctx))

	c, err := h.sf.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, c.ItemCount)
	assert.True(t, decimal.RequireFromString("28600").Equal(c.Subtotal), c.Subtotal.String())
}

func TestLogoutEndsSessionAndEmptiesState(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()
	h.login(t)

	_, err := h.sf.AddToCart(ctx, product("5", "42500"), 1)
	require.NoError(t, err)

	h.sf.Logout(ctx)

	user, err := h.sf.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.EqualValues(t, 1, h.logouts.Load())

	c, err := h.sf.Cart(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
	w, err := h.sf.Wishlist(ctx)
	require.NoError(t, err)
	assert.Empty(t, w.Lines)

	items, wishes, err := h.sf.BadgeCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, items)
	assert.Zero(t, wishes)
	assert.False(t, h.hasKey(t, storage.KeyAuthToken))
	assert.False(t, h.hasKey(t, storage.KeyAuthUser))
}

func TestAuthenticatedQuantityAboveCapIsRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()
	h.login(t)

	c, err := h.sf.AddToCart(ctx, product("1", "10250"), 2)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	lineID := c.Lines[0].LineID

	got, err := h.sf.UpdateQuantity(ctx, lineID, 15)
	requireCode(t, err, pkgerrors.CodeQuantityExceeded)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, map[string]int{"1": 2}, h.fake.CartOf("ada"))
	assert.Zero(t, h.fake.Calls("PUT /cart/"+lineID))

	got, err = h.sf.UpdateQuantity(ctx, lineID, 0)
	require.NoError(t, err)
	assert.Empty(t, got.Lines)
	assert.Empty(t, h.fake.CartOf("ada"))
}

func TestAddOverflowingMergedLineAfterLogin(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()

	_, err := h.sf.AddToCart(ctx, product("1", "10250"), 8)
	require.NoError(t, err)
	h.login(t)
	require.Equal(t, map[string]int{"1": 8}, h.fake.CartOf("ada"))

	got, err := h.sf.AddToCart(ctx, product("1", "10250"), 5)
	requireCode(t, err, pkgerrors.CodeQuantityExceeded)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 8, got.Lines[0].Quantity)
	assert.Equal(t, 1, h.fake.Calls("POST /cart"))
	assert.Equal(t, map[string]int{"1": 8}, h.fake.CartOf("ada"))
}

func TestSwitchingAccountsDropsPreviousCart(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()
	require.NoError(t, h.fake.AddAccount("bob", "bob@example.com", "hunter33", enums.RoleCustomer))

	h.login(t)
	_, err := h.sf.AddToCart(ctx, product("1", "10250"), 9)
	require.NoError(t, err)

	_, err = h.sf.Login(ctx, session.Credentials{Username: "bob", Password: "hunter33"})
	require.NoError(t, err)

	got, err := h.sf.AddToCart(ctx, product("1", "10250"), 5)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 5, got.Lines[0].Quantity)
	assert.Equal(t, map[string]int{"1": 5}, h.fake.CartOf("bob"))
	assert.Equal(t, map[string]int{"1": 9}, h.fake.CartOf("ada"))
}

func TestUnauthorizedCartFetchLogsOutOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()
	h.login(t)

	var states []cart.State
	h.sf.States().Subscribe(func(s cart.State) { states = append(states, s) })

	h.fake.RevokeTokens()
	_, err := h.sf.Cart(ctx)
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	assert.EqualValues(t, 1, h.logouts.Load())
	assert.False(t, h.hasKey(t, storage.KeyAuthToken))
	require.NotEmpty(t, states)
	assert.Equal(t, enums.CartModeGuest, states[len(states)-1].Mode)

	user, err := h.sf.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.EqualValues(t, 1, h.logouts.Load())
}

func TestConcurrentUnauthorizedFetchesLogOutOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()
	h.login(t)
	h.fake.RevokeTokens()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.sf.Cart(ctx)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, h.logouts.Load())
	assert.False(t, h.hasKey(t, storage.KeyAuthToken))
}

func TestAddAfterRevocationFallsBackToGuest(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()
	h.login(t)
	h.fake.RevokeTokens()

	c, err := h.sf.AddToCart(ctx, product("2", "8100"), 1)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.True(t, strings.HasPrefix(c.Lines[0].LineID, "guest-"))
	assert.EqualValues(t, 1, h.logouts.Load())
	assert.True(t, h.hasKey(t, storage.KeyGuestCart))

	mode, err := h.sf.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.CartModeGuest, mode)
}

func TestRejectedTokenDuringMergeRollsBackLogin(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()

	_, err := h.sf.AddToCart(ctx, product("1", "10250"), 1)
	require.NoError(t, err)
	h.fake.FailNext("POST /cart", http.StatusUnauthorized, "token revoked")

	_, err = h.sf.Login(ctx, session.Credentials{Username: "ada", Password: "hunter22"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	assert.False(t, h.hasKey(t, storage.KeyAuthToken))
	assert.True(t, h.hasKey(t, storage.KeyGuestCart))
	assert.Zero(t, h.logins.Load())

	c, err := h.sf.Cart(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
}

// offlineTransport fails every cart and wishlist request before it is sent.
type offlineTransport struct {
	next http.RoundTripper
}

func (o offlineTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if strings.HasPrefix(r.URL.Path, "/cart") || strings.HasPrefix(r.URL.Path, "/wishlist") {
		return nil, errors.New("dial tcp: network is unreachable")
	}
	return o.next.RoundTrip(r)
}

func TestUnreachableMergeKeepsGuestData(t *testing.T) {
	t.Parallel()
	hc := &http.Client{Transport: offlineTransport{next: http.DefaultTransport}}
	h := newHarness(t, fakeapi.ShapeNested, api.WithHTTPClient(hc))
	ctx := context.Background()

	_, err := h.sf.AddToCart(ctx, product("1", "10250"), 2)
	require.NoError(t, err)
	_, err = h.sf.AddToWishlist(ctx, product("3", "15100.50"))
	require.NoError(t, err)

	sess := h.login(t)
	assert.True(t, sess.Authenticated())

	assert.True(t, h.hasKey(t, storage.KeyGuestCart))
	assert.True(t, h.hasKey(t, storage.KeyGuestWishlist))
	assert.Empty(t, h.fake.CartOf("ada"))
}

func TestToggleWishlistAsGuest(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()

	wished, list, err := h.sf.ToggleWishlist(ctx, product("4", "10900"))
	require.NoError(t, err)
	assert.True(t, wished)
	assert.Equal(t, 1, list.Count)

	wished, list, err = h.sf.ToggleWishlist(ctx, product("4", "10900"))
	require.NoError(t, err)
	assert.False(t, wished)
	assert.Zero(t, list.Count)

	_, err = h.sf.RemoveFromWishlist(ctx, "4")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAccountWishlistAndBadge(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeFlat)
	ctx := context.Background()
	h.login(t)

	_, err := h.sf.AddToCart(ctx, product("1", "10250"), 3)
	require.NoError(t, err)
	wished, _, err := h.sf.ToggleWishlist(ctx, product("2", "8100"))
	require.NoError(t, err)
	assert.True(t, wished)

	_, err = h.sf.AddToWishlist(ctx, product("2", "8100"))
	requireCode(t, err, pkgerrors.CodeAlreadyExists)

	items, wishes, err := h.sf.BadgeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, items)
	assert.Equal(t, 1, wishes)

	wished, list, err := h.sf.ToggleWishlist(ctx, product("2", "8100"))
	require.NoError(t, err)
	assert.False(t, wished)
	assert.Empty(t, list.Lines)
	assert.Empty(t, h.fake.WishlistOf("ada"))
}

func TestInitRestoresPersistedSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()
	h.login(t)
	_, err := h.sf.AddToCart(ctx, product("3", "15100.50"), 1)
	require.NoError(t, err)

	// a second storefront over the same store, as after a restart
	restarted := New(Options{API: h.client, Store: h.store})
	t.Cleanup(restarted.Close)

	state, user, err := restarted.Init(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, enums.CartModeAccount, state.Mode)
	assert.Equal(t, 1, state.Cart.ItemCount)
	assert.Zero(t, h.fake.Calls("GET /auth/me"))
}

func TestInitAsGuest(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()
	_, err := h.sf.AddToCart(ctx, product("1", "10250"), 2)
	require.NoError(t, err)

	var published int
	h.sf.States().Subscribe(func(cart.State) { published++ })

	state, user, err := h.sf.Init(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, enums.CartModeGuest, state.Mode)
	assert.Equal(t, 2, state.Cart.ItemCount)
	assert.Equal(t, 1, published)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()

	_, err := h.sf.RequireRole(ctx, enums.RoleCustomer)
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	h.login(t)
	user, err := h.sf.RequireRole(ctx, enums.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, enums.RoleCustomer, h.sf.Role(ctx))

	_, err = h.sf.RequireRole(ctx, enums.RoleSeller)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestConcurrentGuestAddsSerializePerProduct(t *testing.T) {
	t.Parallel()
	h := newHarness(t, fakeapi.ShapeNested)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.sf.AddToCart(ctx, product("1", "10250"), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := h.sf.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 10, c.Lines[0].Quantity)

	_, err = h.sf.AddToCart(ctx, product("1", "10250"), 1)
	requireCode(t, err, pkgerrors.CodeQuantityExceeded)
	assert.Zero(t, h.sf.locks.size())
}
