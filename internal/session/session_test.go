package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swick/internal/api"
	"swick/internal/logger"
	"swick/internal/models"
	"swick/internal/realtime"
)

func newSession(t *testing.T, role Role, token string) *Session {
	t.Helper()
	s, err := New(role, NewMemoryStore(token), logger.Discard())
	require.NoError(t, err)
	return s
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestCapabilities(t *testing.T) {
	c, err := CapabilitiesFor(RoleCustomer)
	require.NoError(t, err)
	assert.True(t, c.CanPlaceOrder())
	assert.True(t, c.CanSendTip())
	assert.Equal(t, "private-customer-4", c.HomeChannel(4, nil))

	s, err := CapabilitiesFor(RoleServer)
	require.NoError(t, err)
	assert.False(t, s.CanPlaceOrder())
	assert.True(t, s.CanReceiveRequests())
	assert.Equal(t, "private-server-4", s.HomeChannel(4, nil))
	rid := 9
	assert.Equal(t, "private-restaurant-9", s.HomeChannel(4, &rid))

	_, err = ParseRole("manager")
	assert.Error(t, err)
	r, err := ParseRole(" Server ")
	require.NoError(t, err)
	assert.Equal(t, RoleServer, r)
}

func TestToken(t *testing.T) {
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		_, err := newSession(t, RoleCustomer, "").Token(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("opaque token passes through", func(t *testing.T) {
		tok, err := newSession(t, RoleCustomer, "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b").Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", tok)
	})

	t.Run("live jwt", func(t *testing.T) {
		live := signed(t, time.Now().Add(time.Hour))
		tok, err := newSession(t, RoleCustomer, live).Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, live, tok)
	})

	t.Run("expired jwt is cleared", func(t *testing.T) {
		store := NewMemoryStore(signed(t, time.Now().Add(-time.Minute)))
		s, err := New(RoleCustomer, store, logger.Discard())
		require.NoError(t, err)

		_, err = s.Token(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
		_, err = store.Get(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})
}

type fakeAuth struct {
	res *api.LoginResult
	err error
}

func (f fakeAuth) Login(context.Context) (*api.LoginResult, error) { return f.res, f.err }

func TestRestore(t *testing.T) {
	ctx := context.Background()
	rid := 3

	s := newSession(t, RoleServer, "tok")
	res, err := s.Restore(ctx, fakeAuth{res: &api.LoginResult{ID: 11, RestaurantID: &rid, NameSet: true}})
	require.NoError(t, err)
	assert.Equal(t, 11, res.ID)
	assert.Equal(t, 11, s.UserID())
	assert.True(t, s.NameSet())
	id, ok := s.RestaurantID()
	assert.True(t, ok)
	assert.Equal(t, 3, id)
	assert.Equal(t, "private-restaurant-3", s.HomeChannel())

	rejected := newSession(t, RoleCustomer, "tok")
	_, err = rejected.Restore(ctx, fakeAuth{err: &api.StatusError{Status: "error", Message: "Invalid token"}})
	assert.Error(t, err)
	_, err = rejected.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	offline := newSession(t, RoleCustomer, "tok")
	_, err = offline.Restore(ctx, fakeAuth{err: api.ErrNetwork})
	assert.ErrorIs(t, err, api.ErrNetwork)
	tok, err := offline.Token(ctx)
	require.NoError(t, err, "a network failure must not discard the token")
	assert.Equal(t, "tok", tok)
}

func meal() models.CartItem {
	return models.NewCartItem(models.Meal{ID: 1, Name: "Soup", Price: decimal.RequireFromString("4.00")}, 1, nil)
}

func TestRestaurantMembershipClearsCart(t *testing.T) {
	s := newSession(t, RoleCustomer, "tok")
	s.EnterRestaurant(1)
	require.NoError(t, s.Cart.Add(meal()))

	s.EnterRestaurant(1)
	assert.Equal(t, 1, s.Cart.Len(), "re-entering the same restaurant keeps the cart")

	s.EnterRestaurant(2)
	assert.True(t, s.Cart.IsEmpty())

	require.NoError(t, s.Cart.Add(meal()))
	s.LeaveRestaurant()
	assert.True(t, s.Cart.IsEmpty())
	_, ok := s.RestaurantID()
	assert.False(t, ok)
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, RoleCustomer, "tok")
	s.Attach(&api.LoginResult{ID: 5})
	require.NoError(t, s.Cart.Add(meal()))

	require.NoError(t, s.SignOut(ctx))
	assert.Equal(t, 0, s.UserID())
	assert.True(t, s.Cart.IsEmpty())
	_, err := s.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	assert.Error(t, s.SignIn(ctx, ""))
	require.NoError(t, s.SignIn(ctx, "new"))
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", tok)
}

type fakeNotifier struct {
	router       *realtime.Router
	subscribed   []string
	unsubscribes int
	failWith     error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{router: realtime.NewRouter(nil)}
}

func (f *fakeNotifier) Subscribe(_ context.Context, channel string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.subscribed = append(f.subscribed, channel)
	return nil
}

func (f *fakeNotifier) Unsubscribe() error {
	f.unsubscribes++
	return nil
}

func (f *fakeNotifier) Bind(event string, h realtime.Handler) { f.router.Bind(event, h) }

func TestListen_CustomerChannel(t *testing.T) {
	s := newSession(t, RoleCustomer, "tok")
	s.Attach(&api.LoginResult{ID: 8})
	n := newFakeNotifier()

	require.NoError(t, s.Listen(context.Background(), n))
	assert.Equal(t, []string{"private-customer-8"}, n.subscribed)
	assert.Equal(t, 0, n.router.Dispatch(realtime.Event{Name: models.EventRestaurantAdded}))
}

func TestListen_ServerRebindsOnRestaurantAdded(t *testing.T) {
	s := newSession(t, RoleServer, "tok")
	s.Attach(&api.LoginResult{ID: 2})
	n := newFakeNotifier()

	require.NoError(t, s.Listen(context.Background(), n))
	assert.Equal(t, []string{"private-server-2"}, n.subscribed)

	ev, err := realtime.NewEvent("private-server-2", models.EventRestaurantAdded, models.RestaurantAddedMessage{RestaurantID: 6})
	require.NoError(t, err)
	n.router.Dispatch(ev)

	assert.Equal(t, 1, n.unsubscribes)
	assert.Equal(t, []string{"private-server-2", "private-restaurant-6"}, n.subscribed)
	id, ok := s.RestaurantID()
	assert.True(t, ok)
	assert.Equal(t, 6, id)
}

func TestListen_SubscribeError(t *testing.T) {
	s := newSession(t, RoleCustomer, "tok")
	n := newFakeNotifier()
	n.failWith = errors.New("broker down")
	assert.Error(t, s.Listen(context.Background(), n))
}
