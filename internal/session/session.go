// Package session holds who is signed in, in which role, at which restaurant, and the
// cart they are building. A *Session is passed explicitly to everything that needs it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"swick/internal/api"
	"swick/internal/cart"
	"swick/internal/logger"
	"swick/internal/models"
	"swick/internal/realtime"
)

// Authenticator checks the stored token against the backend
type Authenticator interface {
	Login(ctx context.Context) (*api.LoginResult, error)
}

// Session is the signed-in user's context
type Session struct {
	caps   Capabilities
	creds  CredentialStore
	logger *logger.Logger
	now    func() time.Time

	// Cart is the order being built at the current restaurant
	Cart *cart.Cart

	mu           sync.RWMutex
	userID       int
	restaurantID *int
	nameSet      bool
}

// New creates a signed-out session for role
func New(role Role, creds CredentialStore, log *logger.Logger) (*Session, error) {
	caps, err := CapabilitiesFor(role)
	if err != nil {
		return nil, err
	}
	return &Session{
		caps:   caps,
		creds:  creds,
		logger: log,
		now:    time.Now,
		Cart:   cart.New(),
	}, nil
}

func (s *Session) Capabilities() Capabilities { return s.caps }

// Token returns the stored token. An expired JWT is cleared and reported as ErrNoToken.
// Opaque tokens are passed through and left for the backend to judge.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, err := s.creds.Get(ctx)
	if err != nil {
		return "", err
	}
	if s.expired(token) {
		s.logger.Info("token_expired", "Stored token expired, clearing it", "", nil)
		if err := s.creds.Clear(ctx); err != nil {
			return "", err
		}
		return "", ErrNoToken
	}
	return token, nil
}

func (s *Session) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now())
}

// SignIn stores a token obtained from the identity provider
func (s *Session) SignIn(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	return s.creds.Set(ctx, token)
}

// SignOut forgets the token, the user and the cart
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.userID = 0
	s.restaurantID = nil
	s.nameSet = false
	s.mu.Unlock()
	s.Cart.Clear()
	return s.creds.Clear(ctx)
}

// Restore validates the stored token with the backend and attaches the result.
// A token the backend rejects is cleared.
func (s *Session) Restore(ctx context.Context, auth Authenticator) (*api.LoginResult, error) {
	if _, err := s.Token(ctx); err != nil {
		return nil, err
	}
	res, err := auth.Login(ctx)
	var se *api.StatusError
	if errors.As(err, &se) {
		if clearErr := s.creds.Clear(ctx); clearErr != nil {
			return nil, clearErr
		}
		return nil, fmt.Errorf("stored token rejected: %w", err)
	}
	if err != nil {
		return nil, err
	}
	s.Attach(res)
	return res, nil
}

// Attach records the identity reported by the backend
func (s *Session) Attach(res *api.LoginResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = res.ID
	s.nameSet = res.NameSet
	s.restaurantID = nil
	if res.RestaurantID != nil {
		id := *res.RestaurantID
		s.restaurantID = &id
	}
}

func (s *Session) UserID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) NameSet() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nameSet
}

// RestaurantID reports the restaurant the session is attached to
func (s *Session) RestaurantID() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.restaurantID == nil {
		return 0, false
	}
	return *s.restaurantID, true
}

// EnterRestaurant attaches the session to a restaurant. Switching restaurants empties the cart.
func (s *Session) EnterRestaurant(restaurantID int) {
	s.mu.Lock()
	changed := s.restaurantID == nil || *s.restaurantID != restaurantID
	s.restaurantID = &restaurantID
	s.mu.Unlock()
	if changed {
		s.Cart.Clear()
	}
}

// LeaveRestaurant detaches the session and clears the cart
func (s *Session) LeaveRestaurant() {
	s.mu.Lock()
	s.restaurantID = nil
	s.mu.Unlock()
	s.Cart.Clear()
}

// HomeChannel is the realtime channel this session listens on
func (s *Session) HomeChannel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps.HomeChannel(s.userID, s.restaurantID)
}

// Listen subscribes n to the home channel. A server not yet attached to a restaurant
// waits on its private channel and moves to the restaurant channel on restaurant-added.
func (s *Session) Listen(ctx context.Context, n realtime.Notifier) error {
	if s.caps.Role() == RoleServer {
		if _, attached := s.RestaurantID(); !attached {
			n.Bind(models.EventRestaurantAdded, func(ev realtime.Event) {
				s.onRestaurantAdded(ctx, n, ev)
			})
		}
	}
	return n.Subscribe(ctx, s.HomeChannel())
}

func (s *Session) onRestaurantAdded(ctx context.Context, n realtime.Notifier, ev realtime.Event) {
	var msg models.RestaurantAddedMessage
	if err := ev.Unmarshal(&msg); err != nil {
		s.logger.Error("restaurant_added_invalid", "Failed to parse restaurant-added event", "", err, nil)
		return
	}
	s.EnterRestaurant(msg.RestaurantID)

	if err := n.Unsubscribe(); err != nil {
		s.logger.Error("realtime_rebind_failed", "Failed to leave server channel", "", err, nil)
	}
	channel := s.HomeChannel()
	if err := n.Subscribe(ctx, channel); err != nil {
		s.logger.Error("realtime_rebind_failed", "Failed to subscribe to restaurant channel", "", err, map[string]interface{}{
			"channel": channel,
		})
		return
	}
	s.logger.Info("restaurant_added", "Attached to restaurant", "", map[string]interface{}{
		"restaurant_id": msg.RestaurantID,
		"channel":       channel,
	})
}
