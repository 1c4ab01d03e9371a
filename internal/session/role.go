package session

import (
	"fmt"
	"strings"

	"swick/internal/realtime"
)

// Role selects the app variant a session runs as
type Role string

const (
	RoleCustomer Role = "customer"
	RoleServer   Role = "server"
)

// ParseRole accepts the config spelling of a role
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleServer:
		return RoleServer, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Capabilities answers what the signed-in role may do
type Capabilities interface {
	Role() Role
	CanPlaceOrder() bool
	CanSendTip() bool
	CanReceiveRequests() bool
	// HomeChannel is the realtime channel to listen on. restaurantID is nil while a
	// server is not attached to a restaurant.
	HomeChannel(userID int, restaurantID *int) string
}

// CapabilitiesFor returns the capability set of role
func CapabilitiesFor(role Role) (Capabilities, error) {
	switch role {
	case RoleCustomer:
		return customer{}, nil
	case RoleServer:
		return server{}, nil
	}
	return nil, fmt.Errorf("unknown role %q", role)
}

type customer struct{}

func (customer) Role() Role               { return RoleCustomer }
func (customer) CanPlaceOrder() bool      { return true }
func (customer) CanSendTip() bool         { return true }
func (customer) CanReceiveRequests() bool { return false }

func (customer) HomeChannel(userID int, _ *int) string {
	return realtime.CustomerChannel(userID)
}

type server struct{}

func (server) Role() Role               { return RoleServer }
func (server) CanPlaceOrder() bool      { return false }
func (server) CanSendTip() bool         { return false }
func (server) CanReceiveRequests() bool { return true }

func (server) HomeChannel(userID int, restaurantID *int) string {
	if restaurantID == nil {
		return realtime.ServerChannel(userID)
	}
	return realtime.RestaurantChannel(*restaurantID)
}
