// Package realtime delivers per-channel push events (order status, new orders, table
// requests) to listeners. Events travel over a RabbitMQ topic exchange routed by
// channel name.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event is the envelope published on a channel
type Event struct {
	Name      string          `json:"event"`
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent wraps data in an envelope for channel
func NewEvent(channel, name string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}
	return Event{
		Name:      name,
		Channel:   channel,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode parses an envelope. routingKey fills the channel when the publisher left it out.
func Decode(routingKey string, body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to parse event: %w", err)
	}
	if ev.Name == "" {
		return Event{}, errors.New("event name is required")
	}
	if ev.Channel == "" {
		ev.Channel = routingKey
	}
	return ev, nil
}

// Unmarshal decodes the event payload into v
func (e Event) Unmarshal(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.Name)
	}
	return json.Unmarshal(e.Data, v)
}

func CustomerChannel(userID int) string { return fmt.Sprintf("private-customer-%d", userID) }

func RestaurantChannel(restaurantID int) string {
	return fmt.Sprintf("private-restaurant-%d", restaurantID)
}

// ServerChannel is where a server without a restaurant waits for restaurant-added
func ServerChannel(userID int) string { return fmt.Sprintf("private-server-%d", userID) }
