package notification

import (
	"context"
	"fmt"
	"io"
	"sync"

	"swick/internal/logger"
	"swick/internal/models"
	"swick/internal/realtime"
	"swick/internal/session"
)

// Subscriber prints human-readable lines for the realtime events a session receives
type Subscriber struct {
	sess   *session.Session
	out    io.Writer
	logger *logger.Logger

	mu sync.Mutex
}

// NewSubscriber creates a notification subscriber writing to out
func NewSubscriber(sess *session.Session, out io.Writer, log *logger.Logger) *Subscriber {
	return &Subscriber{
		sess:   sess,
		out:    out,
		logger: log,
	}
}

// Start binds the events relevant to the session's role, subscribes to its home
// channel and blocks until ctx is done
func (s *Subscriber) Start(ctx context.Context, n realtime.Notifier) error {
	requestID := logger.GenerateRequestID()

	s.Bind(n)
	if err := s.sess.Listen(ctx, n); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("service_started", "Notification subscriber started", requestID, map[string]interface{}{
		"channel": s.sess.HomeChannel(),
		"role":    string(s.sess.Capabilities().Role()),
	})

	<-ctx.Done()

	s.logger.Info("graceful_shutdown", "Notification subscriber stopping", requestID, nil)
	if err := n.Unsubscribe(); err != nil {
		s.logger.Error("unsubscribe_failed", "Failed to unsubscribe", requestID, err, nil)
	}
	return nil
}

// Bind registers the display handlers on n
func (s *Subscriber) Bind(n realtime.Notifier) {
	n.Bind(models.EventOrderStatus, s.handleNotification)
	if s.sess.Capabilities().CanReceiveRequests() {
		n.Bind(models.EventOrderPlaced, s.handleNotification)
		n.Bind(models.EventRequestMade, s.handleNotification)
		n.Bind(models.EventRestaurantAdded, s.handleNotification)
	}
}

func (s *Subscriber) handleNotification(ev realtime.Event) {
	line, err := formatNotification(ev)
	if err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification", "", err, map[string]interface{}{
			"event":   ev.Name,
			"channel": ev.Channel,
		})
		return
	}

	s.mu.Lock()
	fmt.Fprintln(s.out, line)
	s.mu.Unlock()

	s.logger.Debug("notification_displayed", "Notification displayed to user", "", map[string]interface{}{
		"event":   ev.Name,
		"channel": ev.Channel,
	})
}

// formatNotification creates a human-readable line for ev
func formatNotification(ev realtime.Event) (string, error) {
	timestamp := ev.Timestamp.Local().Format("2006-01-02 15:04:05")

	switch ev.Name {
	case models.EventOrderStatus:
		var msg models.StatusUpdateMessage
		if err := ev.Unmarshal(&msg); err != nil {
			return "", err
		}
		switch msg.NewStatus {
		case models.StatusCooking:
			return fmt.Sprintf("[%s] Order %d is being prepared.", timestamp, msg.OrderID), nil
		case models.StatusSending:
			return fmt.Sprintf("[%s] Order %d is on its way to your table.", timestamp, msg.OrderID), nil
		case models.StatusCompleted:
			return fmt.Sprintf("[%s] Order %d has been completed. Enjoy your meal!", timestamp, msg.OrderID), nil
		default:
			return fmt.Sprintf("[%s] Order %d status changed from '%s' to '%s'.",
				timestamp, msg.OrderID, msg.OldStatus, msg.NewStatus), nil
		}

	case models.EventOrderPlaced:
		var msg models.OrderPlacedMessage
		if err := ev.Unmarshal(&msg); err != nil {
			return "", err
		}
		return fmt.Sprintf("[%s] New order %d at table %d.", timestamp, msg.OrderID, msg.Table), nil

	case models.EventRequestMade:
		var msg models.RequestMessage
		if err := ev.Unmarshal(&msg); err != nil {
			return "", err
		}
		return fmt.Sprintf("[%s] Table %d requested: %s.", timestamp, msg.Table, msg.Name), nil

	case models.EventRestaurantAdded:
		var msg models.RestaurantAddedMessage
		if err := ev.Unmarshal(&msg); err != nil {
			return "", err
		}
		return fmt.Sprintf("[%s] You have been added to restaurant %d.", timestamp, msg.RestaurantID), nil
	}
	return fmt.Sprintf("[%s] %s on %s", timestamp, ev.Name, ev.Channel), nil
}
