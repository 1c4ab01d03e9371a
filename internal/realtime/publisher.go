package realtime

import (
	"context"

	"swick/internal/messaging"
)

// Publisher emits events onto channels
type Publisher struct {
	pub *messaging.Publisher
}

func NewPublisher(pub *messaging.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// Publish sends the named event with data to channel
func (p *Publisher) Publish(ctx context.Context, channel, event string, data interface{}) error {
	ev, err := NewEvent(channel, event, data)
	if err != nil {
		return err
	}
	return p.pub.Publish(ctx, channel, ev)
}
