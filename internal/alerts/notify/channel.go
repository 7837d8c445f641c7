package notify

import "context"

// Message is one outbound alert notification.
type Message struct {
	Recipients []string
	Subject    string
	HTMLBody   string
}

// Channel delivers a rendered message. Implementations do not retry;
// the next scheduled run re-evaluates and re-sends if still needed.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// MultiChannel fans a message out to several channels. The first error
// is returned after every channel has been attempted.
type MultiChannel struct {
	channels []Channel
}

// NewMultiChannel constructs a MultiChannel.
func NewMultiChannel(channels ...Channel) *MultiChannel {
	return &MultiChannel{channels: channels}
}

// Send forwards the message to all channels.
func (m *MultiChannel) Send(ctx context.Context, msg Message) error {
	if m == nil {
		return nil
	}
	var first error
	for _, channel := range m.channels {
		if channel == nil {
			continue
		}
		if err := channel.Send(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
