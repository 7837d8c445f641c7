package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// EmailChannel sends alert messages over SMTP as HTML mail.
type EmailChannel struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// EmailOption configures the email channel.
type EmailOption func(*EmailChannel)

// WithSendFunc overrides the SMTP send function. Used in tests.
func WithSendFunc(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) EmailOption {
	return func(ch *EmailChannel) {
		if send != nil {
			ch.send = send
		}
	}
}

// NewEmailChannel constructs an SMTP channel. Username may be empty for
// unauthenticated relays.
func NewEmailChannel(host string, port int, username, password, from string, opts ...EmailOption) (*EmailChannel, error) {
	if host == "" {
		return nil, errors.New("email channel: empty host")
	}
	if from == "" {
		return nil, errors.New("email channel: empty sender")
	}
	if port <= 0 {
		port = 587
	}
	channel := &EmailChannel{
		addr: net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		from: from,
		send: smtp.SendMail,
	}
	if username != "" {
		channel.auth = smtp.PlainAuth("", username, password, host)
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel, nil
}

// Send delivers the message to all recipients in one SMTP transaction.
func (ch *EmailChannel) Send(ctx context.Context, msg Message) error {
	if ch == nil {
		return errors.New("email channel: nil")
	}
	if len(msg.Recipients) == 0 {
		return errors.New("email channel: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", ch.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)

	return ch.send(ch.addr, ch.auth, ch.from, msg.Recipients, []byte(b.String()))
}
