// Package mail defines the outbound email contract for event invites.
package mail

import "context"

// Message is one outbound plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers outbound email.
type Sender interface {
	Send(ctx context.Context, message Message) error
}
