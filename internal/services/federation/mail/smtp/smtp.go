// Package smtp delivers invite email over a plain SMTP relay.
package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mvoicu/dansport/internal/services/federation/mail"
)

// Sender sends mail through one SMTP relay address.
type Sender struct {
	addr string
	from string
	send func(addr, from string, to []string, msg []byte) error
}

// New creates an SMTP sender for the relay at addr with the given
// envelope sender.
func New(addr, from string) (*Sender, error) {
	addr = strings.TrimSpace(addr)
	from = strings.TrimSpace(from)
	if addr == "" {
		return nil, fmt.Errorf("smtp address is required")
	}
	if from == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}
	return &Sender{
		addr: addr,
		from: from,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}, nil
}

// Send delivers one plain-text message.
func (s *Sender) Send(ctx context.Context, message mail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recipients := make([]string, 0, len(message.To))
	for _, to := range message.To {
		to = strings.TrimSpace(to)
		if to != "" {
			recipients = append(recipients, to)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	subject := strings.TrimSpace(message.Subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "From: %s\r\n", s.from)
	fmt.Fprintf(&builder, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&builder, "Subject: %s\r\n", subject)
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(message.Body)

	if err := s.send(s.addr, s.from, recipients, []byte(builder.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
