// Package mailer delivers outbound email through an SMTP relay. The transport
// is an opaque external service; this package only composes RFC 5322 messages
// and hands them off. Services depend on the Mailer interface so tests can
// capture sends in memory.
package mailer

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

// Message is one outbound email. HTML is optional; when set the message is
// sent as text/html, otherwise text/plain.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP sends mail through a single relay with PLAIN authentication.
type SMTP struct {
	addr     string // host:port
	host     string
	auth     smtp.Auth
	fromName string
	fromAddr string
}

// NewSMTP creates an SMTP mailer for the given relay.
func NewSMTP(host string, port int, username, password, fromName, fromAddr string) *SMTP {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTP{
		addr:     fmt.Sprintf("%s:%d", host, port),
		host:     host,
		auth:     auth,
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

var _ Mailer = (*SMTP)(nil)

// Send delivers msg through the relay. net/smtp has no context support; the
// ctx deadline is honored only up front, before dialing.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mailer: message has no recipients")
	}

	if err := smtp.SendMail(s.addr, s.auth, s.fromAddr, msg.To, s.render(msg)); err != nil {
		return fmt.Errorf("mailer: sending to %s: %w", strings.Join(msg.To, ", "), err)
	}
	return nil
}

func (s *SMTP) render(msg Message) []byte {
	var b strings.Builder

	from := s.fromAddr
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.fromName), s.fromAddr)
	}

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")

	body := msg.Text
	contentType := "text/plain"
	if msg.HTML != "" {
		body = msg.HTML
		contentType = "text/html"
	}
	fmt.Fprintf(&b, "Content-Type: %s; charset=utf-8\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(body)

	return []byte(b.String())
}
