package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"call-assistant/internal/metrics"
	"call-assistant/pkg/logger"
)

// SMTPMailer sends plain-text invite emails.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	m := &SMTPMailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
		send: smtp.SendMail,
	}
	if user != "" {
		m.auth = smtp.PlainAuth("", user, password, host)
	}
	return m
}

func (m *SMTPMailer) SendInvite(ctx context.Context, to, role, registerURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := inviteMessage(m.from, to, role, registerURL)
	if err := m.send(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues("email", "failed").Inc()
		return fmt.Errorf("send invite email: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues("email", "sent").Inc()
	return nil
}

func inviteMessage(from, to, role, registerURL string) []byte {
	roleName := strings.ReplaceAll(role, "_", " ")
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: You're invited to Call Assistant\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "You have been invited to join Call Assistant as %s.\r\n\r\n", roleName)
	fmt.Fprintf(&b, "Create your account here:\r\n%s\r\n\r\n", registerURL)
	b.WriteString("This invitation expires in 7 days.\r\n")
	return []byte(b.String())
}

// LogMailer stands in for SMTP in local development and logs the link.
type LogMailer struct{}

func (LogMailer) SendInvite(ctx context.Context, to, role, registerURL string) error {
	logger.From(ctx).Info("invite email (smtp disabled)", "to", to, "role", role, "register_url", registerURL)
	return nil
}

// Mailer is satisfied by invites.Mailer implementations.
type Mailer interface {
	SendInvite(ctx context.Context, to, role, registerURL string) error
}

// AsyncMailer hands sends to the pool so invite creation never waits on
// SMTP. Failures are logged by the worker.
type AsyncMailer struct {
	next Mailer
	pool Submitter
}

func NewAsyncMailer(next Mailer, pool Submitter) *AsyncMailer {
	return &AsyncMailer{next: next, pool: pool}
}

func (m *AsyncMailer) SendInvite(ctx context.Context, to, role, registerURL string) error {
	bg := context.WithoutCancel(ctx)
	return m.pool.Submit(func() {
		if err := m.next.SendInvite(bg, to, role, registerURL); err != nil {
			logger.From(bg).Warn("invite email failed", "to", to, "err", err)
		}
	})
}
