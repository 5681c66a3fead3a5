package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type EmailConfig struct {
	Host     string
	Port     int
	Sender   string
	Password string
	Receiver string
}

// EmailNotifier sends plain-text mail over SMTP, upgrading with STARTTLS when offered.
type EmailNotifier struct {
	cfg  EmailConfig
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
	now  func() time.Time
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	d := &net.Dialer{}
	return &EmailNotifier{cfg: cfg, dial: d.DialContext, now: time.Now}
}

// Enabled reports whether sender, password and receiver are all set.
func (e *EmailNotifier) Enabled() bool {
	return e.cfg.Sender != "" && e.cfg.Password != "" && e.cfg.Receiver != ""
}

// Notify is a no-op when the notifier is not configured.
func (e *EmailNotifier) Notify(ctx context.Context, subject, body string) error {
	if !e.Enabled() {
		return nil
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	conn, err := e.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("email dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("email handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
			return fmt.Errorf("email starttls: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, e.cfg.Host)); err != nil {
			return fmt.Errorf("email auth: %w", err)
		}
	}
	if err := c.Mail(e.cfg.Sender); err != nil {
		return fmt.Errorf("email mail from: %w", err)
	}
	if err := c.Rcpt(e.cfg.Receiver); err != nil {
		return fmt.Errorf("email rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("email data: %w", err)
	}
	if _, err := w.Write(buildMessage(e.cfg.Sender, e.cfg.Receiver, subject, body, e.now())); err != nil {
		w.Close()
		return fmt.Errorf("email write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email data close: %w", err)
	}
	return c.Quit()
}

func buildMessage(from, to, subject, body string, at time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
