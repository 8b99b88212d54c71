/*
Package mailer sends outgoing email over SMTP.

PURPOSE:
  Transport-only implementation of the leave.EmailGateway interface.
  Subjects and bodies are rendered by the caller; this package speaks
  SMTP with STARTTLS and optional PLAIN auth.

  An unconfigured mailer (empty host) degrades to a no-op so local
  development never needs a mail server.

SEE ALSO:
  - leave/emails.go: message rendering
*/
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/nimbus-hr/leave-engine/leave"
)

// Config carries the SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// Noop discards every message. Used when no SMTP host is configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, to, cc, subject, htmlBody string) error {
	return nil
}

// SMTP is the production mailer.
type SMTP struct {
	cfg Config
}

// New returns an SMTP mailer, or a Noop when cfg.Host is empty.
func New(cfg Config) leave.EmailGateway {
	if cfg.Host == "" {
		return Noop{}
	}
	return &SMTP{cfg: cfg}
}

func (s *SMTP) Send(ctx context.Context, to, cc, subject, htmlBody string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	msg := buildMessage(s.cfg.From, to, cc, subject, htmlBody)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.UseTLS {
		tlsConfig := &tls.Config{ServerName: s.cfg.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			return err
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range recipients(to, cc) {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func recipients(to, cc string) []string {
	out := []string{to}
	for _, addr := range strings.Split(cc, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func buildMessage(from, to, cc, subject, htmlBody string) []byte {
	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
	}
	if cc != "" {
		headers = append(headers, fmt.Sprintf("Cc: %s", cc))
	}
	headers = append(headers,
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
	)
	return []byte(strings.Join(headers, "\r\n") + "\r\n" + htmlBody)
}
