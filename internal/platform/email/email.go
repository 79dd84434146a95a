package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"leaveledger/internal/domain/notifications"
	"leaveledger/internal/platform/config"
)

const dialTimeout = 10 * time.Second

// Settings is the SMTP relay leave notifications are sent through.
type Settings struct {
	Host     string
	Port     int
	User     string
	Password string
	StartTLS bool
}

func (s Settings) addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, from, to, subject, body string) error {
	slog.Debug("email disabled, dropping message", "to", to, "subject", subject)
	return nil
}

type smtpMailer struct {
	settings Settings
	now      func() time.Time
}

// New returns the SMTP mailer, or a mailer that drops messages when email is
// disabled or no relay is configured.
func New(cfg config.Config) notifications.Mailer {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopMailer{}
	}
	return &smtpMailer{
		settings: Settings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			StartTLS: cfg.SMTPUseTLS,
		},
		now: time.Now,
	}
}

func (m *smtpMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("sender %q: %w", from, err)
	}
	recipient, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("recipient %q: %w", to, err)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.settings.addr())
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.settings.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := m.authenticate(client); err != nil {
		return err
	}
	msg := buildMessage(sender, recipient, subject, body, m.now())
	if err := deliver(client, sender.Address, recipient.Address, msg); err != nil {
		return err
	}
	return client.Quit()
}

func (m *smtpMailer) authenticate(client *smtp.Client) error {
	if m.settings.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: m.settings.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.settings.User == "" {
		return nil
	}
	if err := client.Auth(smtp.PlainAuth("", m.settings.User, m.settings.Password, m.settings.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	return nil
}

func deliver(client *smtp.Client, from, to string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}

func buildMessage(from, to *mail.Address, subject, body string, sent time.Time) []byte {
	domain := "localhost"
	if at := strings.LastIndex(from.Address, "@"); at >= 0 && at < len(from.Address)-1 {
		domain = from.Address[at+1:]
	}
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name + ": " + value + "\r\n")
	}
	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", sanitizeHeader(subject)))
	header("Date", sent.Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@"+domain+">")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
