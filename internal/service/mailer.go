package service

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"log"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mansoorceksport/storeit/internal/config"
)

const codeEmailTemplate = `<p>Hi %s,</p>
<p>Your StoreIt verification code is:</p>
<h2 style="letter-spacing:4px">%s</h2>
<p>The code expires shortly. If you didn't request it, you can ignore this email.</p>`

// defaultSMTPTimeout bounds a whole delivery when the caller sets no earlier deadline
const defaultSMTPTimeout = 15 * time.Second

// SMTPMailer delivers one-time codes over SMTP. Port 465 uses implicit TLS,
// any other port upgrades with STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, timeout: defaultSMTPTimeout}
}

// SendCode emails a verification code. The delivery is abandoned when ctx ends.
func (m *SMTPMailer) SendCode(ctx context.Context, to string, name string, code string) error {
	if name == "" {
		name = to
	}
	msg := m.buildMessage(to, "Your StoreIt verification code", fmt.Sprintf(codeEmailTemplate, html.EscapeString(name), code))

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to dial smtp: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := m.deliver(conn, to, msg); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("failed to send email: %w", ctx.Err())
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return fmt.Errorf("failed to send email: %w", context.DeadlineExceeded)
		}
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if m.cfg.Port == 465 {
		return tls.Client(conn, &tls.Config{ServerName: m.cfg.Host}), nil
	}
	return conn, nil
}

// deliver runs the SMTP conversation. The caller owns conn and closes it.
func (m *SMTPMailer) deliver(conn net.Conn, to string, msg []byte) error {
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if m.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("starttls failed: %w", err)
			}
		}
	}
	if m.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errors.New("smtp server does not support AUTH")
		}
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *SMTPMailer) buildMessage(to, subject, body string) []byte {
	encodedSubject := fmt.Sprintf("=?UTF-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	fmt.Fprintf(&b, "Subject: %s\r\n", encodedSubject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogMailer prints codes to the server log. Used when SMTP is not configured.
type LogMailer struct{}

// SendCode logs the code instead of sending it
func (LogMailer) SendCode(ctx context.Context, to string, name string, code string) error {
	log.Printf("✉️  Verification code for %s: %s", to, code)
	return nil
}
