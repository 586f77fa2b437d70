package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"cpcaisse/internal/platform/config"
)

// Mail is one outgoing HTML message.
type Mail struct {
	To       []string
	Subject  string
	HTML     string
	Priority bool
}

// SMTPMailer sends mails through the intranet relay.
type SMTPMailer struct {
	addr     string
	from     string
	envelope string
	auth     smtp.Auth
	now      func() time.Time
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid mail sender %q: %w", cfg.From, err)
	}
	m := &SMTPMailer{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from:     from.String(),
		envelope: from.Address,
		now:      time.Now,
		send:     smtp.SendMail,
	}
	if cfg.User != "" {
		m.auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return m, nil
}

// Send delivers mail. net/smtp has no context support, so ctx is only
// checked before the exchange starts.
func (m *SMTPMailer) Send(ctx context.Context, msg Mail) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.addr, m.auth, m.envelope, msg.To, m.build(msg)); err != nil {
		return fmt.Errorf("send mail %q: %w", msg.Subject, err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Mail) []byte {
	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k + ": " + v + "\r\n")
	}
	header("From", m.from)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	if msg.Priority {
		header("X-Priority", "1")
		header("Importance", "high")
	}
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTML)
	return buf.Bytes()
}

// LogMailer logs mails instead of sending them. It serves environments
// without an SMTP relay.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Mail) error {
	if len(msg.To) == 0 {
		return nil
	}
	m.logger.InfoContext(ctx, "mail not sent, no smtp relay configured",
		"to", msg.To,
		"subject", msg.Subject,
		"priority", msg.Priority,
	)
	return nil
}
