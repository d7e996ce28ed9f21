// Package smtp implements a Transport that relays messages to an SMTP server.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/shineum/smtp-post/internal/smtppost"
)

// defaultTimeout bounds a submission when the caller's context has no
// deadline.
const defaultTimeout = 30 * time.Second

// ErrAuthUnsupported is returned when credentials are configured but the
// server does not advertise AUTH.
var ErrAuthUnsupported = errors.New("server does not support AUTH")

// Config holds the relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// HELO is the name announced in EHLO. Empty uses "localhost".
	HELO string

	// Timeout bounds one submission. Zero selects defaultTimeout.
	Timeout time.Duration

	// StartTLS upgrades the connection when the server offers it.
	StartTLS bool

	// TLSConfig is used for STARTTLS. Nil verifies against Host.
	TLSConfig *tls.Config
}

// Transport submits messages over a fresh SMTP connection per send.
type Transport struct {
	cfg    Config
	dialer net.Dialer
}

// New creates a Transport. Host is required.
func New(cfg Config) (*Transport, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Transport{cfg: cfg}, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "smtp"
}

// Addr returns the host:port the transport connects to.
func (t *Transport) Addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

// Send opens a connection, submits data for env and quits. A timeout or a
// cancelled ctx aborts the connection and the returned error wraps the
// context error.
func (t *Transport) Send(ctx context.Context, env *smtppost.Envelope, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	conn, err := t.dialer.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return contextError(ctx, fmt.Errorf("failed to connect to %s: %w", t.Addr(), err))
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	slog.Debug("smtp connection opened",
		"addr", t.Addr(),
		"from", env.From(),
		"recipients", len(env.Recipients),
	)

	if err := t.submit(conn, env, data); err != nil {
		conn.Close()
		return contextError(ctx, err)
	}

	slog.Debug("smtp message accepted",
		"addr", t.Addr(),
		"from", env.From(),
		"size", len(data),
	)
	return nil
}

func (t *Transport) submit(conn net.Conn, env *smtppost.Envelope, data []byte) error {
	c, err := gosmtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to read greeting: %w", err)
	}
	defer c.Close()
	c.CommandTimeout = t.cfg.Timeout
	c.SubmissionTimeout = t.cfg.Timeout

	helo := t.cfg.HELO
	if helo == "" {
		helo = "localhost"
	}
	if err := c.Hello(helo); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if t.cfg.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			tlsCfg := t.cfg.TLSConfig
			if tlsCfg == nil {
				tlsCfg = &tls.Config{ServerName: t.cfg.Host}
			}
			if err := c.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if t.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return ErrAuthUnsupported
		}
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := c.Mail(env.From(), nil); err != nil {
		return fmt.Errorf("MAIL FROM:<%s> rejected: %w", env.From(), err)
	}
	for _, rcpt := range env.To() {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO:<%s> rejected: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	if err := c.Quit(); err != nil {
		slog.Debug("smtp QUIT failed", "error", err)
	}
	return nil
}

// contextError attaches the context error to err when the context ended or
// the connection hit its deadline.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}
