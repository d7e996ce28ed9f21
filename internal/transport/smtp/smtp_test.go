package smtp

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	gosmtp "github.com/emersion/go-smtp"

	"github.com/shineum/smtp-post/internal/smtppost"
)

// delivery is one message received by the test server.
type delivery struct {
	user string
	tls  bool
	from string
	to   []string
	data string
}

// testBackend implements gosmtp.Backend and records every delivery.
type testBackend struct {
	username string
	password string
	reject   string

	mu         sync.Mutex
	deliveries []delivery
}

func (b *testBackend) Login(state *gosmtp.ConnectionState, username, password string) (gosmtp.Session, error) {
	if username != b.username || password != b.password {
		return nil, errors.New("invalid credentials")
	}
	return &testSession{backend: b, user: username, tls: state.TLS.HandshakeComplete}, nil
}

func (b *testBackend) AnonymousLogin(_ *gosmtp.ConnectionState) (gosmtp.Session, error) {
	if b.username != "" {
		return nil, gosmtp.ErrAuthRequired
	}
	return &testSession{backend: b}, nil
}

func (b *testBackend) received() []delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]delivery(nil), b.deliveries...)
}

// testSession implements gosmtp.Session.
type testSession struct {
	backend *testBackend
	user    string
	tls     bool
	current delivery
}

func (s *testSession) Reset() { s.current = delivery{} }

func (s *testSession) Logout() error { return nil }

func (s *testSession) Mail(from string, _ gosmtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *testSession) Rcpt(to string) error {
	if to == s.backend.reject {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "no such user",
		}
	}
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = string(b)
	s.current.user = s.user
	s.current.tls = s.tls

	s.backend.mu.Lock()
	s.backend.deliveries = append(s.backend.deliveries, s.current)
	s.backend.mu.Unlock()
	return nil
}

// startServer runs an in-process SMTP server on a random local port.
func startServer(t *testing.T, be *testBackend) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := gosmtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func mustEnvelope(t *testing.T, from string, to ...string) *smtppost.Envelope {
	t.Helper()
	env, err := smtppost.NewEnvelope(from, to)
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}
	return env
}

const testMessage = "Subject: Hi\r\n\r\nBody\r\n"

func TestSend_Anonymous(t *testing.T) {
	t.Parallel()

	be := &testBackend{}
	host, port := startServer(t, be)

	tr, err := New(Config{Host: host, Port: port, HELO: "client.example.com", StartTLS: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := mustEnvelope(t, "a@example.com", "b@example.com", "c@example.com")
	if err := tr.Send(context.Background(), env, []byte(testMessage)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := be.received()
	if len(got) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(got))
	}
	if got[0].from != "a@example.com" {
		t.Errorf("from: got %q, want %q", got[0].from, "a@example.com")
	}
	if len(got[0].to) != 2 || got[0].to[0] != "b@example.com" || got[0].to[1] != "c@example.com" {
		t.Errorf("to: got %v", got[0].to)
	}
	if got[0].data != testMessage {
		t.Errorf("data: got %q, want %q", got[0].data, testMessage)
	}
}

func TestSend_WithAuth(t *testing.T) {
	t.Parallel()

	be := &testBackend{username: "relay", password: "s3cret"}
	host, port := startServer(t, be)

	tr, err := New(Config{Host: host, Port: port, Username: "relay", Password: "s3cret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := tr.Send(context.Background(), mustEnvelope(t, "a@example.com", "b@example.com"), []byte(testMessage)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := be.received()
	if len(got) != 1 || got[0].user != "relay" {
		t.Fatalf("expected one authenticated delivery, got %+v", got)
	}
}

func TestSend_BadCredentials(t *testing.T) {
	t.Parallel()

	be := &testBackend{username: "relay", password: "s3cret"}
	host, port := startServer(t, be)

	tr, _ := New(Config{Host: host, Port: port, Username: "relay", Password: "wrong"})
	err := tr.Send(context.Background(), mustEnvelope(t, "a@example.com", "b@example.com"), []byte(testMessage))
	if err == nil {
		t.Fatal("expected error for bad credentials")
	}
	if len(be.received()) != 0 {
		t.Error("no message should be delivered")
	}
}

func TestSend_RecipientRejected(t *testing.T) {
	t.Parallel()

	be := &testBackend{reject: "nobody@example.com"}
	host, port := startServer(t, be)

	tr, _ := New(Config{Host: host, Port: port})
	err := tr.Send(context.Background(), mustEnvelope(t, "a@example.com", "b@example.com", "nobody@example.com"), []byte(testMessage))
	if err == nil {
		t.Fatal("expected error for rejected recipient")
	}

	var smtpErr *gosmtp.SMTPError
	if !errors.As(err, &smtpErr) {
		t.Fatalf("expected *SMTPError in chain, got %v", err)
	}
	if smtpErr.Code != 550 {
		t.Errorf("code: got %d, want 550", smtpErr.Code)
	}
	if len(be.received()) != 0 {
		t.Error("no message should be delivered")
	}
}

func TestSend_Timeout(t *testing.T) {
	t.Parallel()

	// Accepts connections but never sends a greeting.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	tr, _ := New(Config{Host: addr.IP.String(), Port: addr.Port, Timeout: 200 * time.Millisecond})

	start := time.Now()
	err = tr.Send(context.Background(), mustEnvelope(t, "a@example.com", "b@example.com"), []byte(testMessage))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected error to wrap context.DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("send took %v, timeout was not honored", elapsed)
	}
}

func TestSend_ConnectionRefused(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	tr, _ := New(Config{Host: "127.0.0.1", Port: port})
	if err := tr.Send(context.Background(), mustEnvelope(t, "a@example.com", "b@example.com"), []byte(testMessage)); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing host")
	}

	tr, err := New(Config{Host: "mail.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := tr.Addr(), net.JoinHostPort("mail.example.com", strconv.Itoa(25)); got != want {
		t.Errorf("Addr: got %q, want %q", got, want)
	}
	if tr.cfg.Timeout != defaultTimeout {
		t.Errorf("Timeout: got %v, want %v", tr.cfg.Timeout, defaultTimeout)
	}
	if tr.Name() != "smtp" {
		t.Errorf("Name: got %q, want %q", tr.Name(), "smtp")
	}
}
