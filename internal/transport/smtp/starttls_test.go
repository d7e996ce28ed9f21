package smtp

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	gosmtp "github.com/emersion/go-smtp"
)

// selfSignedCert generates an in-memory ECDSA P-256 certificate for
// 127.0.0.1 and returns it with a pool that trusts it.
func selfSignedCert(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ECDSA key: %v", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("failed to generate serial number: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore: time.Now().Add(-time.Minute),
		NotAfter:  time.Now().Add(time.Hour),

		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,

		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1")},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(leaf)

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  key,
		Leaf:        leaf,
	}, pool
}

// startTLSServer runs an in-process SMTP server that offers STARTTLS and
// only advertises AUTH once TLS is active.
func startTLSServer(t *testing.T, be *testBackend, cert tls.Certificate) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := gosmtp.NewServer(be)
	srv.Domain = "localhost"
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second
	srv.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestSend_StartTLSWithAuth(t *testing.T) {
	t.Parallel()

	cert, pool := selfSignedCert(t)
	be := &testBackend{username: "relay", password: "s3cret"}
	host, port := startTLSServer(t, be, cert)

	tr, err := New(Config{
		Host:      host,
		Port:      port,
		Username:  "relay",
		Password:  "s3cret",
		StartTLS:  true,
		TLSConfig: &tls.Config{RootCAs: pool},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := tr.Send(context.Background(), mustEnvelope(t, "a@example.com", "b@example.com"), []byte(testMessage)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := be.received()
	if len(got) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(got))
	}
	if !got[0].tls {
		t.Error("credentials should only be sent after the TLS handshake")
	}
	if got[0].user != "relay" {
		t.Errorf("user: got %q, want %q", got[0].user, "relay")
	}
}

func TestSend_StartTLSUntrustedCertificate(t *testing.T) {
	t.Parallel()

	cert, _ := selfSignedCert(t)
	be := &testBackend{}
	host, port := startTLSServer(t, be, cert)

	tr, _ := New(Config{Host: host, Port: port, StartTLS: true, Timeout: 5 * time.Second})
	err := tr.Send(context.Background(), mustEnvelope(t, "a@example.com", "b@example.com"), []byte(testMessage))
	if err == nil {
		t.Fatal("expected error for an untrusted certificate")
	}
	if len(be.received()) != 0 {
		t.Error("no message should be delivered")
	}
}

func TestSend_AuthWithoutTLSUnsupported(t *testing.T) {
	t.Parallel()

	cert, _ := selfSignedCert(t)
	be := &testBackend{username: "relay", password: "s3cret"}
	host, port := startTLSServer(t, be, cert)

	tr, _ := New(Config{Host: host, Port: port, Username: "relay", Password: "s3cret", StartTLS: false})
	err := tr.Send(context.Background(), mustEnvelope(t, "a@example.com", "b@example.com"), []byte(testMessage))
	if err != ErrAuthUnsupported {
		t.Fatalf("got %v, want ErrAuthUnsupported", err)
	}
}
