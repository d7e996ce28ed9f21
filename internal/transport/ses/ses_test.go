package ses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/shineum/smtp-post/internal/smtppost"
	"github.com/shineum/smtp-post/internal/transport"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func testEnvelope(t *testing.T, to ...string) *smtppost.Envelope {
	t.Helper()
	env, err := smtppost.NewEnvelope("sender@example.com", to)
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}
	return env
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient(&mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend_RawMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient(mock)

	data := []byte("From: sender@example.com\r\nTo: to@example.com\r\nSubject: Test Subject\r\n\r\nHello, World!")
	err := p.Send(context.Background(), testEnvelope(t, "to@example.com", "hidden@example.com"), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if input.Content.Raw == nil {
		t.Fatal("expected raw email content, got nil")
	}
	if input.Content.Simple != nil {
		t.Error("expected no simple content when using raw message")
	}
	if got := string(input.Content.Raw.Data); got != string(data) {
		t.Errorf("raw data: got %q, want %q", got, data)
	}
	if got := *input.FromEmailAddress; got != "sender@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "sender@example.com")
	}

	to := input.Destination.ToAddresses
	if len(to) != 2 || to[0] != "to@example.com" || to[1] != "hidden@example.com" {
		t.Errorf("ToAddresses: got %v", to)
	}
}

func TestSend_NoRetryOnError(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	p := NewWithClient(mock)

	err := p.Send(context.Background(), testEnvelope(t, "to@example.com"), []byte("Subject: x\r\n\r\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "throttled") {
		t.Errorf("error message: got %q, want to contain %q", err.Error(), "throttled")
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}

func TestSend_NilOutput(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, nil
		},
	}

	if err := NewWithClient(mock).Send(context.Background(), testEnvelope(t, "to@example.com"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSend_PassesContext(t *testing.T) {
	t.Parallel()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "request-1")

	var seen any
	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			seen = ctx.Value(key{})
			return &sesv2.SendEmailOutput{}, nil
		},
	}

	if err := NewWithClient(mock).Send(ctx, testEnvelope(t, "to@example.com"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "request-1" {
		t.Errorf("context value: got %v, want %q", seen, "request-1")
	}
}

// Verify Transport implements transport.Transport interface
func TestTransportInterface(t *testing.T) {
	t.Parallel()

	var _ transport.Transport = (*Transport)(nil)
}
