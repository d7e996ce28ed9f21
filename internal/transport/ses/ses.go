// Package ses implements a Transport that sends raw messages via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/smtp-post/internal/smtppost"
)

// Config holds the configuration for creating a Transport.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Transport sends messages via the AWS SES v2 API. The message data is
// submitted unchanged as raw content and the envelope becomes the explicit
// destination, so Bcc recipients absent from the headers are honored.
type Transport struct {
	client SendEmailAPI
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a Transport from the given configuration. Static credentials
// are used when both keys are set; otherwise the default AWS credential chain
// applies.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Transport{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewWithClient creates a Transport with a custom client, used for testing.
func NewWithClient(client SendEmailAPI) *Transport {
	return &Transport{client: client}
}

// Send submits data as a raw message. A failed call is returned as is; the
// caller decides whether to retry.
func (s *Transport) Send(ctx context.Context, env *smtppost.Envelope, data []byte) error {
	out, err := s.client.SendEmail(ctx, buildRawInput(env, data))
	if err != nil {
		return fmt.Errorf("SES API request failed: %w", err)
	}

	var messageID string
	if out != nil {
		messageID = aws.ToString(out.MessageId)
	}
	slog.Debug("SES accepted message",
		"from", env.From(),
		"recipients", len(env.Recipients),
		"message_id", messageID,
	)
	return nil
}

// Name returns the transport name.
func (s *Transport) Name() string {
	return "ses"
}

// buildRawInput creates a SendEmailInput carrying data verbatim.
func buildRawInput(env *smtppost.Envelope, data []byte) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(env.From()),
		Destination: &types.Destination{
			ToAddresses: env.To(),
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{
				Data: data,
			},
		},
	}
}
