package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shineum/smtp-post/internal/backend/mailer"
	"github.com/shineum/smtp-post/internal/backend/null"
	"github.com/shineum/smtp-post/internal/config"
	"github.com/shineum/smtp-post/internal/convert"
	"github.com/shineum/smtp-post/internal/httpapi"
	"github.com/shineum/smtp-post/internal/smtppost"
	"github.com/shineum/smtp-post/internal/transport"
	"github.com/shineum/smtp-post/internal/transport/ses"
	"github.com/shineum/smtp-post/internal/transport/smtp"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ingestion server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			setupLogger(cfg.Logging.Level)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	maxSize, err := cfg.MaxMessageBytes()
	if err != nil {
		return err
	}

	b, err := selectBackend(ctx, cfg)
	if err != nil {
		return err
	}

	server := httpapi.New(httpapi.ServerConfig{
		ListenAddr:     cfg.HTTP.Listen,
		Backend:        b,
		APIKey:         cfg.HTTP.APIKey,
		MaxMessageSize: maxSize,
	})

	slog.Info("starting smtp-post",
		"listen", cfg.HTTP.Listen,
		"backend", b.Name(),
		"transport", cfg.TransportName(),
		"convert", cfg.MIME.Convert,
	)

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("smtp-post stopped")
	return nil
}

// selectBackend builds the delivery backend named by the configuration.
func selectBackend(ctx context.Context, cfg *config.Config) (smtppost.Backend, error) {
	var conv *convert.Converter
	if cfg.MIME.Convert {
		conv = convert.New(cfg.MIME.DefaultCharset)
	}

	switch cfg.BackendName() {
	case config.BackendNull:
		slog.Info("using null backend, messages are printed and not delivered")
		return null.New(conv), nil

	case config.BackendMailer:
		t, err := selectTransport(ctx, cfg)
		if err != nil {
			return nil, err
		}
		var opts []mailer.Option
		if conv != nil {
			opts = append(opts, mailer.WithConverter(conv))
		}
		return mailer.New(t, opts...), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.BackendName())
	}
}

// selectTransport builds the transport named by the configuration.
func selectTransport(ctx context.Context, cfg *config.Config) (transport.Transport, error) {
	switch cfg.TransportName() {
	case config.TransportSMTP:
		slog.Info("using SMTP transport",
			"host", cfg.SMTP.Host,
			"port", cfg.SMTP.Port,
			"auth_enabled", cfg.SMTP.Username != "",
			"starttls", cfg.SMTP.StartTLS,
		)
		t, err := smtp.New(smtp.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			HELO:     cfg.SMTP.HELO,
			Timeout:  cfg.SMTP.Timeout,
			StartTLS: cfg.SMTP.StartTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SMTP transport: %w", err)
		}
		return t, nil

	case config.TransportSES:
		slog.Info("using AWS SES transport", "region", cfg.SES.Region)
		t, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES transport: %w", err)
		}
		return t, nil

	case "":
		return nil, errors.New("mailer backend requires a transport")

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.TransportName())
	}
}
