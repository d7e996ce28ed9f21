package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shineum/smtp-post/internal/config"
)

const sample = "Received: from relay\r\n" +
	"From: Alice <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Hello\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"caf\xe9\r\n"

func TestConvertCmd_Stdin(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"convert", "--default-charset", "ISO-8859-1", "-"})
	cmd.SetIn(strings.NewReader(sample))
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if strings.Contains(got, "Received:") {
		t.Error("Received header should be dropped")
	}
	for _, want := range []string{
		"Subject: Hello\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: text/plain; charset=iso-8859-1",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestConvertCmd_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "message.eml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatalf("failed to write message: %v", err)
	}

	var out bytes.Buffer
	if err := runConvert(nil, &out, path, "ISO-8859-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Subject: Hello\r\n") {
		t.Errorf("output missing Subject, got %q", out.String())
	}
}

func TestConvertCmd_MissingFile(t *testing.T) {
	var out bytes.Buffer
	if err := runConvert(nil, &out, "/nonexistent/message.eml", "UTF-8"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestConvertCmd_RequiresArgument(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"convert"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without an input argument")
	}
}

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{
			name: "null by default",
			cfg:  config.Config{MIME: config.MIMEConfig{Convert: true}},
			want: "null",
		},
		{
			name: "mailer over smtp",
			cfg:  config.Config{SMTP: config.SMTPConfig{Host: "mail.example.com", Port: 25}},
			want: "mailer",
		},
		{
			name:    "mailer without transport",
			cfg:     config.Config{Backend: config.BackendMailer},
			wantErr: true,
		},
		{
			name:    "unknown transport",
			cfg:     config.Config{Transport: "fax"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     config.Config{Backend: "pigeon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := selectBackend(context.Background(), &tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got backend %q", b.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Name() != tt.want {
				t.Errorf("Name: got %q, want %q", b.Name(), tt.want)
			}
		})
	}
}

func TestRunServe_InvalidSize(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{MaxMessageSize: "huge"}}
	if err := runServe(context.Background(), cfg); err == nil {
		t.Fatal("expected error for invalid max message size")
	}
}
