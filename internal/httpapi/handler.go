package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/smtp-post/internal/smtppost"
)

// Request headers carrying the envelope.
const (
	HeaderMailFrom  = "X-Mail-From"
	HeaderRcptTo    = "X-Rcpt-To"
	HeaderRequestID = "X-Request-Id"
)

// Handler accepts POST / with the raw message as the body.
type Handler struct {
	backend smtppost.Backend
	auth    *Authenticator
	maxSize int64
}

// NewHandler creates a Handler. A maxSize of zero or less disables the size
// limit.
func NewHandler(b smtppost.Backend, auth *Authenticator, maxSize int64) *Handler {
	if auth == nil {
		auth = NewAuthenticator("")
	}
	return &Handler{backend: b, auth: auth, maxSize: maxSize}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(HeaderRequestID, requestID)
	log := slog.With("request_id", requestID)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := h.auth.Verify(r); err != nil {
		log.Info("request rejected", "reason", err.Error(), "client_ips", clientIPs(r))
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	body, err := h.readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "message exceeds maximum size")
			return
		}
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	from := r.Header.Get(HeaderMailFrom)
	to := splitRecipients(r.Header.Get(HeaderRcptTo))

	err = h.backend.Send(r.Context(), smtppost.NewMessage(from, to, body))

	var sendErr *smtppost.SendError
	switch {
	case err == nil:
		log.Debug("message accepted", "backend", h.backend.Name(), "from", from, "to", to, "size", len(body))
		w.WriteHeader(http.StatusOK)
	case smtppost.IsInvalidRequest(err):
		log.Info("invalid request", "error", err, "from", from, "to", to)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &sendErr):
		log.Error("failed to send message",
			"error", err,
			"backend", sendErr.Backend,
			"from", sendErr.From,
			"to", sendErr.To,
			"headers", requestHeaders(r),
			"client_ips", clientIPs(r),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		log.Error("unexpected backend error", "error", err, "from", from, "to", to)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if h.maxSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxSize)
	}
	defer body.Close()
	return io.ReadAll(body)
}

// splitRecipients splits a comma-separated recipient header, trimming each
// entry. An empty header yields no recipients.
func splitRecipients(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// clientIPs returns the X-Forwarded-For chain followed by the remote address.
func clientIPs(r *http.Request) []string {
	var ips []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, ip := range strings.Split(v, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				ips = append(ips, ip)
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host != "" {
		ips = append(ips, host)
	}
	return ips
}

// requestHeaders flattens the request headers for logging, with credentials
// redacted.
func requestHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		switch http.CanonicalHeaderKey(name) {
		case "Authorization", "X-Api-Key":
			out[name] = "[redacted]"
		default:
			out[name] = strings.Join(values, ", ")
		}
	}
	return out
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
