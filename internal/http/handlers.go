package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	applog "spendtrace/internal/log"
	"spendtrace/internal/pipeline"
	"spendtrace/internal/whatsapp"
)

const eventReceived = "EVENT_RECEIVED"

// handleVerify answers the Cloud API subscription handshake. The prefixed
// hub.* parameters are what Meta sends; the bare names are accepted too.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	param := func(name string) string {
		if v := q.Get("hub." + name); v != "" {
			return v
		}
		return q.Get(name)
	}

	challenge, ok := s.webhook.Verify(param("mode"), param("verify_token"), param("challenge"))
	logger := applog.FromContext(r.Context())
	if !ok {
		logger.WarnContext(r.Context(), "Webhook verification failed", applog.FieldOperation, applog.OpVerify)
		http.Error(w, "Verification failed", http.StatusBadRequest)
		return
	}
	logger.InfoContext(r.Context(), "Webhook verified", applog.FieldOperation, applog.OpVerify)
	writeText(w, http.StatusOK, challenge)
}

// handleWebhook acknowledges every readable delivery with 200. The Cloud API
// disables a webhook that keeps failing, so parse errors never reach the status.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.WarnContext(ctx, "Webhook body too large", "limit", tooLarge.Limit)
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.ErrorContext(ctx, "Failed to read webhook body", applog.FieldError, err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if !s.webhook.Authentic(body, r.Header.Get(whatsapp.SignatureHeader)) {
		logger.WarnContext(ctx, "Webhook signature mismatch", applog.FieldOperation, applog.OpIngest)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	outcome := s.webhook.Ingest(ctx, body)
	if outcome != pipeline.OutcomeIgnored {
		logger.DebugContext(ctx, "Webhook ingested", "outcome", string(outcome))
	}
	writeText(w, http.StatusOK, eventReceived)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every registered readiness check
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
