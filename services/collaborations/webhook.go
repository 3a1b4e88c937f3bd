package collaborations

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"github.com/scholarship-finder/backend/internal/httputil"
	"github.com/scholarship-finder/backend/supabase/client"
)

// WebhookHandler receives delivery events from the email provider. It
// sits outside the authenticated API surface; authenticity comes from the
// HMAC signature instead.
type WebhookHandler struct {
	service *Service
	secret  []byte
}

// NewWebhookHandler creates the email-event webhook handler.
func NewWebhookHandler(service *Service, secret string) *WebhookHandler {
	return &WebhookHandler{service: service, secret: []byte(secret)}
}

// RegisterRoutes mounts the webhook endpoint on the router.
func (h *WebhookHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/webhooks/email", h.handleEvent).Methods(http.MethodPost)
}

func (h *WebhookHandler) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, truncated, err := httputil.ReadAllWithLimit(r.Body, 1<<20)
	if err != nil || truncated {
		httputil.BadRequest(w, "failed to read body")
		return
	}

	if !h.verifySignature(body, r.Header.Get("Webhook-Signature")) {
		h.service.logger.LogSecurityEvent(r.Context(), "webhook_signature_rejected", map[string]interface{}{
			"remote_addr": r.RemoteAddr,
		})
		httputil.Unauthorized(w, "invalid signature")
		return
	}

	eventType := gjson.GetBytes(body, "type").String()
	providerEmailID := gjson.GetBytes(body, "data.email_id").String()
	if eventType == "" || providerEmailID == "" {
		httputil.BadRequest(w, "missing type or data.email_id")
		return
	}

	occurredAt := time.Now()
	if ts := gjson.GetBytes(body, "created_at").String(); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			occurredAt = parsed
		}
	}

	if err := h.service.HandleEmailEvent(r.Context(), eventType, providerEmailID, occurredAt); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleEmailEvent applies one provider delivery event to the matching
// invite. Events for unknown provider ids and unknown event types are
// logged and dropped; the provider should never see an error for them.
func (s *Service) HandleEmailEvent(ctx context.Context, eventType, providerEmailID string, occurredAt time.Time) error {
	invite, err := s.store.GetInviteByProviderEmailID(ctx, providerEmailID)
	if err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			s.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"event_type":        eventType,
				"provider_email_id": providerEmailID,
			}).Warn("email event for unknown provider id")
			return nil
		}
		return fmt.Errorf("lookup invite: %w", err)
	}

	updates := map[string]interface{}{}
	switch eventType {
	case "email.sent":
		updates["delivery_status"] = DeliverySent
	case "email.delivered":
		updates["delivery_status"] = DeliveryDelivered
	case "email.bounced", "email.complained":
		updates["delivery_status"] = DeliveryBounced
	case "email.opened":
		updates["opened_at"] = occurredAt
	case "email.clicked":
		updates["clicked_at"] = occurredAt
	default:
		s.logger.WithContext(ctx).WithField("event_type", eventType).Debug("ignoring unhandled email event")
		return nil
	}

	if _, err := s.store.UpdateInvite(ctx, invite.ID, updates); err != nil {
		return fmt.Errorf("apply email event: %w", err)
	}

	if status, ok := updates["delivery_status"]; ok {
		s.appendHistoryBestEffort(ctx, invite.CollaborationID, "delivery_update",
			fmt.Sprintf("invitation email %s", status))
	}
	return nil
}
