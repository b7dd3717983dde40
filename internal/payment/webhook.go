package payment

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"vipclub-bot/internal/models"
	"vipclub-bot/internal/store"
	"vipclub-bot/internal/subscription"
)

// WebhookNotification is the gateway's confirmation signal. data.id is the
// trusted payment identifier; signature checks live at the gateway edge,
// not here.
type WebhookNotification struct {
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   WebhookData `json:"data"`
}

type WebhookData struct {
	ID string `json:"id"`
}

// WebhookHandler turns gateway notifications into lifecycle transitions.
type WebhookHandler struct {
	Manager  *subscription.Manager
	Payments *Service
}

func NewWebhookHandler(manager *subscription.Manager, payments *Service) *WebhookHandler {
	return &WebhookHandler{Manager: manager, Payments: payments}
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var notification WebhookNotification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		log.Printf("Failed to decode webhook: %v", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if notification.Data.ID == "" {
		log.Printf("Webhook without payment id (action %s)", notification.Action)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	var err error
	switch notification.Action {
	case "payment.approved":
		_, err = h.Manager.ConfirmPayment(r.Context(), notification.Data.ID)
	case "payment.rejected":
		err = h.Payments.MarkRejected(r.Context(), notification.Data.ID)
	case "payment.cancelled":
		err = h.Payments.MarkCancelled(r.Context(), notification.Data.ID)
	default:
		log.Printf("Ignored webhook action: %s", notification.Action)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err != nil {
		log.Printf("Failed to process webhook %s for payment %s: %v",
			notification.Action, notification.Data.ID, err)
		// Terminal outcomes must not be redelivered forever; only store
		// failures are worth a retry.
		if errors.Is(err, models.ErrInvalidTransition) ||
			errors.Is(err, models.ErrPaymentExpired) ||
			errors.Is(err, models.ErrValidation) ||
			errors.Is(err, store.ErrNotFound) {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
