package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/lemaitremot/maitremot/internal/metrics"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/payment"
	"github.com/lemaitremot/maitremot/internal/store"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 65536

type WebhookHandler struct {
	checkout *CheckoutHandler
	payments *payment.Client
	logger   *slog.Logger
}

func NewWebhookHandler(ts *store.TransactionStore, subs *store.SubscriberStore, pc *payment.Client, collector *metrics.Collector, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		checkout: NewCheckoutHandler(ts, subs, pc, collector, logger),
		payments: pc,
		logger:   logger,
	}
}

// Stripe handles signed webhook events. Activation is shared with the
// status poll; whichever observes the payment first wins.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Corps de requête illisible"))
		return
	}

	event, err := h.payments.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Error("webhook: signature verification failed", "error", err)
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Signature invalide"))
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			h.logger.Error("webhook: decode checkout session", "error", err)
			writeError(w, http.StatusBadRequest, model.NewBadRequestError("Événement invalide"))
			return
		}
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			break
		}

		tx, err := h.checkout.transactions.GetBySessionID(sess.ID)
		if err != nil {
			h.logger.Error("webhook: get transaction", "error", err)
			writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
			return
		}
		if tx == nil {
			// Unknown session: probably from another environment sharing
			// the webhook endpoint. Acknowledge and move on.
			h.logger.Info("webhook: unknown checkout session", "session_id", sess.ID)
			break
		}

		email := ""
		if sess.CustomerDetails != nil {
			email = sess.CustomerDetails.Email
		}
		if email == "" && tx.Email != nil {
			email = *tx.Email
		}
		if err := h.checkout.activate(sess.ID, email, tx); err != nil {
			h.logger.Error("webhook: activate", "error", err)
			writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
			return
		}
	default:
		h.logger.Debug("webhook: ignored event", "type", event.Type)
	}

	writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
