package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lemaitremot/maitremot/internal/auth"
	"github.com/lemaitremot/maitremot/internal/catalog"
	"github.com/lemaitremot/maitremot/internal/metrics"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/payment"
	"github.com/lemaitremot/maitremot/internal/store"
)

// Subscription durations per package.
var packageDurations = map[string]time.Duration{
	"monthly": 30 * 24 * time.Hour,
	"yearly":  365 * 24 * time.Hour,
}

func subscriptionTypeFor(packageID string) string {
	if packageID == "yearly" {
		return model.SubscriptionYearly
	}
	return model.SubscriptionMonthly
}

type CheckoutHandler struct {
	transactions *store.TransactionStore
	subscribers  *store.SubscriberStore
	payments     *payment.Client
	collector    *metrics.Collector
	logger       *slog.Logger
}

func NewCheckoutHandler(
	ts *store.TransactionStore,
	subs *store.SubscriberStore,
	pc *payment.Client,
	collector *metrics.Collector,
	logger *slog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		transactions: ts,
		subscribers:  subs,
		payments:     pc,
		collector:    collector,
		logger:       logger,
	}
}

// CreateSession opens a Stripe checkout. The amount always comes from the
// server-side package catalog, never from the request.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackageID     string  `json:"package_id"`
		Email         string  `json:"email"`
		OriginURL     string  `json:"origin_url"`
		Name          *string `json:"nom"`
		Establishment *string `json:"etablissement"`
	}
	if err := decodeJSON(r, &req); err != nil || req.OriginURL == "" {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("origin_url requis"))
		return
	}

	pkg, ok := catalog.PackageByID(req.PackageID)
	if !ok {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Package inconnu"))
		return
	}

	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if addr != "" {
		sub, err := h.subscribers.GetByEmail(addr)
		if err != nil {
			h.logger.Error("checkout: get subscriber", "error", err)
			writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
			return
		}
		if auth.DeriveEntitlements(sub, time.Now().UTC()).Pro {
			writeError(w, http.StatusConflict,
				model.NewAlreadySubscribedError(sub.SubscriptionExpires.Format("02/01/2006")))
			return
		}
	}

	if !h.payments.Configured() {
		writeError(w, http.StatusServiceUnavailable, model.NewUpstreamUnavailableError("Paiement indisponible"))
		return
	}

	sess, err := h.payments.CreateCheckoutSession(pkg, addr, strings.TrimRight(req.OriginURL, "/"))
	if err != nil {
		h.logger.Error("checkout: create session", "error", err)
		writeError(w, http.StatusBadGateway, model.NewUpstreamUnavailableError("Impossible de créer la session de paiement"))
		return
	}

	tx := &model.PaymentTransaction{
		SessionID:     sess.ID,
		PackageID:     pkg.ID,
		Amount:        pkg.Amount,
		Currency:      pkg.Currency,
		PaymentStatus: "pending",
		Name:          req.Name,
		School:        req.Establishment,
	}
	if addr != "" {
		tx.Email = &addr
	}
	if _, err := h.transactions.Create(tx); err != nil {
		h.logger.Error("checkout: record transaction", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	h.logger.Info("checkout session created", "session_id", sess.ID, "package", pkg.ID)
	writeJSON(w, http.StatusOK, map[string]string{"url": sess.URL, "session_id": sess.ID})
}

// Status polls a checkout session. The first poll that observes the
// payment activates the subscription; the status-guarded update makes
// double activation impossible even when the webhook races this poll.
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	tx, err := h.transactions.GetBySessionID(sessionID)
	if err != nil {
		h.logger.Error("checkout status: get transaction", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	if tx == nil {
		writeError(w, http.StatusNotFound, model.NewNotFoundError("Session de paiement inconnue"))
		return
	}

	if tx.PaymentStatus != "paid" {
		sess, err := h.payments.GetCheckoutSession(sessionID)
		if err != nil {
			h.logger.Error("checkout status: stripe lookup", "error", err)
			writeError(w, http.StatusBadGateway, model.NewUpstreamUnavailableError("Paiement indisponible"))
			return
		}
		if sess.PaymentStatus == "paid" {
			email := sess.CustomerEmail
			if email == "" && tx.Email != nil {
				email = *tx.Email
			}
			if err := h.activate(sessionID, email, tx); err != nil {
				h.logger.Error("checkout status: activate", "error", err)
				writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
				return
			}
			tx.PaymentStatus = "paid"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     tx.SessionID,
		"payment_status": tx.PaymentStatus,
		"package_id":     tx.PackageID,
	})
}

// activate marks the transaction paid and upserts the subscriber. Only
// the caller that wins the paid transition performs the upsert.
func (h *CheckoutHandler) activate(sessionID, email string, tx *model.PaymentTransaction) error {
	won, err := h.transactions.MarkPaid(sessionID)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	if email == "" {
		h.logger.Error("paid transaction without email", "session_id", sessionID)
		return nil
	}

	addr := strings.ToLower(strings.TrimSpace(email))
	_, err = h.subscribers.Upsert(addr, subscriptionTypeFor(tx.PackageID), packageDurations[tx.PackageID], tx.Name, tx.School)
	if err != nil {
		return err
	}

	h.collector.RecordPaymentPaid()
	h.logger.Info("subscription activated", "email", addr, "package", tx.PackageID)
	return nil
}
