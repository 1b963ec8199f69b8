package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lemaitremot/maitremot/internal/metrics"
	"github.com/lemaitremot/maitremot/internal/middleware"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/render"
	"github.com/lemaitremot/maitremot/internal/store"
)

type ExportHandler struct {
	documents   *store.DocumentStore
	exports     *store.ExportStore
	templates   *store.TemplateStore
	sessions    *store.SessionStore
	subscribers *store.SubscriberStore
	renderer    *render.Renderer
	collector   *metrics.Collector
	logger      *slog.Logger
}

func NewExportHandler(
	ds *store.DocumentStore,
	es *store.ExportStore,
	ts *store.TemplateStore,
	ss *store.SessionStore,
	subs *store.SubscriberStore,
	renderer *render.Renderer,
	collector *metrics.Collector,
	logger *slog.Logger,
) *ExportHandler {
	return &ExportHandler{
		documents:   ds,
		exports:     es,
		templates:   ts,
		sessions:    ss,
		subscribers: subs,
		renderer:    renderer,
		collector:   collector,
		logger:      logger,
	}
}

// Export renders a document and enforces the access gate. The order is
// strict: a session header, when present, must be valid — an invalid
// session is rejected outright rather than silently downgraded to the
// guest path, otherwise a revoked Pro client would burn guest quota on a
// random guest_id.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID string `json:"document_id"`
		ExportType string `json:"export_type"`
		GuestID    string `json:"guest_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("document_id requis"))
		return
	}
	if req.ExportType != model.ExportSujet && req.ExportType != model.ExportCorrige {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("export_type doit être sujet ou corrige"))
		return
	}

	doc, err := h.documents.GetByID(req.DocumentID)
	if err != nil {
		h.logger.Error("export: get document", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, model.NewNotFoundError("Document non trouvé"))
		return
	}

	token := r.Header.Get(middleware.SessionHeader)
	if token != "" {
		// An asserted session must be valid. An invalid one is an auth
		// error, never a silent downgrade to the guest path.
		id, apiErr := middleware.ResolveSession(token, h.sessions, h.subscribers)
		if apiErr != nil {
			status := http.StatusUnauthorized
			if apiErr.Code == model.ErrCodeUpstreamUnavailable {
				status = http.StatusInternalServerError
			}
			writeError(w, status, apiErr)
			return
		}
		if id.Entitlements.Pro {
			h.exportPro(w, id.Email, doc, req.ExportType)
			return
		}
		// Valid session, lapsed subscription: the caller is a free user
		// now and exports against the guest quota if one was supplied.
		if req.GuestID != "" {
			h.exportGuest(w, doc, req.GuestID, req.ExportType)
			return
		}
		writeError(w, http.StatusForbidden, model.NewProRequiredError())
		return
	}
	if req.GuestID != "" {
		h.exportGuest(w, doc, req.GuestID, req.ExportType)
		return
	}
	writeError(w, http.StatusBadRequest, model.NewBadRequestError("Session ou guest_id requis"))
}

func (h *ExportHandler) exportPro(w http.ResponseWriter, email string, doc *model.Document, exportType string) {
	profile, err := h.templates.GetByEmail(email)
	if err != nil {
		h.logger.Error("export: get template profile", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	styleID := render.DefaultStyle
	if profile != nil {
		styleID = profile.TemplateStyle
	}

	out, err := h.renderer.Render(doc, exportType, profile)
	if err != nil {
		h.logger.Error("export: render", "document_id", doc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur lors de la génération du document"))
		return
	}

	if err := h.exports.RecordProExport(email, doc.ID, exportType, styleID); err != nil {
		h.logger.Error("export: record pro export", "error", err)
	}

	h.collector.RecordExport("pro")
	h.serve(w, doc, exportType, out)
}

func (h *ExportHandler) exportGuest(w http.ResponseWriter, doc *model.Document, guestID, exportType string) {
	// Render before consuming quota so a failed render never burns a
	// free export.
	out, err := h.renderer.Render(doc, exportType, nil)
	if err != nil {
		h.logger.Error("export: render", "document_id", doc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur lors de la génération du document"))
		return
	}

	allowed, err := h.exports.RecordGuestExport(guestID, doc.ID, exportType, render.DefaultStyle)
	if err != nil {
		h.logger.Error("export: record guest export", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	if !allowed {
		h.collector.RecordQuotaRejection()
		writeError(w, http.StatusPaymentRequired, model.NewQuotaExceededError())
		return
	}

	h.collector.RecordExport("guest")
	h.serve(w, doc, exportType, out)
}

func (h *ExportHandler) serve(w http.ResponseWriter, doc *model.Document, exportType string, out []byte) {
	filename := fmt.Sprintf("%s-%s-%s.html", doc.TypeDoc, doc.Chapitre, exportType)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
