package handler

import (
	"log/slog"
	"net/http"

	"github.com/lemaitremot/maitremot/internal/auth"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/render"
	"github.com/lemaitremot/maitremot/internal/store"
)

type TemplateHandler struct {
	templates *store.TemplateStore
	logger    *slog.Logger
}

func NewTemplateHandler(ts *store.TemplateStore, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{templates: ts, logger: logger}
}

// Styles lists the built-in document styles. Public: guests see the
// styles to preview what Pro buys them.
func (h *TemplateHandler) Styles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"styles": render.Styles()})
}

// Get returns the caller's template profile, or the defaults if none was
// saved yet. Pro-gated by the route.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	addr := auth.Email(r.Context())

	profile, err := h.templates.GetByEmail(addr)
	if err != nil {
		h.logger.Error("get template profile", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	if profile == nil {
		profile = &model.TemplateProfile{Email: addr, TemplateStyle: render.DefaultStyle}
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": profile})
}

// Save replaces the caller's template profile. A full save: omitted
// fields clear their previous values.
func (h *TemplateHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfessorName *string `json:"professor_name"`
		SchoolName    *string `json:"school_name"`
		SchoolYear    *string `json:"school_year"`
		FooterText    *string `json:"footer_text"`
		TemplateStyle string  `json:"template_style"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Corps de requête invalide"))
		return
	}
	if req.TemplateStyle == "" {
		req.TemplateStyle = render.DefaultStyle
	}
	if !render.ValidStyle(req.TemplateStyle) {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Style de template inconnu"))
		return
	}

	profile, err := h.templates.Save(&model.TemplateProfile{
		Email:         auth.Email(r.Context()),
		ProfessorName: req.ProfessorName,
		SchoolName:    req.SchoolName,
		SchoolYear:    req.SchoolYear,
		FooterText:    req.FooterText,
		TemplateStyle: req.TemplateStyle,
	})
	if err != nil {
		h.logger.Error("save template profile", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": profile})
}
