package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lemaitremot/maitremot/internal/catalog"
	"github.com/lemaitremot/maitremot/internal/generator"
	"github.com/lemaitremot/maitremot/internal/metrics"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/store"
)

const (
	defaultExerciseCount = 4
	maxExerciseCount     = 10
	documentListLimit    = 20
)

type DocumentHandler struct {
	documents *store.DocumentStore
	gen       *generator.Service
	collector *metrics.Collector
	logger    *slog.Logger
}

func NewDocumentHandler(ds *store.DocumentStore, gen *generator.Service, collector *metrics.Collector, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{documents: ds, gen: gen, collector: collector, logger: logger}
}

// Generate builds a new document from a curriculum entry.
func (h *DocumentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Matiere     string `json:"matiere"`
		Niveau      string `json:"niveau"`
		Chapitre    string `json:"chapitre"`
		TypeDoc     string `json:"type_doc"`
		Difficulte  string `json:"difficulte"`
		NbExercices int    `json:"nb_exercices"`
		GuestID     string `json:"guest_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Corps de requête invalide"))
		return
	}

	if !catalog.ValidEntry(req.Matiere, req.Niveau, req.Chapitre) {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Chapitre inconnu au programme"))
		return
	}
	if !catalog.ValidDocType(req.TypeDoc) {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("type_doc invalide"))
		return
	}
	if req.Difficulte == "" {
		req.Difficulte = "moyen"
	}
	if !catalog.ValidDifficulty(req.Difficulte) {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("difficulte invalide"))
		return
	}
	if req.NbExercices <= 0 {
		req.NbExercices = defaultExerciseCount
	}
	if req.NbExercices > maxExerciseCount {
		req.NbExercices = maxExerciseCount
	}

	exercises, err := h.gen.Generate(r.Context(), generator.Request{
		Matiere:     req.Matiere,
		Niveau:      req.Niveau,
		Chapitre:    req.Chapitre,
		TypeDoc:     req.TypeDoc,
		Difficulte:  req.Difficulte,
		NbExercices: req.NbExercices,
	})
	if err != nil {
		h.logger.Error("generate exercises", "error", err)
		writeError(w, http.StatusBadGateway, model.NewUpstreamUnavailableError("Service de génération indisponible"))
		return
	}

	doc := &model.Document{
		Matiere:     req.Matiere,
		Niveau:      req.Niveau,
		Chapitre:    req.Chapitre,
		TypeDoc:     req.TypeDoc,
		Difficulte:  req.Difficulte,
		NbExercices: req.NbExercices,
		Exercises:   exercises,
	}
	if req.GuestID != "" {
		doc.GuestID = &req.GuestID
	}

	doc, err = h.documents.Create(doc)
	if err != nil {
		h.logger.Error("create document", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	h.collector.RecordDocumentGenerated()
	h.logger.Info("document generated", "document_id", doc.ID, "chapitre", doc.Chapitre, "exercises", len(doc.Exercises))
	writeJSON(w, http.StatusOK, map[string]any{"document": doc})
}

// List returns the guest's recent documents, newest first.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	guestID := r.URL.Query().Get("guest_id")
	if guestID == "" {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("guest_id requis"))
		return
	}

	docs, err := h.documents.ListByGuestID(guestID, documentListLimit)
	if err != nil {
		h.logger.Error("list documents", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// Vary regenerates a single exercise of an existing document in place.
func (h *DocumentHandler) Vary(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Index d'exercice invalide"))
		return
	}

	doc, err := h.documents.GetByID(docID)
	if err != nil {
		h.logger.Error("vary: get document", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, model.NewNotFoundError("Document non trouvé"))
		return
	}
	if index >= len(doc.Exercises) {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Index d'exercice invalide"))
		return
	}

	exercises, err := h.gen.Generate(r.Context(), generator.Request{
		Matiere:     doc.Matiere,
		Niveau:      doc.Niveau,
		Chapitre:    doc.Chapitre,
		TypeDoc:     doc.TypeDoc,
		Difficulte:  doc.Difficulte,
		NbExercices: 1,
	})
	if err != nil || len(exercises) == 0 {
		h.logger.Error("vary: generate exercise", "error", err)
		writeError(w, http.StatusBadGateway, model.NewUpstreamUnavailableError("Service de génération indisponible"))
		return
	}

	if err := h.documents.ReplaceExercise(doc.ID, index, exercises[0]); err != nil {
		h.logger.Error("vary: replace exercise", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	doc.Exercises[index] = exercises[0]
	writeJSON(w, http.StatusOK, map[string]any{"document": doc})
}
