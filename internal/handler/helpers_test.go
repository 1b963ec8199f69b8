package handler

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lemaitremot/maitremot/internal/database"
	"github.com/lemaitremot/maitremot/internal/email"
	"github.com/lemaitremot/maitremot/internal/generator"
	"github.com/lemaitremot/maitremot/internal/metrics"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/render"
	"github.com/lemaitremot/maitremot/internal/store"
)

// env bundles everything a handler test needs against one in-memory
// database.
type env struct {
	db           *sql.DB
	subscribers  *store.SubscriberStore
	magicLinks   *store.MagicLinkStore
	sessions     *store.SessionStore
	documents    *store.DocumentStore
	exports      *store.ExportStore
	templates    *store.TemplateStore
	transactions *store.TransactionStore
	renderer     *render.Renderer
	collector    *metrics.Collector
	logger       *slog.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("init renderer: %v", err)
	}

	return &env{
		db:           db,
		subscribers:  store.NewSubscriberStore(db),
		magicLinks:   store.NewMagicLinkStore(db),
		sessions:     store.NewSessionStore(db),
		documents:    store.NewDocumentStore(db),
		exports:      store.NewExportStore(db),
		templates:    store.NewTemplateStore(db),
		transactions: store.NewTransactionStore(db),
		renderer:     renderer,
		collector:    metrics.NewCollector(prometheus.NewRegistry()),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// fakeBrevo returns an email client pointed at a capture server.
func fakeBrevo(t *testing.T, sentTokens *[]string) *email.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The magic token is the last query parameter of the link in the
		// body; easier to capture the whole body and let the test dig.
		body, _ := io.ReadAll(r.Body)
		*sentTokens = append(*sentTokens, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)
	return email.NewClient("test-key", "noreply@lemaitremot.fr", "https://lemaitremot.fr", email.WithAPIURL(srv.URL))
}

func (e *env) createDocument(t *testing.T, guestID string) *model.Document {
	t.Helper()
	doc := &model.Document{
		Matiere:     "Mathématiques",
		Niveau:      "5e",
		Chapitre:    "Nombres relatifs",
		TypeDoc:     "exercices",
		Difficulte:  "moyen",
		NbExercices: 2,
		Exercises: generator.Fallback(generator.Request{
			Chapitre:    "Nombres relatifs",
			NbExercices: 2,
		}),
	}
	if guestID != "" {
		doc.GuestID = &guestID
	}
	doc, err := e.documents.Create(doc)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}
