package store

import (
	"testing"

	"github.com/lemaitremot/maitremot/internal/database"
	"github.com/lemaitremot/maitremot/internal/model"
)

func setupDocumentTestDB(t *testing.T) *DocumentStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDocumentStore(db)
}

func testDocument(guestID string) *model.Document {
	var gid *string
	if guestID != "" {
		gid = &guestID
	}
	return &model.Document{
		GuestID:     gid,
		Matiere:     "Mathématiques",
		Niveau:      "6e",
		Chapitre:    "Fractions",
		TypeDoc:     "exercices",
		Difficulte:  "moyen",
		NbExercices: 2,
		Exercises: []model.Exercise{
			{ID: "ex-1", Type: model.ExerciseOpen, Enonce: "Calculer 1/2 + 1/4.", Solution: "3/4", Bareme: 5},
			{ID: "ex-2", Type: model.ExerciseOpen, Enonce: "Simplifier 6/8.", Solution: "3/4", Bareme: 5},
		},
	}
}

func TestDocumentCreateAndGet(t *testing.T) {
	ds := setupDocumentTestDB(t)

	created, err := ds.Create(testDocument("g1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := ds.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected document")
	}
	if len(got.Exercises) != 2 {
		t.Errorf("exercises = %d, want 2", len(got.Exercises))
	}
	if got.Exercises[0].Enonce != "Calculer 1/2 + 1/4." {
		t.Errorf("exercise round-trip broken: %q", got.Exercises[0].Enonce)
	}
}

func TestDocumentGetUnknown(t *testing.T) {
	ds := setupDocumentTestDB(t)

	got, err := ds.GetByID("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestDocumentListByGuestID(t *testing.T) {
	ds := setupDocumentTestDB(t)

	for i := 0; i < 3; i++ {
		if _, err := ds.Create(testDocument("g1")); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	ds.Create(testDocument("g2"))

	docs, err := ds.ListByGuestID("g1", 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("documents = %d, want 3", len(docs))
	}

	docs, err = ds.ListByGuestID("g1", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("limited documents = %d, want 2", len(docs))
	}
}

func TestDocumentReplaceExercise(t *testing.T) {
	ds := setupDocumentTestDB(t)

	created, _ := ds.Create(testDocument("g1"))
	variant := model.Exercise{ID: "ex-3", Type: model.ExerciseOpen, Enonce: "Calculer 2/3 + 1/6.", Solution: "5/6", Bareme: 5}

	if err := ds.ReplaceExercise(created.ID, 1, variant); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, _ := ds.GetByID(created.ID)
	if got.Exercises[1].Enonce != "Calculer 2/3 + 1/6." {
		t.Errorf("exercise not replaced: %q", got.Exercises[1].Enonce)
	}
	if got.Exercises[0].ID != "ex-1" {
		t.Error("untouched exercise changed")
	}
}

func TestDocumentReplaceExerciseOutOfRange(t *testing.T) {
	ds := setupDocumentTestDB(t)

	created, _ := ds.Create(testDocument("g1"))
	err := ds.ReplaceExercise(created.ID, 5, model.Exercise{})
	if err == nil {
		t.Error("expected out-of-range error")
	}
}
