package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lemaitremot/maitremot/internal/model"
)

type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func scanDocument(scanner interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	var guestID sql.NullString
	var exercisesJSON string
	err := scanner.Scan(
		&d.ID, &guestID, &d.Matiere, &d.Niveau, &d.Chapitre,
		&d.TypeDoc, &d.Difficulte, &d.NbExercices, &exercisesJSON, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if guestID.Valid {
		d.GuestID = &guestID.String
	}
	if err := json.Unmarshal([]byte(exercisesJSON), &d.Exercises); err != nil {
		return nil, fmt.Errorf("decode exercises: %w", err)
	}
	return &d, nil
}

const documentCols = `id, guest_id, matiere, niveau, chapitre, type_doc, difficulte, nb_exercices, exercises, created_at`

func (s *DocumentStore) Create(doc *model.Document) (*model.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	exercisesJSON, err := json.Marshal(doc.Exercises)
	if err != nil {
		return nil, fmt.Errorf("encode exercises: %w", err)
	}

	var guestVal sql.NullString
	if doc.GuestID != nil && *doc.GuestID != "" {
		guestVal = sql.NullString{String: *doc.GuestID, Valid: true}
	}

	_, err = s.db.Exec(
		`INSERT INTO documents (id, guest_id, matiere, niveau, chapitre, type_doc, difficulte, nb_exercices, exercises)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, guestVal, doc.Matiere, doc.Niveau, doc.Chapitre,
		doc.TypeDoc, doc.Difficulte, doc.NbExercices, string(exercisesJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return s.GetByID(doc.ID)
}

func (s *DocumentStore) GetByID(id string) (*model.Document, error) {
	row := s.db.QueryRow(`SELECT `+documentCols+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListByGuestID returns the guest's most recent documents, newest first.
func (s *DocumentStore) ListByGuestID(guestID string, limit int) ([]*model.Document, error) {
	rows, err := s.db.Query(
		`SELECT `+documentCols+` FROM documents WHERE guest_id = ? ORDER BY created_at DESC LIMIT ?`,
		guestID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ReplaceExercise swaps one exercise in place, preserving the others.
func (s *DocumentStore) ReplaceExercise(id string, index int, ex model.Exercise) error {
	doc, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %s not found", id)
	}
	if index < 0 || index >= len(doc.Exercises) {
		return fmt.Errorf("exercise index %d out of range", index)
	}
	doc.Exercises[index] = ex

	exercisesJSON, err := json.Marshal(doc.Exercises)
	if err != nil {
		return fmt.Errorf("encode exercises: %w", err)
	}
	_, err = s.db.Exec(`UPDATE documents SET exercises = ? WHERE id = ?`, string(exercisesJSON), id)
	if err != nil {
		return fmt.Errorf("update exercises: %w", err)
	}
	return nil
}
