package model

import "time"

// Exercise kinds.
const (
	ExerciseOpen  = "ouvert"
	ExerciseQCM   = "qcm"
	ExerciseMixed = "mixte"
)

// Exercise is one generated exercise with its solution.
type Exercise struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Enonce    string   `json:"enonce"`
	Questions []string `json:"questions,omitempty"`
	Solution  string   `json:"solution"`
	Bareme    int      `json:"bareme"`
}

// Document is a generated exercise sheet, test, or homework assignment.
type Document struct {
	ID          string     `json:"id"`
	GuestID     *string    `json:"guest_id,omitempty"`
	Matiere     string     `json:"matiere"`
	Niveau      string     `json:"niveau"`
	Chapitre    string     `json:"chapitre"`
	TypeDoc     string     `json:"type_doc"`
	Difficulte  string     `json:"difficulte"`
	NbExercices int        `json:"nb_exercices"`
	Exercises   []Exercise `json:"exercises"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Export types.
const (
	ExportSujet   = "sujet"
	ExportCorrige = "corrige"
)

// ExportRecord is an append-only audit row for each authorized export.
// For guests it doubles as the quota counter.
type ExportRecord struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	ExportType   string    `json:"export_type"`
	GuestID      *string   `json:"guest_id,omitempty"`
	Email        *string   `json:"email,omitempty"`
	TemplateUsed string    `json:"template_used"`
	CreatedAt    time.Time `json:"created_at"`
}

// QuotaStatus reports a guest's position against the free export ceiling.
type QuotaStatus struct {
	ExportsUsed      int  `json:"exports_used"`
	ExportsRemaining int  `json:"exports_remaining"`
	MaxExports       int  `json:"max_exports"`
	QuotaExceeded    bool `json:"quota_exceeded"`
}
