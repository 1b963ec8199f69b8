package store

import (
	"database/sql"
	"fmt"

	"github.com/lemaitremot/maitremot/internal/model"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplateProfile(scanner interface{ Scan(...any) error }) (*model.TemplateProfile, error) {
	var t model.TemplateProfile
	var professor, school, year, footer sql.NullString
	err := scanner.Scan(&t.Email, &professor, &school, &year, &footer, &t.TemplateStyle, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if professor.Valid {
		t.ProfessorName = &professor.String
	}
	if school.Valid {
		t.SchoolName = &school.String
	}
	if year.Valid {
		t.SchoolYear = &year.String
	}
	if footer.Valid {
		t.FooterText = &footer.String
	}
	return &t, nil
}

const templateProfileCols = `email, professor_name, school_name, school_year, footer_text, template_style, updated_at`

func (s *TemplateStore) GetByEmail(email string) (*model.TemplateProfile, error) {
	row := s.db.QueryRow(`SELECT `+templateProfileCols+` FROM template_profiles WHERE email = ?`, email)
	t, err := scanTemplateProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template profile: %w", err)
	}
	return t, nil
}

func (s *TemplateStore) Save(t *model.TemplateProfile) (*model.TemplateProfile, error) {
	nullable := func(p *string) sql.NullString {
		if p != nil && *p != "" {
			return sql.NullString{String: *p, Valid: true}
		}
		return sql.NullString{}
	}

	_, err := s.db.Exec(
		`INSERT INTO template_profiles (email, professor_name, school_name, school_year, footer_text, template_style)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   professor_name = excluded.professor_name,
		   school_name = excluded.school_name,
		   school_year = excluded.school_year,
		   footer_text = excluded.footer_text,
		   template_style = excluded.template_style,
		   updated_at = datetime('now')`,
		t.Email, nullable(t.ProfessorName), nullable(t.SchoolName),
		nullable(t.SchoolYear), nullable(t.FooterText), t.TemplateStyle,
	)
	if err != nil {
		return nil, fmt.Errorf("save template profile: %w", err)
	}
	return s.GetByEmail(t.Email)
}
