// Package render turns a document into export bytes. The output is a
// self-contained printable HTML page; the PDF conversion itself happens
// client-side (browser print dialog), which keeps the server free of
// headless-browser dependencies.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/lemaitremot/maitremot/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Style is one of the built-in document layouts.
type Style struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
	HeaderFont     string `json:"header_font"`
	ContentFont    string `json:"content_font"`
}

// DefaultStyle is applied to guest exports and to Pro profiles that
// never picked a style.
const DefaultStyle = "minimaliste"

var styles = []Style{
	{
		ID:             "minimaliste",
		Name:           "Minimaliste",
		Description:    "Design épuré et moderne",
		PrimaryColor:   "#2c3e50",
		SecondaryColor: "#7f8c8d",
		AccentColor:    "#3498db",
		HeaderFont:     "Helvetica",
		ContentFont:    "Helvetica",
	},
	{
		ID:             "classique",
		Name:           "Classique",
		Description:    "Style académique traditionnel",
		PrimaryColor:   "#1a1a1a",
		SecondaryColor: "#4a4a4a",
		AccentColor:    "#8b4513",
		HeaderFont:     "Times-Roman",
		ContentFont:    "Times-Roman",
	},
	{
		ID:             "moderne",
		Name:           "Moderne",
		Description:    "Design contemporain et aéré",
		PrimaryColor:   "#34495e",
		SecondaryColor: "#95a5a6",
		AccentColor:    "#e74c3c",
		HeaderFont:     "Helvetica",
		ContentFont:    "Helvetica",
	},
}

// Styles returns the selectable document styles.
func Styles() []Style {
	return styles
}

// StyleByID looks up a style, falling back to the default for unknown IDs.
func StyleByID(id string) Style {
	for _, s := range styles {
		if s.ID == id {
			return s
		}
	}
	return StyleByID(DefaultStyle)
}

// ValidStyle reports whether id names a built-in style.
func ValidStyle(id string) bool {
	for _, s := range styles {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Renderer renders documents with the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded export templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse export templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type exportData struct {
	Document  *model.Document
	Corrige   bool
	Style     Style
	Professor string
	School    string
	Year      string
	Footer    string
	Date      string
}

// Render produces the export bytes for a document. A nil profile means a
// guest export: standard layout, no personalization header.
func (r *Renderer) Render(doc *model.Document, exportType string, profile *model.TemplateProfile) ([]byte, error) {
	if exportType != model.ExportSujet && exportType != model.ExportCorrige {
		return nil, fmt.Errorf("unknown export type %q", exportType)
	}

	data := exportData{
		Document: doc,
		Corrige:  exportType == model.ExportCorrige,
		Style:    StyleByID(DefaultStyle),
		Date:     time.Now().Format("02/01/2006"),
	}
	if profile != nil {
		data.Style = StyleByID(profile.TemplateStyle)
		data.Professor = deref(profile.ProfessorName)
		data.School = deref(profile.SchoolName)
		data.Year = deref(profile.SchoolYear)
		data.Footer = deref(profile.FooterText)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "export.html", data); err != nil {
		return nil, fmt.Errorf("render document %s: %w", doc.ID, err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
