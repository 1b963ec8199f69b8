// Package generator produces exercise sets for documents. When an
// external generation service is configured it is asked first; any
// failure falls through to deterministic built-in templates so document
// creation keeps working while the service is down.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lemaitremot/maitremot/internal/model"
)

// Config holds generation service configuration from environment variables.
type Config struct {
	BaseURL string
	APIKey  string
}

// Service requests exercises from the generation service, with a local
// fallback.
type Service struct {
	config Config
	client *http.Client
}

// NewService creates a generator. An empty BaseURL means the external
// service is not configured and only fallback templates are used.
func NewService(cfg Config) *Service {
	return &Service{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an external generation service is set up.
func (s *Service) Configured() bool {
	return s.config.BaseURL != ""
}

// Request describes one generation call.
type Request struct {
	Matiere     string `json:"matiere"`
	Niveau      string `json:"niveau"`
	Chapitre    string `json:"chapitre"`
	TypeDoc     string `json:"type_doc"`
	Difficulte  string `json:"difficulte"`
	NbExercices int    `json:"nb_exercices"`
}

// Generate returns exercises for the request. It never returns an empty
// set on a valid request: external failures degrade to fallback output.
func (s *Service) Generate(ctx context.Context, req Request) ([]model.Exercise, error) {
	if s.Configured() {
		exercises, err := s.fetch(ctx, req)
		if err == nil && len(exercises) > 0 {
			return exercises, nil
		}
	}
	return Fallback(req), nil
}

type apiResponse struct {
	Exercises []model.Exercise `json:"exercises"`
}

func (s *Service) fetch(ctx context.Context, req Request) ([]model.Exercise, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}

	for i := range apiResp.Exercises {
		if apiResp.Exercises[i].ID == "" {
			apiResp.Exercises[i].ID = uuid.NewString()
		}
		if apiResp.Exercises[i].Type == "" {
			apiResp.Exercises[i].Type = model.ExerciseOpen
		}
	}
	return apiResp.Exercises, nil
}

// Chapter-keyed statement templates. {a} {b} {c} are substituted with
// small random integers.
var fallbackTemplates = map[string][]string{
	"Nombres relatifs": {
		"Calculer : {a} + {b} - ({c})",
		"Déterminer le signe de : {a} × {b}",
		"Résoudre : x + {a} = {b}",
	},
	"Volumes": {
		"Calculer le volume d'un pavé de dimensions {a} cm × {b} cm × {c} cm",
		"Une boîte cubique a une arête de {a} cm. Quel est son volume ?",
		"Convertir {a} L en cm³",
	},
	"Fractions": {
		"Calculer : 1/{a} + 1/{b}",
		"Simplifier : {a}/{b}",
		"Comparer : 1/{a} et 1/{b}",
	},
	"Récits d'aventures": {
		"Identifier les étapes du schéma narratif dans un extrait",
		"Relever le vocabulaire de l'action dans le texte",
		"Expliquer les motivations du héros",
	},
	"Grammaire - La phrase": {
		"Identifier le sujet et le verbe dans la phrase",
		"Transformer la phrase en phrase interrogative",
		"Corriger les erreurs de ponctuation",
	},
	"Conjugaison - Présent, passé, futur": {
		"Conjuguer le verbe au temps demandé",
		"Identifier le temps des verbes soulignés",
		"Transformer la phrase au temps indiqué",
	},
	"Matière, mouvement, énergie, information": {
		"Classer ces objets selon leur état physique",
		"Identifier les propriétés de la matière observées",
		"Décrire les changements observés",
	},
	"Organisation et transformations de la matière": {
		"Identifier s'il s'agit d'un mélange ou d'un corps pur",
		"Décrire la transformation observée",
		"Expliquer le changement d'état",
	},
	"Mouvement et interactions": {
		"Décrire le mouvement de l'objet",
		"Identifier les forces qui s'exercent",
		"Calculer la vitesse moyenne",
	},
}

// Fallback builds exercises from built-in templates, cycling through the
// chapter's statements.
func Fallback(req Request) []model.Exercise {
	templates, ok := fallbackTemplates[req.Chapitre]
	if !ok {
		templates = []string{fmt.Sprintf("Exercice sur %s", req.Chapitre)}
	}

	exercises := make([]model.Exercise, 0, req.NbExercices)
	for i := 0; i < req.NbExercices; i++ {
		enonce := substitute(templates[i%len(templates)])
		exercises = append(exercises, model.Exercise{
			ID:       uuid.NewString(),
			Type:     model.ExerciseOpen,
			Enonce:   enonce,
			Solution: "Appliquer la méthode du cours, puis effectuer les calculs.",
			Bareme:   4,
		})
	}
	return exercises
}

func substitute(template string) string {
	out := template
	for _, ph := range []string{"{a}", "{b}", "{c}"} {
		out = strings.ReplaceAll(out, ph, strconv.Itoa(2+rand.Intn(8)))
	}
	return out
}
