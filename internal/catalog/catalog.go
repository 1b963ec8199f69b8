// Package catalog holds the static French curriculum catalog and the
// pricing packages. Both are compiled in: the catalog changes once a
// year at most and the product only sells two packages.
package catalog

// Subject is one school subject with its chapters grouped by level.
type Subject struct {
	Name   string              `json:"name"`
	Levels map[string][]string `json:"levels"`
}

// Package is a purchasable subscription package.
type Package struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Period   string  `json:"period"`
}

// Levels taught, collège only.
var Levels = []string{"6e", "5e", "4e", "3e"}

var subjects = []Subject{
	{
		Name: "Mathématiques",
		Levels: map[string][]string{
			"6e": {
				"Nombres entiers et décimaux",
				"Fractions",
				"Géométrie - Figures planes",
				"Périmètres et aires",
				"Volumes",
				"Proportionnalité",
			},
			"5e": {
				"Nombres relatifs",
				"Fractions et nombres décimaux",
				"Expressions littérales",
				"Équations",
				"Géométrie - Triangles",
				"Parallélogrammes",
				"Symétrie centrale",
				"Statistiques",
			},
			"4e": {
				"Nombres relatifs",
				"Fractions et puissances",
				"Calcul littéral",
				"Équations et inéquations",
				"Théorème de Pythagore",
				"Géométrie - Cosinus",
				"Statistiques et probabilités",
			},
			"3e": {
				"Arithmétique",
				"Calcul littéral et équations",
				"Fonctions linéaires et affines",
				"Théorème de Thalès",
				"Trigonométrie",
				"Statistiques et probabilités",
				"Géométrie dans l'espace",
			},
		},
	},
	{
		Name: "Français",
		Levels: map[string][]string{
			"6e": {
				"Récits d'aventures",
				"Récits de création et création poétique",
				"Résister au plus fort : ruses, mensonges et masques",
				"Grammaire - La phrase",
				"Conjugaison - Présent, passé, futur",
				"Orthographe - Accords dans le groupe nominal",
				"Vocabulaire - Formation des mots",
			},
			"5e": {
				"Le voyage et l'aventure : pourquoi aller vers l'inconnu ?",
				"Avec autrui : familles, amis, réseaux",
				"Héros/héroïnes et héroïsmes",
				"Grammaire - Classes et fonctions",
				"Conjugaison - Modes et temps",
				"Orthographe - Accords sujet-verbe",
				"Vocabulaire - Sens propre et figuré",
			},
			"4e": {
				"Dire l'amour",
				"Individu et société : confrontations de valeurs ?",
				"Fiction pour interroger le réel",
				"Grammaire - La phrase complexe",
				"Conjugaison - Temps du récit",
				"Orthographe - Participe passé",
				"Vocabulaire - Registres de langue",
			},
			"3e": {
				"Se raconter, se représenter",
				"Dénoncer les travers de la société",
				"Visions poétiques du monde",
				"Agir sur le monde",
				"Grammaire - Subordonnées",
				"Expression écrite - Argumentation",
				"Vocabulaire - Champs lexicaux",
			},
		},
	},
	{
		Name: "Physique-Chimie",
		Levels: map[string][]string{
			"6e": {
				"Matière, mouvement, énergie, information",
				"Le vivant, sa diversité et les fonctions qui le caractérisent",
				"Matériaux et objets techniques",
				"La planète Terre, les êtres vivants dans leur environnement",
			},
			"5e": {
				"Organisation et transformations de la matière",
				"Mouvement et interactions",
				"L'énergie et ses conversions",
				"Des signaux pour observer et communiquer",
			},
			"4e": {
				"Organisation et transformations de la matière",
				"Mouvement et interactions",
				"L'énergie et ses conversions",
				"Des signaux pour observer et communiquer",
			},
			"3e": {
				"Organisation et transformations de la matière",
				"Mouvement et interactions",
				"L'énergie et ses conversions",
				"Des signaux pour observer et communiquer",
			},
		},
	},
}

var packages = []Package{
	{ID: "monthly", Name: "Abonnement Mensuel", Amount: 9.99, Currency: "eur", Period: "month"},
	{ID: "yearly", Name: "Abonnement Annuel", Amount: 99.00, Currency: "eur", Period: "year"},
}

// Subjects returns the full curriculum catalog.
func Subjects() []Subject {
	return subjects
}

// Packages returns the purchasable subscription packages.
func Packages() []Package {
	return packages
}

// PackageByID looks up a package, returning false for unknown IDs.
func PackageByID(id string) (Package, bool) {
	for _, p := range packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

// ValidEntry reports whether the subject/level/chapter triple exists in
// the catalog. Document generation refuses anything off-catalog.
func ValidEntry(matiere, niveau, chapitre string) bool {
	for _, s := range subjects {
		if s.Name != matiere {
			continue
		}
		for _, c := range s.Levels[niveau] {
			if c == chapitre {
				return true
			}
		}
	}
	return false
}

// DocTypes and difficulties accepted by document generation.
var (
	DocTypes     = []string{"exercices", "controle", "dm"}
	Difficulties = []string{"facile", "moyen", "difficile"}
)

// ValidDocType reports whether t is a known document type.
func ValidDocType(t string) bool {
	for _, d := range DocTypes {
		if d == t {
			return true
		}
	}
	return false
}

// ValidDifficulty reports whether d is a known difficulty.
func ValidDifficulty(d string) bool {
	for _, x := range Difficulties {
		if x == d {
			return true
		}
	}
	return false
}
