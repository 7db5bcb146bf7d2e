package analysis

import (
	"context"

	"github.com/drewmudry/shootplan-api/complexity"
)

// Client performs one remote script analysis. Implementations classify their
// failures as *Error; anything else is treated as an API error.
type Client interface {
	AnalyzeScript(ctx context.Context, scriptText string) (*Result, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, scriptText string) (*Result, error)

func (f ClientFunc) AnalyzeScript(ctx context.Context, scriptText string) (*Result, error) {
	return f(ctx, scriptText)
}

// ProgressFunc receives human readable status updates and the current attempt.
type ProgressFunc func(message string, attempt int)

// Result is the breakdown produced for a script. JSON keys follow the
// analysis endpoint contract.
type Result struct {
	GeneralInfo       *GeneralInfo       `json:"informacion_general"`
	Characters        []Character        `json:"personajes"`
	Locations         []Location         `json:"localizaciones"`
	Sequences         []Sequence         `json:"desglose_secuencias"`
	ProductionSummary *ProductionSummary `json:"resumen_produccion"`
}

type GeneralInfo struct {
	Title            string `json:"titulo" jsonschema_description:"Title of the screenplay"`
	Genre            string `json:"genero" jsonschema_description:"Main genre"`
	Logline          string `json:"logline" jsonschema_description:"One sentence summary of the story"`
	EstimatedPages   int    `json:"paginas_estimadas" jsonschema_description:"Estimated page count"`
	EstimatedMinutes int    `json:"duracion_estimada_minutos" jsonschema_description:"Estimated running time in minutes"`
}

type Character struct {
	Name        string `json:"nombre" jsonschema_description:"Character name as written in the script"`
	Description string `json:"descripcion" jsonschema_description:"Short description of the character"`
	Category    string `json:"categoria" jsonschema_description:"One of: protagonista, principal, secundario, figuracion"`
	Sequences   []int  `json:"secuencias" jsonschema_description:"Sequence numbers the character appears in"`
}

type Location struct {
	Name        string `json:"nombre" jsonschema_description:"Location name from the scene headings"`
	Description string `json:"descripcion" jsonschema_description:"Short description of the place"`
	Type        string `json:"tipo" jsonschema_description:"INT or EXT"`
	Sequences   []int  `json:"secuencias" jsonschema_description:"Sequence numbers set in this location"`
}

type Sequence struct {
	Number      int                `json:"numero" jsonschema_description:"Sequence number in script order, starting at 1"`
	Heading     string             `json:"encabezado" jsonschema_description:"Scene heading line, e.g. INT. COCINA - NOCHE"`
	Description string             `json:"descripcion" jsonschema_description:"Summary of the action"`
	IntExt      string             `json:"int_ext" jsonschema_description:"INT or EXT"`
	TimeOfDay   string             `json:"momento_dia" jsonschema_description:"One of: DÍA, NOCHE, ATARDECER, AMANECER"`
	Eighths     int                `json:"octavos" jsonschema_description:"Length in eighths of a page, at least 1"`
	Location    string             `json:"localizacion" jsonschema_description:"Name of the location, matching a location entry"`
	Characters  []string           `json:"personajes" jsonschema_description:"Names of the characters in the sequence"`
	StoryDay    int                `json:"dia_ficcion" jsonschema_description:"Fictional day number in the story, 0 if unknown"`
	Factors     complexity.Factors `json:"complejidad_factores" jsonschema_description:"Production complexity factors observed in the sequence"`
}

type ProductionSummary struct {
	TotalSequences     int    `json:"total_secuencias" jsonschema_description:"Number of sequences"`
	TotalEighths       int    `json:"total_octavos" jsonschema_description:"Sum of eighths over all sequences"`
	EstimatedShootDays int    `json:"dias_rodaje_estimados" jsonschema_description:"Estimated number of shooting days"`
	Notes              string `json:"notas" jsonschema_description:"Production notes and risks"`
}

// Validate checks that the result carries every section the ingestion needs.
// Empty lists are allowed; missing ones are not.
func (r *Result) Validate() error {
	switch {
	case r == nil:
		return NewError(KindMalformedResponse, "analysis response is empty", nil)
	case r.Characters == nil:
		return NewError(KindMalformedResponse, "analysis response has no character list", nil)
	case r.Locations == nil:
		return NewError(KindMalformedResponse, "analysis response has no location list", nil)
	case r.Sequences == nil:
		return NewError(KindMalformedResponse, "analysis response has no sequence list", nil)
	case r.ProductionSummary == nil:
		return NewError(KindMalformedResponse, "analysis response has no production summary", nil)
	}
	return nil
}
