package processing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/drewmudry/shootplan-api/analysis"
)

// BreakdownResponse is the structured output of the script breakdown call.
type BreakdownResponse struct {
	IsScreenplay bool   `json:"es_guion" jsonschema_description:"false when the text is not a screenplay (no scene headings, no dialogue structure)"`
	Reason       string `json:"motivo" jsonschema_description:"Why the text is not a screenplay; empty otherwise"`

	GeneralInfo       analysis.GeneralInfo       `json:"informacion_general"`
	Characters        []analysis.Character       `json:"personajes"`
	Locations         []analysis.Location        `json:"localizaciones"`
	Sequences         []analysis.Sequence        `json:"desglose_secuencias"`
	ProductionSummary analysis.ProductionSummary `json:"resumen_produccion"`
}

var breakdownSchema = GenerateSchema[BreakdownResponse]()

const breakdownSystemPrompt = `You are a first assistant director preparing a script breakdown for a Spanish-language film production.
Read the screenplay and return every sequence in script order. For each sequence give the scene heading, a one line summary,
INT or EXT, the time of day (DÍA, NOCHE, ATARDECER or AMANECER), its length in eighths of a page (at least 1),
the location name, the characters present and the production complexity factors you can observe.
List every speaking character and every location once. Do not invent scenes that are not in the text.`

// AnalyzeScript runs the structured breakdown. It satisfies analysis.Client.
func (c *Client) AnalyzeScript(ctx context.Context, scriptText string) (*analysis.Result, error) {
	prompt := fmt.Sprintf("Screenplay:\n\n%s", scriptText)

	resp, err := getStructuredResponse[BreakdownResponse](ctx, c, breakdownSystemPrompt, prompt, "script_breakdown", breakdownSchema)
	if err != nil {
		return nil, err
	}
	if !resp.IsScreenplay {
		reason := strings.TrimSpace(resp.Reason)
		if reason == "" {
			reason = "the text does not look like a screenplay"
		}
		return nil, analysis.NewError(analysis.KindMalformedScript, reason, nil)
	}

	c.logger.Info("script breakdown received",
		zap.Int("sequences", len(resp.Sequences)),
		zap.Int("characters", len(resp.Characters)),
		zap.Int("locations", len(resp.Locations)))

	return resp.toResult(), nil
}

func (r *BreakdownResponse) toResult() *analysis.Result {
	info := r.GeneralInfo
	summary := r.ProductionSummary
	result := &analysis.Result{
		GeneralInfo:       &info,
		Characters:        r.Characters,
		Locations:         r.Locations,
		Sequences:         r.Sequences,
		ProductionSummary: &summary,
	}
	if result.Characters == nil {
		result.Characters = []analysis.Character{}
	}
	if result.Locations == nil {
		result.Locations = []analysis.Location{}
	}
	if result.Sequences == nil {
		result.Sequences = []analysis.Sequence{}
	}
	return result
}
