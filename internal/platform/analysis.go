package platform

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/processing"
)

// NewAnalyzer picks the analysis backend from the config: OpenAI when a key
// is set, else the remote analysis endpoint. The OpenAI client is returned as
// well because it also serves free-form generation; it is nil otherwise.
func NewAnalyzer(cfg Config, log *zap.Logger) (*analysis.Analyzer, *processing.Client, error) {
	opts := []analysis.Option{analysis.WithTimeout(cfg.AnalysisTimeout), analysis.WithLogger(log)}

	if cfg.OpenAIAPIKey != "" {
		client, err := processing.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, log)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create openai client")
		}
		log.Info("script analysis via openai", zap.String("model", cfg.OpenAIModel))
		return analysis.NewAnalyzer(client, opts...), client, nil
	}

	if cfg.AnalysisEndpointURL != "" {
		log.Info("script analysis via remote endpoint", zap.String("url", cfg.AnalysisEndpointURL))
		client := analysis.NewHTTPClient(cfg.AnalysisEndpointURL, cfg.AnalysisAPIKey, nil)
		return analysis.NewAnalyzer(client, opts...), nil, nil
	}

	return nil, nil, errors.New("set OPENAI_API_KEY or ANALYSIS_ENDPOINT_URL")
}
