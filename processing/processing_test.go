package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewmudry/shootplan-api/analysis"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", "", nil, option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", "", nil)
	assert.Error(t, err)
}

func TestAnalyzeScript_ReturnsResult(t *testing.T) {
	breakdown := BreakdownResponse{
		IsScreenplay: true,
		GeneralInfo:  analysis.GeneralInfo{Title: "El faro"},
		Characters:   []analysis.Character{{Name: "MARTA"}},
		Locations:    []analysis.Location{{Name: "FARO"}},
		Sequences:    []analysis.Sequence{{Number: 1, Heading: "EXT. FARO - NOCHE", Eighths: 4}},
		ProductionSummary: analysis.ProductionSummary{
			TotalSequences: 1,
			TotalEighths:   4,
		},
	}
	content, err := json.Marshal(breakdown)
	require.NoError(t, err)

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(raw), "script_breakdown")
		assert.Contains(t, string(raw), "INT. COCINA")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion(string(content)))
	})

	res, err := c.AnalyzeScript(context.Background(), "INT. COCINA - DÍA\nMarta entra.")
	require.NoError(t, err)
	require.NoError(t, res.Validate())
	assert.Equal(t, "El faro", res.GeneralInfo.Title)
	assert.Equal(t, 4, res.Sequences[0].Eighths)
}

func TestAnalyzeScript_NotAScreenplay(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion(`{"es_guion":false,"motivo":"es una receta de cocina"}`))
	})

	_, err := c.AnalyzeScript(context.Background(), "Mezclar la harina con los huevos.")
	assert.True(t, analysis.IsKind(err, analysis.KindMalformedScript))
}

func TestAnalyzeScript_InvalidJSON(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion(`{"es_guion":tr`))
	})

	_, err := c.AnalyzeScript(context.Background(), "INT. CASA - DÍA")
	assert.True(t, analysis.IsKind(err, analysis.KindInvalidJSON))
}

func TestAnalyzeScript_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   analysis.Kind
	}{
		{http.StatusTooManyRequests, analysis.KindRateLimit},
		{http.StatusPaymentRequired, analysis.KindPaymentRequired},
		{http.StatusInternalServerError, analysis.KindAPI},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"error"}}`)
			})

			_, err := c.AnalyzeScript(context.Background(), "INT. CASA - DÍA")
			assert.Equal(t, tt.want, analysis.KindOf(err))
		})
	}
}

func TestGenerateText_ConcatenatesStream(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(raw), `"stream":true`)
		assert.Contains(t, string(raw), "Eres un productor")

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hola", ", ", "mundo"} {
			chunk, _ := json.Marshal(map[string]interface{}{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1700000000,
				"model":   "gpt-4o-mini",
				"choices": []map[string]interface{}{{
					"index": 0,
					"delta": map[string]interface{}{"content": part},
				}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	text, err := c.GenerateText(context.Background(), TextRequest{
		Prompt:       "Saluda",
		SystemPrompt: "Eres un productor",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola, mundo", text)
}

func TestGenerateText_RateLimited(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit_error"}}`)
	})

	_, err := c.GenerateText(context.Background(), TextRequest{Prompt: "hola"})
	assert.True(t, analysis.IsKind(err, analysis.KindRateLimit))
}

func TestGenerateSchema_DisallowsAdditionalProperties(t *testing.T) {
	raw, err := json.Marshal(GenerateSchema[BreakdownResponse]())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"additionalProperties":false`)
	assert.Contains(t, string(raw), "desglose_secuencias")
}
