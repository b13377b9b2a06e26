// Package advisor turns computed metrics into an AI-generated financial
// health report. The generative model is consumed as a black box
// prompt-to-JSON service; every failure path lands on a deterministic
// fallback so callers always get a renderable advisory.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/jmcabrera/pesowise/internal/compliance"
	"github.com/jmcabrera/pesowise/internal/metrics"
)

// DefaultModelName is the Gemini model used for advisories.
const DefaultModelName = "gemini-2.5-flash"

// Generation parameters for the advisory call.
const (
	defaultTemperature     = 0.4
	defaultMaxOutputTokens = 2048
)

// LoanEligibility is the advisor's loan recommendation.
type LoanEligibility struct {
	Eligible   bool    `json:"eligible"`
	MaxAmount  float64 `json:"maxAmount"`
	TermMonths int     `json:"termMonths"`
	Notes      string  `json:"notes"`
}

// Advisory is the parsed model output (or the fallback).
type Advisory struct {
	HealthScore     int             `json:"healthScore"` // 0-100
	Summary         string          `json:"summary"`
	Recommendations []string        `json:"recommendations"`
	LoanEligibility LoanEligibility `json:"loanEligibility"`
	// Source is "model" when the advisory came from the generative API and
	// "fallback" when it was derived locally.
	Source string `json:"source"`
}

// TextModel is the prompt-to-text surface of the generative API. It exists
// so the advisor can be tested without network access.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiModel calls Gemini through the genai client.
type GeminiModel struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// NewGeminiModel returns a GeminiModel with the default generation settings.
func NewGeminiModel() *GeminiModel {
	return &GeminiModel{
		Model:           DefaultModelName,
		Temperature:     defaultTemperature,
		MaxOutputTokens: defaultMaxOutputTokens,
	}
}

// GenerateText sends the prompt to Gemini and returns the raw response text.
func (g *GeminiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("GenerateText: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.Temperature),
		MaxOutputTokens: g.MaxOutputTokens,
	}

	resp, err := client.Models.GenerateContent(ctx, g.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("GenerateText: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("GenerateText: empty response from model")
	}
	return rawText, nil
}

// Advisor produces advisories from metrics and a compliance report.
type Advisor struct {
	model TextModel
	log   zerolog.Logger
}

// New builds an Advisor on the given model.
func New(model TextModel, log zerolog.Logger) *Advisor {
	return &Advisor{model: model, log: log}
}

// Advise asks the model for an advisory. Any model, transport or parse
// failure is logged and replaced with the deterministic fallback; the raw
// model text (empty on failure) is returned alongside for bookkeeping.
func (a *Advisor) Advise(ctx context.Context, m metrics.Metrics, report compliance.Report) (*Advisory, string) {
	prompt := BuildPrompt(m, report)

	rawText, err := a.model.GenerateText(ctx, prompt)
	if err != nil {
		a.log.Warn().Err(err).Msg("Advisory model call failed, using fallback")
		return Fallback(m, report), ""
	}

	advisory, err := parseAdvisory(rawText)
	if err != nil {
		a.log.Warn().Err(err).Msg("Advisory response unparseable, using fallback")
		return Fallback(m, report), rawText
	}
	return advisory, rawText
}

func parseAdvisory(rawText string) (*Advisory, error) {
	clean := extractJSONObject(rawText)
	if clean == "" {
		return nil, fmt.Errorf("parseAdvisory: no JSON object in response")
	}

	var adv Advisory
	if err := json.Unmarshal([]byte(clean), &adv); err != nil {
		return nil, fmt.Errorf("parseAdvisory: unmarshal JSON: %w", err)
	}

	if adv.HealthScore < 0 {
		adv.HealthScore = 0
	}
	if adv.HealthScore > 100 {
		adv.HealthScore = 100
	}
	adv.Source = "model"
	return &adv, nil
}
