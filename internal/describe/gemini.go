package describe

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jonathan/inventory-poster/internal/prompts"
	"github.com/jonathan/inventory-poster/internal/types"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model used for descriptions.
const DefaultModel = "gemini-2.5-flash-lite"

// maxDescriptionLen bounds generated text to what the marketplace form accepts.
const maxDescriptionLen = 2000

// Generator is the text-generation surface GeminiDescriber needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiDescriber asks a language model for a short listing description.
type GeminiDescriber struct {
	gen Generator
}

// NewGeminiDescriber wraps an existing Generator.
func NewGeminiDescriber(gen Generator) *GeminiDescriber {
	return &GeminiDescriber{gen: gen}
}

// Describe implements Describer.
func (d *GeminiDescriber) Describe(ctx context.Context, v *types.Vehicle) (string, error) {
	if v == nil {
		return "", fmt.Errorf("vehicle is required")
	}
	text, err := d.gen.Generate(ctx, buildPrompt(v))
	if err != nil {
		return "", fmt.Errorf("failed to generate description: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("model returned an empty description")
	}
	if r := []rune(text); len(r) > maxDescriptionLen {
		text = string(r[:maxDescriptionLen])
	}
	return text, nil
}

func buildPrompt(v *types.Vehicle) string {
	var b strings.Builder
	for _, line := range facts(v) {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return prompts.Format(prompts.MustGet("describe.json", "listing_description"), map[string]string{
		"MaxSentences": "5",
		"Facts":        b.String(),
	})
}

// GeminiGenerator implements Generator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	system string
}

// NewGeminiGenerator creates a Gemini-backed Generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{
		client: client,
		model:  model,
		system: prompts.MustGet("describe.json", "listing_description_system"),
	}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.4)
	if g.system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(g.system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(resp)
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
