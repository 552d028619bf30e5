package describe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVehicle() *types.Vehicle {
	year := 2021
	mileage := 32150
	vin := "1HGCV1F13MA012345"
	trim := "LX"
	return &types.Vehicle{
		Year:          &year,
		Make:          "Honda",
		Model:         "Accord",
		Trim:          &trim,
		VIN:           &vin,
		Mileage:       &mileage,
		ExteriorColor: types.ColorWhite,
		InteriorColor: types.ColorBlack,
		Decoding: &types.VinDecodingResult{
			Success:   true,
			BodyStyle: "Sedan/Saloon",
			Engine:    "1.5L 4-cyl",
		},
	}
}

func TestTemplateDescriber(t *testing.T) {
	text, err := TemplateDescriber{}.Describe(context.Background(), sampleVehicle())
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	assert.Equal(t, "2021 Honda Accord LX", lines[0])
	assert.Contains(t, lines, "Mileage: 32,150 miles")
	assert.Contains(t, lines, "Exterior: White")
	assert.Contains(t, lines, "Interior: Black")
	assert.Contains(t, lines, "Body: Sedan/Saloon")
	assert.Contains(t, lines, "Engine: 1.5L 4-cyl")
	assert.Contains(t, lines, "VIN: 1HGCV1F13MA012345")
	assert.NotContains(t, text, "Transmission")
}

func TestTemplateDescriber_SkipsUnknownAndFailedDecode(t *testing.T) {
	v := &types.Vehicle{
		Make:          "Ford",
		Model:         "F-150",
		ExteriorColor: types.ColorUnknown,
		Decoding:      &types.VinDecodingResult{Success: false, BodyStyle: "Pickup"},
	}
	text, err := TemplateDescriber{}.Describe(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "Ford F-150", text)
}

func TestTemplateDescriber_NilVehicle(t *testing.T) {
	_, err := TemplateDescriber{}.Describe(context.Background(), nil)
	assert.Error(t, err)
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0", groupThousands(0))
	assert.Equal(t, "999", groupThousands(999))
	assert.Equal(t, "1,000", groupThousands(1000))
	assert.Equal(t, "1,234,567", groupThousands(1234567))
	assert.Equal(t, "-12,000", groupThousands(-12000))
}

type fakeGenerator struct {
	prompt string
	out    string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func TestGeminiDescriber(t *testing.T) {
	gen := &fakeGenerator{out: "  Clean one-owner Accord.  "}
	text, err := NewGeminiDescriber(gen).Describe(context.Background(), sampleVehicle())
	require.NoError(t, err)

	assert.Equal(t, "Clean one-owner Accord.", text)
	assert.Contains(t, gen.prompt, "- 2021 Honda Accord LX")
	assert.Contains(t, gen.prompt, "- VIN: 1HGCV1F13MA012345")
	assert.Contains(t, gen.prompt, "at most 5 sentences")
	assert.NotContains(t, gen.prompt, "{{.")
}

func TestGeminiDescriber_Errors(t *testing.T) {
	_, err := NewGeminiDescriber(&fakeGenerator{err: errors.New("quota")}).Describe(context.Background(), sampleVehicle())
	assert.ErrorContains(t, err, "quota")

	_, err = NewGeminiDescriber(&fakeGenerator{out: "   "}).Describe(context.Background(), sampleVehicle())
	assert.ErrorContains(t, err, "empty description")
}

func TestGeminiDescriber_Truncates(t *testing.T) {
	gen := &fakeGenerator{out: strings.Repeat("a", maxDescriptionLen+50)}
	text, err := NewGeminiDescriber(gen).Describe(context.Background(), sampleVehicle())
	require.NoError(t, err)
	assert.Len(t, text, maxDescriptionLen)

	gen.out = strings.Repeat("é", maxDescriptionLen+1)
	text, err = NewGeminiDescriber(gen).Describe(context.Background(), sampleVehicle())
	require.NoError(t, err)
	assert.Equal(t, maxDescriptionLen, len([]rune(text)))
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "")
	assert.ErrorContains(t, err, "API key is required")
}

func TestExtractText(t *testing.T) {
	_, err := extractText(&genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates")

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("world")}},
		}},
	}
	text, err := extractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}
