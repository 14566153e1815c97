package aiprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"

	"place-scout/config"
)

const identifyInstruction = `
You are a travel assistant that identifies a physical place from a photo.
The response MUST be a valid JSON object with four keys:
1. name: The most likely name of the place shown.
2. category: A single language-neutral category code (e.g. "museum", "park", "restaurant", "landmark").
3. locality: The city or area the place is in, empty string if unknown.
4. confidence: A number between 0 and 1.
You MUST NOT wrap the JSON output in a markdown code block (e.g. ` + "```json ... ```" + `). The response should contain ONLY the raw JSON string.
If no identifiable place is visible, set name to an empty string and confidence to 0.
`

// GeminiProvider 는 google.golang.org/genai 기반 구현이다.
type GeminiProvider struct {
	model string
}

func NewGeminiProvider(settings config.ProviderSettings) *GeminiProvider {
	return &GeminiProvider{model: settings.Model}
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Available() bool {
	return g.model != "" && os.Getenv("GEMINI_API_KEY") != ""
}

func (g *GeminiProvider) client(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
}

func (g *GeminiProvider) GenerateText(ctx context.Context, prompt, systemPrompt string) (string, error) {
	client, err := g.client(ctx)
	if err != nil {
		return "", g.wrap(err)
	}

	var genCfg *genai.GenerateContentConfig
	if systemPrompt != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", g.wrap(err)
	}
	return result.Text(), nil
}

func (g *GeminiProvider) IdentifyPlace(ctx context.Context, imageURL string) (*PlaceIdentification, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, g.wrap(err)
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{FileData: &genai.FileData{FileURI: imageURL, MIMEType: "image/jpeg"}},
			{Text: "Identify the place in this photo."},
		},
	}}
	result, err := client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: identifyInstruction}}},
	})
	if err != nil {
		return nil, g.wrap(err)
	}

	var ident PlaceIdentification
	if err := json.Unmarshal([]byte(result.Text()), &ident); err != nil {
		return nil, &ProviderError{
			Provider: g.Name(),
			Class:    ClassProtocol,
			Cause:    fmt.Errorf("unexpected response schema: %w", err),
		}
	}
	return &ident, nil
}

// wrap 은 genai SDK 에러를 공통 분류로 정규화한다.
func (g *GeminiProvider) wrap(err error) *ProviderError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider: g.Name(),
			Status:   apiErr.Code,
			Class:    ClassifyStatus(apiErr.Code),
			Cause:    err,
		}
	}
	return classify(g.Name(), err)
}
