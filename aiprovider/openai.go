package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"place-scout/config"
	"place-scout/httpclient"
)

// OpenAIProvider 는 OpenAI 호환 chat completions HTTP API 기반 구현이다.
// base_url 을 바꾸면 호환 게이트웨이도 그대로 쓸 수 있다.
type OpenAIProvider struct {
	base  *httpclient.BaseClient
	model string
}

func NewOpenAIProvider(settings config.ProviderSettings) *OpenAIProvider {
	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	hc := httpclient.New(httpclient.Config{Timeout: 60 * time.Second})
	return &OpenAIProvider{
		base:  httpclient.NewBaseClientWithClient(hc, baseURL),
		model: settings.Model,
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) Available() bool {
	return o.model != "" && os.Getenv("OPENAI_API_KEY") != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type imageContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

func (o *OpenAIProvider) GenerateText(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})
	return o.chat(ctx, messages)
}

func (o *OpenAIProvider) IdentifyPlace(ctx context.Context, imageURL string) (*PlaceIdentification, error) {
	parts := []imageContentPart{
		{Type: "text", Text: "Identify the place in this photo."},
		{Type: "image_url", ImageURL: &struct {
			URL string `json:"url"`
		}{URL: imageURL}},
	}
	messages := []chatMessage{
		{Role: "system", Content: identifyInstruction},
		{Role: "user", Content: parts},
	}

	raw, err := o.chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	var ident PlaceIdentification
	if err := json.Unmarshal([]byte(raw), &ident); err != nil {
		return nil, &ProviderError{
			Provider: o.Name(),
			Class:    ClassProtocol,
			Cause:    fmt.Errorf("unexpected response schema: %w", err),
		}
	}
	return &ident, nil
}

func (o *OpenAIProvider) chat(ctx context.Context, messages []chatMessage) (string, error) {
	payload := chatRequest{Model: o.model, Messages: messages}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := o.base.NewRequest(ctx, http.MethodPost, "/v1/chat/completions", nil, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+os.Getenv("OPENAI_API_KEY"))

	resp, err := o.base.Do(req)
	if err != nil {
		return "", classify(o.Name(), err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider: o.Name(),
			Status:   resp.StatusCode,
			Class:    ClassifyStatus(resp.StatusCode),
			Cause:    fmt.Errorf("chat completions failed: %s", truncate(body, 512)),
		}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &ProviderError{Provider: o.Name(), Class: ClassProtocol, Cause: err}
	}
	if len(out.Choices) == 0 {
		return "", &ProviderError{
			Provider: o.Name(),
			Class:    ClassProtocol,
			Cause:    fmt.Errorf("chat completions returned no choices"),
		}
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
