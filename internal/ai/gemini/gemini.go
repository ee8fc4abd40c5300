package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	Client *genai.Client
	Model  *genai.GenerativeModel
}

func NewGenAIClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client init failed: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.1)

	return &GeminiClient{
		Client: client,
		Model:  model,
	}, nil
}

// NewGenAIClients builds one client per API key. Keys that fail to
// initialize are skipped; an error is returned only when none succeed.
func NewGenAIClients(ctx context.Context, apiKeys []string, modelName string) ([]GeminiClient, error) {
	clients := make([]GeminiClient, 0, len(apiKeys))
	var errs []error
	for i, key := range apiKeys {
		client, err := NewGenAIClient(ctx, key, modelName)
		if err != nil {
			errs = append(errs, fmt.Errorf("key[%d]: %w", i, err))
			continue
		}
		clients = append(clients, *client)
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no Gemini client could be created: %w", errors.Join(errs...))
	}
	return clients, nil
}

// GenerateText sends prompt and returns the first text part of the reply.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.Model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content returned from AI")
	}
	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("response part is not text, received %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(textPart), nil
}

func (g *GeminiClient) Close() error {
	return g.Client.Close()
}

// ParseJSONReply decodes a model reply into dest, tolerating a markdown
// ```json fence around the payload.
func ParseJSONReply(reply string, dest any) error {
	aiResponse := strings.TrimSpace(reply)
	if strings.HasPrefix(aiResponse, "```") {
		aiResponse = strings.TrimPrefix(aiResponse, "```json")
		aiResponse = strings.TrimPrefix(aiResponse, "```")
		aiResponse = strings.TrimSuffix(aiResponse, "```")
	}
	aiResponse = strings.TrimSpace(aiResponse)

	if err := json.Unmarshal([]byte(aiResponse), dest); err != nil {
		return fmt.Errorf("failed to unmarshal AI response to JSON: %w. \nRaw response was: %s", err, aiResponse)
	}
	return nil
}
