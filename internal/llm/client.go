package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Role tags a message in a generation request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Format selects the shape of the generated text.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Message is one role-tagged entry of a request.
type Message struct {
	Role Role
	Text string
}

// Request is a single generation call.
type Request struct {
	Messages []Message
	Format   Format
	Tier     ModelTier
	// Temperature overrides the configured temperature when positive.
	Temperature float32
}

// System builds a system message.
func System(text string) Message { return Message{Role: RoleSystem, Text: text} }

// User builds a user message.
func User(text string) Message { return Message{Role: RoleUser, Text: text} }

// Assistant builds an assistant message.
func Assistant(text string) Message { return Message{Role: RoleAssistant, Text: text} }

// Client is the Generator abstraction.
type Client interface {
	// Generate returns the generated text. Empty output is an error.
	Generate(ctx context.Context, req Request) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Generate sends the request as a chat: system messages become the system
// instruction, earlier messages the history, and the last message is sent.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	system, history, last, err := splitMessages(req.Messages)
	if err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(modelName)
	temperature := c.config.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	model.SetTemperature(temperature)
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	if req.Format == FormatJSON {
		model.ResponseMIMEType = "application/json"
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	if req.Format == FormatJSON {
		text = CleanJSONBlock(text)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model %s", modelName)
	}
	return text, nil
}

// splitMessages separates system text, chat history and the final message.
func splitMessages(messages []Message) (system []string, history []*genai.Content, last string, err error) {
	var chat []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Text)
			continue
		}
		chat = append(chat, m)
	}
	if len(chat) == 0 {
		return nil, nil, "", fmt.Errorf("request has no user or assistant messages")
	}

	for _, m := range chat[:len(chat)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Text)}})
	}
	return system, history, chat[len(chat)-1].Text, nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
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
