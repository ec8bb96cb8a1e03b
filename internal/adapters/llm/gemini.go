package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/converselabs/converse/internal/domain"
)

// GeminiClient implements domain.CompletionClient on Vertex AI (Gemini)
// through the genai Chats API. The conversation handle it returns wraps
// the provider-side chat, so a reused handle skips re-sending the
// assembled history.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

type GeminiConfig struct {
	ProjectID string
	Location  string
	ModelName string
}

// NewGeminiClient creates a Vertex AI backed completion client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("gemini client requires project and location")
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// chatHandle ties a provider-side chat to the mode it was created with.
// The system instruction is fixed at chat creation, so a chat primed for
// one mode must not serve another.
type chatHandle struct {
	chat *genai.Chat
	mode domain.CompletionMode
}

// reusableChat returns the wrapped chat when the handle is ours and was
// created for the requested mode.
func reusableChat(handle domain.ConversationHandle, mode domain.CompletionMode) (*genai.Chat, bool) {
	h, ok := handle.(chatHandle)
	if !ok || h.chat == nil || h.mode != mode {
		return nil, false
	}
	return h.chat, true
}

// Complete implements domain.CompletionClient.
func (c *GeminiClient) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResult, error) {
	chat, ok := reusableChat(req.Handle, req.Mode)
	if !ok {
		var err error
		chat, err = c.newChat(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	res, err := chat.SendMessage(ctx, genai.Part{Text: req.Message})
	if err != nil {
		return nil, fmt.Errorf("gemini send message: %w", err)
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty text")
	}

	return &domain.CompletionResult{
		Text:   text,
		Handle: chatHandle{chat: chat, mode: req.Mode},
	}, nil
}

// newChat starts a provider-side chat primed with the assembled history.
func (c *GeminiClient) newChat(ctx context.Context, req domain.CompletionRequest) (*genai.Chat, error) {
	temp := float32(0.7)
	topP := float32(0.9)
	outputTokens := int32(8192)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(BuildSystemPrompt(req.Mode), genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   outputTokens,
	}

	chat, err := c.client.Chats.Create(ctx, c.modelName, cfg, historyContents(req.History))
	if err != nil {
		return nil, fmt.Errorf("gemini create chat: %w", err)
	}
	return chat, nil
}

// historyContents converts assembled turns to provider content, mapping
// the assistant role onto the model role.
func historyContents(history []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		var role genai.Role
		switch t.Role {
		case domain.RoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return contents
}
