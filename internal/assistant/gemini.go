package assistant

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Tool is a function the model may call while answering.
type Tool struct {
	Decl *genai.FunctionDeclaration
	Call func(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Gemini starts chats on the Gemini API.
type Gemini struct {
	client *genai.Client
	tools  []Tool
}

// NewGemini creates a Gemini API client. An empty apiKey lets the SDK read
// GEMINI_API_KEY / GOOGLE_API_KEY itself.
func NewGemini(ctx context.Context, apiKey string, tools ...Tool) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, tools: tools}, nil
}

// Start implements Client.
func (g *Gemini) Start(ctx context.Context, model, system string) (Chat, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	}
	if len(g.tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(g.tools))
		for i, t := range g.tools {
			decls[i] = t.Decl
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	chat, err := g.client.Chats.Create(ctx, model, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("starting chat: %w", err)
	}
	return &geminiChat{chat: chat, tools: g.tools}, nil
}

type geminiChat struct {
	chat  *genai.Chat
	tools []Tool
}

// maxToolRounds bounds function-call round trips per question.
const maxToolRounds = 5

func (c *geminiChat) Send(ctx context.Context, message string) (string, error) {
	parts := []*genai.Part{{Text: message}}
	for range maxToolRounds {
		resp, err := c.chat.Send(ctx, parts...)
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("empty response from model")
		}
		content := resp.Candidates[0].Content

		var calls []*genai.FunctionCall
		var text strings.Builder
		for _, p := range content.Parts {
			if p.FunctionCall != nil {
				calls = append(calls, p.FunctionCall)
			}
			text.WriteString(p.Text)
		}
		if len(calls) == 0 {
			return strings.TrimSpace(text.String()), nil
		}

		parts = parts[:0]
		for _, call := range calls {
			parts = append(parts, &genai.Part{FunctionResponse: c.call(ctx, call)})
		}
	}
	return "", fmt.Errorf("model kept calling tools after %d rounds", maxToolRounds)
}

func (c *geminiChat) call(ctx context.Context, call *genai.FunctionCall) *genai.FunctionResponse {
	resp := &genai.FunctionResponse{ID: call.ID, Name: call.Name}
	for _, t := range c.tools {
		if t.Decl.Name != call.Name {
			continue
		}
		out, err := t.Call(ctx, call.Args)
		if err != nil {
			resp.Response = map[string]any{"error": err.Error()}
			return resp
		}
		resp.Response = out
		return resp
	}
	resp.Response = map[string]any{"error": fmt.Sprintf("unknown function %q", call.Name)}
	return resp
}
