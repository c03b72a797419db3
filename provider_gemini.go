package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(cfg Config) (*GeminiProvider, error) {
	pc := cfg.ProviderCfg("gemini")
	if pc.APIKey == "" {
		return nil, missingKey("gemini", "GEMINI_API_KEY")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  pc.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if pc.URL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: pc.URL}
	}
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: pc.Model}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) MaxContext() int {
	if strings.Contains(p.model, "pro") {
		return 2000000
	}
	return 1000000
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Reply, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		},
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if decls := convertToGeminiTools(req.Tools); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	contents, err := convertToGeminiContents(req.Messages)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return geminiReply(resp)
}

func geminiReply(resp *genai.GenerateContentResponse) (*Reply, error) {
	reply := &Reply{Message: Message{Role: "assistant"}}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Thought {
				continue
			}
			text.WriteString(part.Text)
			if fc := part.FunctionCall; fc != nil {
				args := json.RawMessage("{}")
				if len(fc.Args) > 0 {
					raw, err := json.Marshal(fc.Args)
					if err != nil {
						return nil, fmt.Errorf("encoding gemini args of %s: %w", fc.Name, err)
					}
					args = raw
				}
				reply.Message.ToolCalls = append(reply.Message.ToolCalls, ToolCall{
					ID:   fc.ID,
					Name: fc.Name,
					Args: args,
				})
			}
		}
		reply.Message.Content = text.String()
	}
	if um := resp.UsageMetadata; um != nil {
		reply.Usage = &Usage{
			InputTokens:  int(um.PromptTokenCount),
			OutputTokens: int(um.CandidatesTokenCount),
		}
	}
	return reply, nil
}

func convertToGeminiContents(msgs []Message) ([]*genai.Content, error) {
	var result []*genai.Content

	for _, m := range msgs {
		switch m.Role {
		case "user":
			result = append(result, genai.NewContentFromText(m.Content, genai.RoleUser))
		case "assistant":
			content := &genai.Content{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args, err := decodeToolArgs(tc)
				if err != nil {
					return nil, err
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
				})
			}
			result = append(result, content)
		case "tool":
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"result": m.Content}
			}
			result = append(result, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       m.ToolCallID,
						Name:     findToolName(msgs, m.ToolCallID),
						Response: response,
					},
				}},
			})
		}
	}

	return result, nil
}

func findToolName(msgs []Message, toolCallID string) string {
	for _, m := range msgs {
		for _, tc := range m.ToolCalls {
			if tc.ID == toolCallID {
				return tc.Name
			}
		}
	}
	return ""
}

func convertToGeminiTools(tools []ToolDef) []*genai.FunctionDeclaration {
	var result []*genai.FunctionDeclaration
	for _, t := range tools {
		fd := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
		if props, ok := t.Parameters["properties"].(map[string]any); ok {
			schema := &genai.Schema{
				Type:       genai.TypeObject,
				Properties: make(map[string]*genai.Schema, len(props)),
				Required:   requiredNames(t.Parameters),
			}
			for name, v := range props {
				propMap, ok := v.(map[string]any)
				if !ok {
					continue
				}
				prop := &genai.Schema{Type: geminiType(propMap["type"])}
				if d, ok := propMap["description"].(string); ok {
					prop.Description = d
				}
				schema.Properties[name] = prop
			}
			fd.Parameters = schema
		}
		result = append(result, fd)
	}
	return result
}

func geminiType(v any) genai.Type {
	switch v {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
