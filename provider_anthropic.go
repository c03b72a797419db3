package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/liushuangls/go-anthropic/v2/jsonschema"
)

type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	pc := cfg.ProviderCfg("anthropic")
	if pc.APIKey == "" {
		return nil, missingKey("anthropic", "ANTHROPIC_API_KEY")
	}
	var opts []anthropic.ClientOption
	if pc.URL != "" {
		opts = append(opts, anthropic.WithBaseURL(pc.URL))
	}
	return &AnthropicProvider{client: anthropic.NewClient(pc.APIKey, opts...), model: pc.Model}, nil
}

func (p *AnthropicProvider) Name() string    { return "anthropic" }
func (p *AnthropicProvider) Model() string   { return p.model }
func (p *AnthropicProvider) MaxContext() int { return 200000 }

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Reply, error) {
	// the messages API refuses requests without max_tokens
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	mreq := anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		Messages:  convertToAnthropicMessages(req.Messages),
		MaxTokens: maxTokens,
		System:    req.System,
	}
	if tools := convertToAnthropicTools(req.Tools); len(tools) > 0 {
		mreq.Tools = tools
	}

	resp, err := p.client.CreateMessages(ctx, mreq)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	reply := &Reply{
		Message: Message{Role: "assistant"},
		Usage: &Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	for _, c := range resp.Content {
		switch c.Type {
		case anthropic.MessagesContentTypeText:
			reply.Message.Content += c.GetText()
		case anthropic.MessagesContentTypeToolUse:
			if c.MessageContentToolUse == nil {
				continue
			}
			reply.Message.ToolCalls = append(reply.Message.ToolCalls, ToolCall{
				ID:   c.MessageContentToolUse.ID,
				Name: c.MessageContentToolUse.Name,
				Args: c.MessageContentToolUse.Input,
			})
		}
	}
	return reply, nil
}

func convertToAnthropicMessages(msgs []Message) []anthropic.Message {
	var result []anthropic.Message

	for _, m := range msgs {
		switch m.Role {
		case "user":
			content := m.Content
			if content == "" {
				content = " "
			}
			result = append(result, anthropic.NewUserTextMessage(content))
		case "assistant":
			var content []anthropic.MessageContent
			if m.Content != "" {
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeText,
					Text: &m.Content,
				})
			}
			for _, tc := range m.ToolCalls {
				args := json.RawMessage(tc.Args)
				if len(args) == 0 {
					args = json.RawMessage("{}")
				}
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: args,
					},
				})
			}
			if len(content) == 0 {
				continue
			}
			result = append(result, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
		case "tool":
			out := m.Content
			if out == "" {
				out = "(no output)"
			}
			result = append(result, anthropic.NewToolResultsMessage(m.ToolCallID, out, m.IsError))
		}
	}

	return result
}

func convertToAnthropicTools(tools []ToolDef) []anthropic.ToolDefinition {
	var result []anthropic.ToolDefinition
	for _, t := range tools {
		result = append(result, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: convertToJSONSchema(t.Parameters),
		})
	}
	return result
}

func convertToJSONSchema(params map[string]any) jsonschema.Definition {
	def := jsonschema.Definition{
		Type:     jsonschema.Object,
		Required: requiredNames(params),
	}

	if props, ok := params["properties"].(map[string]any); ok {
		def.Properties = make(map[string]jsonschema.Definition, len(props))
		for name, v := range props {
			propMap, ok := v.(map[string]any)
			if !ok {
				continue
			}
			prop := jsonschema.Definition{}
			if t, ok := propMap["type"].(string); ok {
				prop.Type = jsonschema.DataType(t)
			}
			if d, ok := propMap["description"].(string); ok {
				prop.Description = d
			}
			def.Properties[name] = prop
		}
	}

	return def
}

var _ Provider = (*AnthropicProvider)(nil)
