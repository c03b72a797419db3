package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockProvider uses the Converse API, so any tool-capable model hosted
// on Bedrock works. Credentials come from the default AWS chain.
type BedrockProvider struct {
	client *bedrockruntime.Client
	model  string
}

func NewBedrockProvider(cfg Config) (*BedrockProvider, error) {
	pc := cfg.ProviderCfg("bedrock")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(awsCfg), model: pc.Model}, nil
}

func (p *BedrockProvider) Name() string    { return "bedrock" }
func (p *BedrockProvider) Model() string   { return p.model }
func (p *BedrockProvider) MaxContext() int { return 200000 }

func (p *BedrockProvider) Generate(ctx context.Context, req Request) (*Reply, error) {
	msgs, err := convertToBedrockMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(p.model),
		Messages: msgs,
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		},
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig = &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(req.MaxTokens)),
		}
	}
	if tools := convertToBedrockTools(req.Tools); len(tools) > 0 {
		input.ToolConfig = &types.ToolConfiguration{Tools: tools}
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}

	reply := &Reply{Message: Message{Role: "assistant"}}
	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch b := block.(type) {
			case *types.ContentBlockMemberText:
				reply.Message.Content += b.Value
			case *types.ContentBlockMemberToolUse:
				args := map[string]any{}
				if b.Value.Input != nil {
					if err := b.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
						return nil, fmt.Errorf("decoding bedrock tool input: %w", err)
					}
				}
				raw, err := json.Marshal(args)
				if err != nil {
					return nil, err
				}
				reply.Message.ToolCalls = append(reply.Message.ToolCalls, ToolCall{
					ID:   aws.ToString(b.Value.ToolUseId),
					Name: aws.ToString(b.Value.Name),
					Args: raw,
				})
			}
		}
	}
	if out.Usage != nil {
		reply.Usage = &Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return reply, nil
}

func convertToBedrockMessages(msgs []Message) ([]types.Message, error) {
	var result []types.Message

	for _, m := range msgs {
		switch m.Role {
		case "user":
			result = append(result, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		case "assistant":
			var content []types.ContentBlock
			if m.Content != "" {
				content = append(content, &types.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				input, err := decodeToolArgs(tc)
				if err != nil {
					return nil, err
				}
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     document.NewLazyDocument(input),
					},
				})
			}
			result = append(result, types.Message{Role: types.ConversationRoleAssistant, Content: content})
		case "tool":
			status := types.ToolResultStatusSuccess
			if m.IsError {
				status = types.ToolResultStatusError
			}
			result = append(result, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberToolResult{
						Value: types.ToolResultBlock{
							ToolUseId: aws.String(m.ToolCallID),
							Content: []types.ToolResultContentBlock{
								&types.ToolResultContentBlockMemberText{Value: m.Content},
							},
							Status: status,
						},
					},
				},
			})
		}
	}

	return result, nil
}

func convertToBedrockTools(tools []ToolDef) []types.Tool {
	var result []types.Tool
	for _, t := range tools {
		result = append(result, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(t.Parameters),
				},
			},
		})
	}
	return result
}

var _ Provider = (*BedrockProvider)(nil)
