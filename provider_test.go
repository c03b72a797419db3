package main

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/liushuangls/go-anthropic/v2"
	"github.com/liushuangls/go-anthropic/v2/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func pageToolDefs() []ToolDef {
	r := NewToolRegistry()
	registerPageTools(r, NewPageWriter(""))
	return r.Definitions()
}

// conversation is a finished tool round trip: request, write call,
// failed result and a closing reply.
func conversation() []Message {
	return []Message{
		{Role: "user", Content: "A page for a bakery"},
		{Role: "assistant", ToolCalls: []ToolCall{{
			ID: "call_1", Name: writeToFileTool, Args: json.RawMessage(`{"content":"<h1>Bakery</h1>"}`),
		}}},
		{Role: "tool", ToolCallID: "call_1", Content: `{"status":"failure","error":"disk full"}`, IsError: true},
		{Role: "assistant", Content: "Saving failed: disk full."},
	}
}

func TestNewProvider_Errors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	_, err := NewProvider("cohere", cfg)
	assert.True(t, errors.Is(err, ErrUnknownProvider))

	for _, name := range []string{"gemini", "anthropic", "openai", "openrouter"} {
		_, err := NewProvider(name, cfg)
		assert.True(t, errors.Is(err, ErrMissingAPIKey), "%s: %v", name, err)
	}
}

func TestNewProvider_KeyedBackends(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, name := range []string{"anthropic", "openai", "openrouter"} {
		pc := cfg.Providers[name]
		pc.APIKey = "test-key"
		cfg.Providers[name] = pc
	}

	for _, name := range []string{"anthropic", "openai", "openrouter", "ollama"} {
		p, err := NewProvider(name, cfg)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
		assert.Equal(t, cfg.ProviderCfg(name).Model, p.Model())
		assert.Positive(t, p.MaxContext())
	}
}

func TestRequiredNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"content"}, requiredNames(map[string]any{"required": []string{"content"}}))
	assert.Equal(t, []string{"a", "b"}, requiredNames(map[string]any{"required": []any{"a", 3, "b"}}))
	assert.Nil(t, requiredNames(map[string]any{}))
}

func TestConvertToGeminiTools(t *testing.T) {
	t.Parallel()

	decls := convertToGeminiTools(pageToolDefs())
	require.Len(t, decls, 1)
	assert.Equal(t, writeToFileTool, decls[0].Name)
	require.NotNil(t, decls[0].Parameters)
	assert.Equal(t, genai.TypeObject, decls[0].Parameters.Type)
	assert.Equal(t, []string{"content"}, decls[0].Parameters.Required)
	assert.Equal(t, genai.TypeString, decls[0].Parameters.Properties["content"].Type)
}

func TestConvertToGeminiContents(t *testing.T) {
	t.Parallel()

	contents, err := convertToGeminiContents(conversation())
	require.NoError(t, err)
	require.Len(t, contents, 4)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "<h1>Bakery</h1>", contents[1].Parts[0].FunctionCall.Args["content"])

	resp := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, "user", contents[2].Role)
	assert.Equal(t, writeToFileTool, resp.Name)
	assert.Equal(t, "failure", resp.Response["status"])

	assert.Equal(t, "Saving failed: disk full.", contents[3].Parts[0].Text)
}

func TestConvertToGeminiContents_NonJSONToolResult(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "c", Name: "x"}}},
		{Role: "tool", ToolCallID: "c", Content: "plain text"},
	}
	contents, err := convertToGeminiContents(msgs)
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, map[string]any{"result": "plain text"}, contents[1].Parts[0].FunctionResponse.Response)
}

func TestGeminiReply(t *testing.T) {
	t.Parallel()

	reply, err := geminiReply(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking about layout", Thought: true},
				{Text: "Writing the page."},
				{FunctionCall: &genai.FunctionCall{Name: writeToFileTool, Args: map[string]any{"content": "<p>x</p>"}}},
			}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 34},
	})
	require.NoError(t, err)

	assert.Equal(t, "Writing the page.", reply.Message.Content)
	require.Len(t, reply.Message.ToolCalls, 1)
	assert.Equal(t, writeToFileTool, reply.Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"content":"<p>x</p>"}`, string(reply.Message.ToolCalls[0].Args))
	assert.Equal(t, &Usage{InputTokens: 12, OutputTokens: 34}, reply.Usage)
}

func TestGeminiReply_CallWithoutArgs(t *testing.T) {
	t.Parallel()

	reply, err := geminiReply(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{Name: "ping"}}}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, reply.Message.ToolCalls, 1)
	assert.Equal(t, "{}", string(reply.Message.ToolCalls[0].Args))
}

func TestGeminiReply_NoCandidates(t *testing.T) {
	t.Parallel()

	reply, err := geminiReply(&genai.GenerateContentResponse{})
	require.NoError(t, err)
	assert.Equal(t, "", reply.Message.Content)
	assert.Empty(t, reply.Message.ToolCalls)
	assert.Nil(t, reply.Usage)
}

func TestConvertMessages_MalformedToolArgs(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_9", Name: writeToFileTool, Args: json.RawMessage(`{"content":`)}}},
	}

	_, err := convertToGeminiContents(msgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call_9")

	_, err = convertToBedrockMessages(msgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call_9")
}

func TestDecodeToolArgs(t *testing.T) {
	t.Parallel()

	args, err := decodeToolArgs(ToolCall{Name: "ping"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, args)

	args, err = decodeToolArgs(ToolCall{Args: json.RawMessage(`{"content":"x"}`)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"content": "x"}, args)

	_, err = decodeToolArgs(ToolCall{Args: json.RawMessage(`[1, 2]`)})
	assert.Error(t, err)
}

func TestConvertToJSONSchema(t *testing.T) {
	t.Parallel()

	def := convertToJSONSchema(pageToolDefs()[0].Parameters)
	assert.Equal(t, jsonschema.Object, def.Type)
	assert.Equal(t, []string{"content"}, def.Required)
	assert.Equal(t, jsonschema.String, def.Properties["content"].Type)
	assert.Equal(t, "Full HTML content to save", def.Properties["content"].Description)
}

func TestConvertToAnthropicMessages(t *testing.T) {
	t.Parallel()

	msgs := append(conversation(), Message{Role: "assistant"})
	result := convertToAnthropicMessages(msgs)
	// the empty assistant message is dropped
	require.Len(t, result, 4)

	assert.Equal(t, anthropic.RoleUser, result[0].Role)
	assert.Equal(t, anthropic.RoleAssistant, result[1].Role)
	require.NotNil(t, result[1].Content[0].MessageContentToolUse)
	assert.Equal(t, "call_1", result[1].Content[0].MessageContentToolUse.ID)

	wire, err := json.Marshal(result[2])
	require.NoError(t, err)
	assert.Contains(t, string(wire), `"tool_use_id":"call_1"`)
	assert.Contains(t, string(wire), `"is_error":true`)
}

func TestConvertToBedrockMessages(t *testing.T) {
	t.Parallel()

	result, err := convertToBedrockMessages(conversation())
	require.NoError(t, err)
	require.Len(t, result, 4)

	assert.Equal(t, types.ConversationRoleUser, result[0].Role)
	assert.Equal(t, types.ConversationRoleAssistant, result[1].Role)

	use, ok := result[1].Content[0].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, writeToFileTool, *use.Value.Name)

	res, ok := result[2].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "call_1", *res.Value.ToolUseId)
	assert.Equal(t, types.ToolResultStatusError, res.Value.Status)

	success, err := convertToBedrockMessages([]Message{{Role: "tool", ToolCallID: "c", Content: `{"status":"success"}`}})
	require.NoError(t, err)
	res, ok = success[0].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, types.ToolResultStatusSuccess, res.Value.Status)
}

func TestConvertToBedrockTools(t *testing.T) {
	t.Parallel()

	tools := convertToBedrockTools(pageToolDefs())
	require.Len(t, tools, 1)
	spec, ok := tools[0].(*types.ToolMemberToolSpec)
	require.True(t, ok)
	assert.Equal(t, writeToFileTool, *spec.Value.Name)
}

func TestConvertToOpenAI(t *testing.T) {
	t.Parallel()

	msgs := convertToOpenAIMessages(conversation(), "system prompt")
	// system + four conversation messages
	assert.Len(t, msgs, 5)

	tools := convertToOpenAITools(pageToolDefs())
	require.Len(t, tools, 1)
	assert.Equal(t, writeToFileTool, tools[0].Function.Name)
}
