// Package llm adapts an OpenAI-compatible chat completion API to the
// assistant contract the turn scheduler depends on.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
)

type OpenAIAssistant struct {
	client *openaisdk.Client
}

var _ contractx.Assistant = (*OpenAIAssistant)(nil)

func NewOpenAIAssistant(cfg Config) (*OpenAIAssistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openaisdk.NewClient(opts...)
	return &OpenAIAssistant{client: &client}, nil
}

// Invoke sends the system block, the working sequence, and the operation
// specs, and maps any tool calls in the reply back to operation requests.
func (a *OpenAIAssistant) Invoke(ctx context.Context, system string, messages []contractx.TurnMessage, ops []contractx.OpSpec, cfg contractx.TurnConfig) (contractx.AssistantReply, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(cfg.Model),
		Messages:    toSDKMessages(system, messages),
		Temperature: openaisdk.Float(cfg.Temperature),
	}
	if cfg.MaxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(cfg.MaxTokens))
	}
	if len(ops) > 0 {
		params.Tools = toSDKTools(ops)
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.AssistantReply{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(completion.Choices) == 0 {
		return contractx.AssistantReply{}, fmt.Errorf("%w: empty choices", contractx.ErrModelInvoke)
	}

	msg := completion.Choices[0].Message
	reply := contractx.AssistantReply{Text: strings.TrimSpace(msg.Content)}
	for _, call := range msg.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				log.Warn().Err(err).Str("op", call.Function.Name).Msg("malformed tool arguments")
				args = map[string]any{}
			}
		}
		reply.RequestedOps = append(reply.RequestedOps, contractx.OpRequest{
			ID:   call.ID,
			Op:   call.Function.Name,
			Args: args,
		})
	}
	return reply, nil
}

// Complete is plain completion without tools, used by the summarizer.
func (a *OpenAIAssistant) Complete(ctx context.Context, prompt string, cfg contractx.TurnConfig) (string, error) {
	completion, err := a.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", contractx.ErrModelInvoke)
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func toSDKMessages(system string, messages []contractx.TurnMessage) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	out = append(out, openaisdk.SystemMessage(system))

	for _, m := range messages {
		switch m.Role {
		case contractx.RoleHuman:
			out = append(out, openaisdk.UserMessage(m.Content))
		case contractx.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openaisdk.AssistantMessage(m.Content))
				continue
			}
			assistant := openaisdk.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openaisdk.String(m.Content)
			}
			for _, call := range m.ToolCalls {
				rawArgs, _ := json.Marshal(call.Args)
				assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Op,
						Arguments: string(rawArgs),
					},
				})
			}
			out = append(out, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case contractx.RoleTool:
			out = append(out, openaisdk.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func toSDKTools(ops []contractx.OpSpec) []openaisdk.ChatCompletionToolParam {
	tools := make([]openaisdk.ChatCompletionToolParam, 0, len(ops))
	for _, op := range ops {
		tools = append(tools, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        op.Name,
				Description: openaisdk.String(op.Description),
				Parameters:  openaisdk.FunctionParameters(op.Parameters),
			},
		})
	}
	return tools
}
