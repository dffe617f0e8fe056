package openai

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quka-ai/synthesis/pkg/ai"
)

const (
	NAME = "openai"
)

type Driver struct {
	client *openai.Client
	model  string
}

func NewClient(token, endpoint string) *openai.Client {
	cfg := openai.DefaultConfig(token)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}

	return openai.NewClientWithConfig(cfg)
}

func New(token, endpoint, model string) *Driver {
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Driver{
		client: NewClient(token, endpoint),
		model:  model,
	}
}

func (s *Driver) Name() string {
	return NAME
}

// Generate 结构化输出通过强制调用 function 实现，参数即输出结构
func (s *Driver) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	slog.Debug("Generate", slog.String("driver", NAME), slog.String("model", s.model), slog.Bool("structured", req.Schema != nil))

	chatReq := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}

	if req.Schema != nil {
		f := openai.FunctionDefinition{
			Name:        req.OutputName(),
			Description: "Return the result using this structure",
			Parameters:  req.Schema,
		}
		chatReq.Tools = []openai.Tool{{
			Type:     openai.ToolTypeFunction,
			Function: &f,
		}}
		chatReq.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: f.Name},
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ai.ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	result := &ai.GenerateResponse{
		Text:  msg.Content,
		Usage: &resp.Usage,
		Model: resp.Model,
	}

	if req.Schema != nil {
		for _, v := range msg.ToolCalls {
			if v.Function.Name != req.OutputName() {
				continue
			}
			result.Output = []byte(v.Function.Arguments)
			break
		}
		if !result.HasOutput() {
			slog.Warn("structured output missing, fall back to raw text", slog.String("driver", NAME), slog.String("finish_reason", string(resp.Choices[0].FinishReason)))
		}
	}

	return result, nil
}
