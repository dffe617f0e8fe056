package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const DEFAULT_SCHEMA_NAME = "output"

var ErrEmptyResponse = errors.New("empty response content")

// Generator 文本生成能力，流水线中所有 LLM 调用都经过它
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

type GenerateRequest struct {
	Prompt      string
	Temperature float32
	// Schema 不为空时要求模型按该结构输出，结果放在 GenerateResponse.Output
	Schema     *jsonschema.Definition
	SchemaName string
}

func (r *GenerateRequest) OutputName() string {
	if r.SchemaName == "" {
		return DEFAULT_SCHEMA_NAME
	}
	return r.SchemaName
}

type GenerateResponse struct {
	// Text 模型返回的原始文本
	Text string
	// Output 结构化输出，模型未按结构返回时为空
	Output json.RawMessage
	Usage  *openai.Usage
	Model  string
}

// HasOutput 模型是否返回了结构化结果
func (r *GenerateResponse) HasOutput() bool {
	return r != nil && len(r.Output) > 0 && string(r.Output) != "null"
}

// Decode 把结构化输出解析到 v
func (r *GenerateResponse) Decode(v any) error {
	if !r.HasOutput() {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(r.Output, v); err != nil {
		return fmt.Errorf("failed to unmarshal structured output, %w", err)
	}
	return nil
}

// GeneratorFunc 便于以函数形式实现 Generator
type GeneratorFunc func(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

func (f GeneratorFunc) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	return f(ctx, req)
}
