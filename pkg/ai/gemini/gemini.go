package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/api/option"

	"github.com/quka-ai/synthesis/pkg/ai"
)

const (
	NAME          = "gemini"
	DEFAULT_MODEL = "gemini-1.5-pro-latest"
)

type Driver struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, token, model string) (*Driver, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(token))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DEFAULT_MODEL
	}

	return &Driver{
		client: client,
		model:  model,
	}, nil
}

func (s *Driver) Name() string {
	return NAME
}

func (s *Driver) Close() error {
	return s.client.Close()
}

func (s *Driver) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	model := s.client.GenerativeModel(s.model)
	model.SetTemperature(req.Temperature)
	if req.Schema != nil {
		// Ask the model to respond with JSON.
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = ConvertSchema(req.Schema)
	}

	slog.Debug("Generate", slog.String("driver", NAME), slog.String("model", s.model), slog.Bool("structured", req.Schema != nil))

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ai.ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason != genai.FinishReasonStop {
		slog.Warn("Generate, ai finished without stop", slog.String("driver", NAME), slog.String("reason", candidate.FinishReason.String()))
	}

	sb := strings.Builder{}
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	result := &ai.GenerateResponse{
		Text:  sb.String(),
		Model: s.model,
		Usage: &openai.Usage{},
	}
	if req.Schema != nil {
		result.Output = []byte(strings.TrimSpace(result.Text))
	}
	if resp.UsageMetadata != nil {
		result.Usage = &openai.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return result, nil
}

// ConvertSchema 把 openai 的 jsonschema 定义转换为 gemini 的 schema
func ConvertSchema(def *jsonschema.Definition) *genai.Schema {
	if def == nil {
		return nil
	}

	s := &genai.Schema{
		Type:        convertType(def.Type),
		Description: def.Description,
		Enum:        def.Enum,
		Required:    def.Required,
	}
	if def.Items != nil {
		s.Items = ConvertSchema(def.Items)
	}
	if len(def.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(def.Properties))
		for k, v := range def.Properties {
			v := v
			s.Properties[k] = ConvertSchema(&v)
		}
	}
	return s
}

func convertType(t jsonschema.DataType) genai.Type {
	switch t {
	case jsonschema.Object:
		return genai.TypeObject
	case jsonschema.Array:
		return genai.TypeArray
	case jsonschema.String:
		return genai.TypeString
	case jsonschema.Number:
		return genai.TypeNumber
	case jsonschema.Integer:
		return genai.TypeInteger
	case jsonschema.Boolean:
		return genai.TypeBoolean
	default:
		slog.Warn("unsupported schema type, fallback to string", slog.String("driver", NAME), slog.String("type", fmt.Sprint(t)))
		return genai.TypeString
	}
}
