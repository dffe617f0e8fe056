package gemini

import (
	"context"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/testutils"
)

func TestConvertSchema(t *testing.T) {
	def := &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"script": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"speaker": {Type: jsonschema.String, Description: "speaker name"},
						"text":    {Type: jsonschema.String},
					},
					Required: []string{"speaker", "text"},
				},
			},
		},
		Required: []string{"script"},
	}

	s := ConvertSchema(def)
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"script"}, s.Required)

	script := s.Properties["script"]
	require.NotNil(t, script)
	assert.Equal(t, genai.TypeArray, script.Type)
	require.NotNil(t, script.Items)
	assert.Equal(t, genai.TypeObject, script.Items.Type)
	assert.Equal(t, "speaker name", script.Items.Properties["speaker"].Description)
	assert.Equal(t, genai.TypeString, script.Items.Properties["text"].Type)

	assert.Nil(t, ConvertSchema(nil))
}

func TestGenerate(t *testing.T) {
	env := testutils.RequireEnv(t, "SYNTHESIS_TEST_GEMINI_TOKEN")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	d, err := New(ctx, env["SYNTHESIS_TEST_GEMINI_TOKEN"], "")
	require.NoError(t, err)
	defer d.Close()

	resp, err := d.Generate(ctx, &ai.GenerateRequest{
		Prompt:      "List two colors.",
		Temperature: 0.7,
		Schema: &jsonschema.Definition{
			Type:  jsonschema.Array,
			Items: &jsonschema.Definition{Type: jsonschema.String},
		},
	})
	require.NoError(t, err)
	var colors []string
	require.NoError(t, resp.Decode(&colors))
	assert.NotEmpty(t, colors)
}
