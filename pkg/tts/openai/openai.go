package openai

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quka-ai/synthesis/pkg/tts"
)

const NAME = "openai"

var voices = []openai.SpeechVoice{
	openai.VoiceAlloy,
	openai.VoiceEcho,
	openai.VoiceFable,
	openai.VoiceOnyx,
	openai.VoiceNova,
	openai.VoiceShimmer,
}

type Driver struct {
	client *openai.Client
	model  openai.SpeechModel
}

func New(token, endpoint, model string) *Driver {
	cfg := openai.DefaultConfig(token)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &Driver{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.SpeechModel(model),
	}
}

func (d *Driver) Name() string {
	return NAME
}

// MapVoice openai 只有固定的几个声音，其它声音名称按哈希稳定映射，
// 保证同一个发言人在整期节目中声音一致
func MapVoice(name string) openai.SpeechVoice {
	lower := strings.ToLower(name)
	for _, v := range voices {
		if string(v) == lower {
			return v
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return voices[h.Sum32()%uint32(len(voices))]
}

func (d *Driver) SynthesizeSpeech(ctx context.Context, req *tts.Request) ([]byte, error) {
	voice := MapVoice(req.Voice.Name)
	slog.Debug("SynthesizeSpeech", slog.String("driver", NAME), slog.String("voice", req.Voice.Name), slog.String("mapped_voice", string(voice)))

	speed := req.AudioConfig.SpeakingRate
	if speed == 0 {
		speed = 1
	}
	resp, err := d.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          d.model,
		Input:          req.Text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response, %w", err)
	}
	if len(audio) == 0 {
		return nil, tts.ErrNoAudioContent
	}
	return audio, nil
}
