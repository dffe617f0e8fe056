package google

import (
	"context"
	"fmt"
	"log/slog"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/quka-ai/synthesis/pkg/tts"
)

const NAME = "google"

type Driver struct {
	client *texttospeech.Client
}

// New credentialsFile 为空时使用 ADC (GOOGLE_APPLICATION_CREDENTIALS)
func New(ctx context.Context, credentialsFile string) (*Driver, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client, %w", err)
	}
	return &Driver{client: client}, nil
}

func (d *Driver) Name() string {
	return NAME
}

func (d *Driver) Close() error {
	return d.client.Close()
}

func (d *Driver) SynthesizeSpeech(ctx context.Context, req *tts.Request) ([]byte, error) {
	slog.Debug("SynthesizeSpeech", slog.String("driver", NAME), slog.String("voice", req.Voice.Name), slog.Int("text_length", len(req.Text)))

	resp, err := d.client.SynthesizeSpeech(ctx, BuildRequest(req))
	if err != nil {
		return nil, err
	}
	if len(resp.AudioContent) == 0 {
		return nil, tts.ErrNoAudioContent
	}
	return resp.AudioContent, nil
}

func BuildRequest(req *tts.Request) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: req.Voice.LanguageCode,
			Name:         req.Voice.Name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:    audioEncoding(req.AudioConfig.AudioEncoding),
			EffectsProfileId: req.AudioConfig.EffectsProfileID,
			Pitch:            req.AudioConfig.Pitch,
			SpeakingRate:     req.AudioConfig.SpeakingRate,
		},
	}
}

func audioEncoding(enc string) texttospeechpb.AudioEncoding {
	if v, ok := texttospeechpb.AudioEncoding_value[enc]; ok {
		return texttospeechpb.AudioEncoding(v)
	}
	return texttospeechpb.AudioEncoding_MP3
}
