package tts

import (
	"context"
	"errors"
	"strings"
)

var ErrNoAudioContent = errors.New("no audio content received")

// Synthesizer 把一段文本合成为音频字节
type Synthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *Request) ([]byte, error)
}

type Voice struct {
	LanguageCode string
	Name         string
}

// NewVoice 语言代码取自声音名称的前两段，如 en-US-Journey-D -> en-US
func NewVoice(name string) Voice {
	return Voice{
		LanguageCode: LanguageCode(name),
		Name:         name,
	}
}

func LanguageCode(voiceName string) string {
	parts := strings.Split(voiceName, "-")
	if len(parts) < 2 {
		return voiceName
	}
	return strings.Join(parts[:2], "-")
}

const (
	AUDIO_ENCODING_MP3 = "MP3"

	EFFECTS_PROFILE_SMALL_BLUETOOTH_SPEAKER = "small-bluetooth-speaker-class-device"
)

type AudioConfig struct {
	AudioEncoding    string
	EffectsProfileID []string
	Pitch            float64
	SpeakingRate     float64
}

func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		AudioEncoding:    AUDIO_ENCODING_MP3,
		EffectsProfileID: []string{EFFECTS_PROFILE_SMALL_BLUETOOTH_SPEAKER},
		Pitch:            0,
		SpeakingRate:     1,
	}
}

type Request struct {
	Text        string
	Voice       Voice
	AudioConfig AudioConfig
}

// SynthesizerFunc 便于以函数形式实现 Synthesizer
type SynthesizerFunc func(ctx context.Context, req *Request) ([]byte, error)

func (f SynthesizerFunc) SynthesizeSpeech(ctx context.Context, req *Request) ([]byte, error) {
	return f(ctx, req)
}
