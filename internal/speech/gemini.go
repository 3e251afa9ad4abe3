package speech

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/types"
)

// Default models and voice.
const (
	DefaultTTSModel        = "gemini-2.5-flash-preview-tts"
	DefaultTranscribeModel = "gemini-2.5-flash"
	DefaultVoice           = "Gacrux"
)

// Gemini renders speech and transcribes audio with the Gemini API.
type Gemini struct {
	cli             *genai.Client
	ttsModel        string
	transcribeModel string
	voice           string
}

// NewGemini creates a Gemini speech service. An empty voice selects DefaultVoice.
func NewGemini(ctx context.Context, apiKey, voice string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini speech client: %w", err)
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &Gemini{cli: cli, ttsModel: DefaultTTSModel, transcribeModel: DefaultTranscribeModel, voice: voice}, nil
}

// Render synthesizes text and returns a WAV payload.
func (g *Gemini) Render(ctx context.Context, text string) (*types.Audio, error) {
	styled, err := prompts.Render("speech.json", "tts-style", map[string]string{"Text": text})
	if err != nil {
		return nil, err
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.ttsModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: styled}}}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voice},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	blob := firstInlineData(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, fmt.Errorf("no audio in speech response")
	}
	return &types.Audio{Data: toWAV(blob.Data), Format: "wav"}, nil
}

// Transcribe sends the audio inline with a transcription instruction.
func (g *Gemini) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("audio is empty")
	}
	instruction, err := prompts.Get("speech.json", "transcribe")
	if err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.transcribeModel,
		[]*genai.Content{{Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
			{Text: instruction},
		}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty transcript")
	}
	return text, nil
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}

func toWAV(data []byte) []byte {
	if IsWAV(data) {
		return data
	}
	return WrapPCM(data, SampleRate, Channels, BitsPerSample)
}
