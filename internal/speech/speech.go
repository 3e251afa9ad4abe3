// Package speech renders interviewer text to audio and transcribes candidate
// audio back to text.
package speech

import (
	"context"
	"errors"

	"github.com/jonathan/interview-coach/internal/types"
)

// ErrDisabled is returned by Disabled when transcription is requested.
var ErrDisabled = errors.New("speech is disabled")

// Renderer turns text into an audio payload. A nil payload with a nil error
// means no audio is produced.
type Renderer interface {
	Render(ctx context.Context, text string) (*types.Audio, error)
}

// Transcriber turns an audio payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Service renders and transcribes.
type Service interface {
	Renderer
	Transcriber
}

// Disabled produces no audio and refuses transcription.
type Disabled struct{}

// Render returns no audio.
func (Disabled) Render(context.Context, string) (*types.Audio, error) { return nil, nil }

// Transcribe always fails with ErrDisabled.
func (Disabled) Transcribe(context.Context, []byte, string) (string, error) {
	return "", ErrDisabled
}
