// Package core defines the collaborator interfaces shared by the synthesizer's
// components.
package core

import (
	"context"

	"github.com/book-expert/unit-tts/internal/audio"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Decoder reads a stored audio file into a buffer.
type Decoder interface {
	Decode(path string) (audio.Buffer, error)
}

// Encoder persists a buffer as an audio file.
type Encoder interface {
	Encode(buffer audio.Buffer, path string) error
}

// Capturer records from an input device. Capture blocks for the requested duration.
type Capturer interface {
	Capture(ctx context.Context, durationSeconds float64, sampleRate int) (audio.Buffer, error)
}

// Player plays a buffer on an output device, blocking until playback ends.
type Player interface {
	Play(ctx context.Context, buffer audio.Buffer) error
}

// SpeechProcessor turns text into an encoded audio file.
type SpeechProcessor interface {
	Process(ctx context.Context, text []byte) ([]byte, error)
}
