// Package speech wraps the OpenAI audio endpoints behind the two narrow
// ports the interaction handler needs: speech-to-text and text-to-speech.
package speech

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAITranscriber transcribes recorded audio files via the OpenAI
// transcription endpoint.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

func NewOpenAITranscriber(client *openai.Client, model string) *OpenAITranscriber {
	return &OpenAITranscriber{client: client, model: model}
}

// Transcribe sends the audio file at path and returns the trimmed text.
// An empty result means the provider heard nothing usable; that is not an error.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
