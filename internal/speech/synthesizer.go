package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// Voices is the fixed set of selectable TTS voices, in UI display order.
var Voices = []string{"alloy", "shimmer", "nova", "onyx", "echo", "fable"}

// DefaultVoice is used when the request carries no, or an unknown, voice.
const DefaultVoice = "alloy"

// NormalizeVoice maps a requested voice onto the supported set.
func NormalizeVoice(voice string) string {
	voice = strings.ToLower(strings.TrimSpace(voice))
	for _, v := range Voices {
		if v == voice {
			return v
		}
	}
	return DefaultVoice
}

// OpenAISynthesizer turns reply text into an MP3 file via the OpenAI
// speech endpoint.
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
	outDir string
}

func NewOpenAISynthesizer(client *openai.Client, model string) *OpenAISynthesizer {
	return &OpenAISynthesizer{client: client, model: model, outDir: os.TempDir()}
}

// Synthesize streams synthesized audio for text into a freshly named temp file
// and returns its path. The response body is copied as it arrives; the whole
// encoding is never held in memory.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, voice string) (string, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(s.model),
		Input: text,
		Voice: openai.SpeechVoice(NormalizeVoice(voice)),
	})
	if err != nil {
		return "", fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	name := fmt.Sprintf("reply_%s.mp3", strings.ReplaceAll(uuid.NewString(), "-", ""))
	outPath := filepath.Join(s.outDir, name)
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(f, resp); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return "", fmt.Errorf("stream audio to file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close audio file: %w", err)
	}
	return outPath, nil
}
