package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress     string
	OpenAIKey       string
	OpenAIBaseURL   string
	AgentModel      string
	TranscribeModel string
	TTSModel        string
	SessionDBPath   string
	SessionKey      string
}

// Load reads environment variables and returns Config with sane defaults.
// A missing OPENAI_API_KEY is the one fatal condition: nothing works without it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return Config{}, fmt.Errorf("environment variable OPENAI_API_KEY is not set")
	}

	cfg := Config{
		HTTPAddress:     envOr("HTTP_ADDRESS", ":8080"),
		OpenAIKey:       apiKey,
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		AgentModel:      envOr("AGENT_MODEL", "gpt-4o"),
		TranscribeModel: envOr("TRANSCRIBE_MODEL", "gpt-4o-mini-transcribe"),
		TTSModel:        envOr("TTS_MODEL", "gpt-4o-mini-tts"),
		SessionDBPath:   envOr("SESSION_DB_PATH", "data/voice_secretary.db"),
		SessionKey:      envOr("SESSION_KEY", "voice_secretary_space"),
	}

	log.Printf("config: HTTP_ADDRESS=%s AGENT_MODEL=%s", cfg.HTTPAddress, cfg.AgentModel)
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
