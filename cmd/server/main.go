package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chadiek/voice-secretary/internal/agent"
	"github.com/chadiek/voice-secretary/internal/config"
	"github.com/chadiek/voice-secretary/internal/httpserver"
	"github.com/chadiek/voice-secretary/internal/secretary"
	"github.com/chadiek/voice-secretary/internal/session"
	"github.com/chadiek/voice-secretary/internal/speech"
	"github.com/chadiek/voice-secretary/internal/todo"
	"github.com/chadiek/voice-secretary/internal/tools"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	sessions, err := session.NewSQLiteStore(cfg.SessionDBPath)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}
	defer sessions.Close()

	todos := todo.NewStore()
	registry := tools.NewRegistry(
		tools.NewAddTodoTool(todos),
		tools.NewListTodoTool(todos),
		tools.NewClearTodoTool(todos),
		tools.NewNowTool(),
	)

	runner := agent.NewRunner(client, cfg.AgentModel, registry, sessions, cfg.SessionKey)
	handler := secretary.NewHandler(
		speech.NewOpenAITranscriber(client, cfg.TranscribeModel),
		speech.NewOpenAISynthesizer(client, cfg.TTSModel),
		runner,
		sessions,
		cfg.SessionKey,
		todos,
	)

	srv := httpserver.New(handler)

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- srv.Start(cfg.HTTPAddress)
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
