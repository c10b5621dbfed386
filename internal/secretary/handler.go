// Package secretary sequences one user interaction: resolve the input,
// run the agent, synthesize the reply, and grow the transcript. Every stage
// failure is recovered into a user-visible transcript turn.
package secretary

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/chadiek/voice-secretary/internal/chat"
	"github.com/chadiek/voice-secretary/internal/todo"
)

// Greeting is the single turn a fresh transcript starts with.
const Greeting = "こんにちは。秘書のエコです。ご用件をどうぞ。"

// Transcriber converts a recorded audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer converts reply text into an audio file and returns its path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (string, error)
}

// AgentRunner produces one assistant reply for one user message.
type AgentRunner interface {
	Run(ctx context.Context, userText string) (string, error)
}

// SessionClearer wipes the persisted conversation memory.
type SessionClearer interface {
	Clear(sessionKey string) error
}

// Handler wires the ports together. One call to Interact or Reset per
// user-initiated action; all stages run sequentially.
type Handler struct {
	transcriber Transcriber
	synthesizer Synthesizer
	runner      AgentRunner
	sessions    SessionClearer
	sessionKey  string
	todos       *todo.Store
}

func NewHandler(t Transcriber, s Synthesizer, r AgentRunner, sessions SessionClearer, sessionKey string, todos *todo.Store) *Handler {
	return &Handler{
		transcriber: t,
		synthesizer: s,
		runner:      r,
		sessions:    sessions,
		sessionKey:  sessionKey,
		todos:       todos,
	}
}

// Interact runs one request through the pipeline and returns the updated
// transcript plus the synthesized audio path ("" when no audio was produced).
// Audio input wins over text input; the transcript is grown, never rewritten.
func (h *Handler) Interact(ctx context.Context, audioPath, textInput, voice string, transcript []chat.Turn) ([]chat.Turn, string) {
	// Stage 1: input resolution. A transcription failure ends the pipeline
	// before the agent ever runs.
	var userText string
	if audioPath != "" {
		text, err := h.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			log.Printf("secretary: transcription failed: %v", err)
			transcript = append(transcript, chat.Turn{
				Role:    chat.RoleAssistant,
				Content: fmt.Sprintf("文字起こしエラー: %v", err),
			})
			return transcript, ""
		}
		userText = text
	} else {
		userText = strings.TrimSpace(textInput)
	}

	// Stage 2: empty-input guard. Not an error, a re-prompt.
	if userText == "" {
		transcript = append(transcript, chat.Turn{
			Role:    chat.RoleAssistant,
			Content: "音声またはテキストで話しかけてください。",
		})
		return transcript, ""
	}

	// Stage 3: agent turn. A run failure becomes an apologetic reply, which
	// still flows into synthesis below.
	transcript = append(transcript, chat.Turn{Role: chat.RoleUser, Content: userText})
	reply, err := h.runner.Run(ctx, userText)
	if err != nil {
		log.Printf("secretary: agent run failed: %v", err)
		reply = fmt.Sprintf("回答生成でエラーが発生しました: %v", err)
	}
	transcript = append(transcript, chat.Turn{Role: chat.RoleAssistant, Content: reply})

	// Stage 4: speech synthesis. Failure keeps the textual reply and adds an
	// error turn; the interaction still succeeds.
	replyAudio, err := h.synthesizer.Synthesize(ctx, reply, voice)
	if err != nil {
		log.Printf("secretary: synthesis failed: %v", err)
		transcript = append(transcript, chat.Turn{
			Role:    chat.RoleAssistant,
			Content: fmt.Sprintf("音声合成に失敗しました: %v", err),
		})
		return transcript, ""
	}

	return transcript, replyAudio
}

// Reset clears the to-do list and the persisted session, and returns a fresh
// transcript holding only the greeting. Session clearing is best-effort: the
// user-visible contract is the cleared transcript, so a backend failure is
// logged and otherwise ignored.
func (h *Handler) Reset(_ context.Context) ([]chat.Turn, string) {
	h.todos.Clear()
	if err := h.sessions.Clear(h.sessionKey); err != nil {
		log.Printf("secretary: clear session: %v", err)
	}
	return []chat.Turn{{Role: chat.RoleAssistant, Content: Greeting}}, ""
}
