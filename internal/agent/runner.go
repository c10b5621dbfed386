// Package agent runs the secretary persona: a chat-completion loop that lets
// the model call the registered function tools before finalizing its reply.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/chadiek/voice-secretary/internal/chat"
	"github.com/chadiek/voice-secretary/internal/tools"

	openai "github.com/sashabaranov/go-openai"
)

// Instructions is the fixed secretary persona.
const Instructions = "あなたは音声でやりとりする日本語の秘書です。" +
	"丁寧でわかりやすく、1〜3文で簡潔に答えてください。" +
	"最後に『次のアクション』を1つ提案します。" +
	"必要に応じて add_todo / list_todo / clear_todo / now を使ってください。"

const defaultMaxSteps = 8

// chatCompleter is the slice of the OpenAI client the runner needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SessionStore persists conversation history between runs.
type SessionStore interface {
	History(sessionKey string) ([]chat.Message, error)
	Append(sessionKey string, messages ...chat.Message) error
}

// Runner executes one agent turn per user message.
type Runner struct {
	client     chatCompleter
	model      string
	registry   *tools.Registry
	sessions   SessionStore
	sessionKey string
	maxSteps   int
}

func NewRunner(client *openai.Client, model string, registry *tools.Registry, sessions SessionStore, sessionKey string) *Runner {
	return &Runner{
		client:     client,
		model:      model,
		registry:   registry,
		sessions:   sessions,
		sessionKey: sessionKey,
		maxSteps:   defaultMaxSteps,
	}
}

// Run produces one assistant reply for userText, invoking tools as the model
// requests and folding their results back in before the reply is finalized.
// The full exchange is appended to the session afterwards.
func (r *Runner) Run(ctx context.Context, userText string) (string, error) {
	history, err := r.sessions.History(r.sessionKey)
	if err != nil {
		// Memory is best-effort; answer without it rather than fail the turn.
		log.Printf("agent: load session history: %v", err)
		history = nil
	}

	messages := make([]chat.Message, 0, len(history)+2)
	messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: Instructions})
	messages = append(messages, history...)

	userMsg := chat.Message{Role: chat.RoleUser, Content: userText}
	messages = append(messages, userMsg)
	newMessages := []chat.Message{userMsg}

	for step := 0; step < r.maxSteps; step++ {
		resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:      r.model,
			Messages:   toOpenAIMessages(messages),
			Tools:      toOpenAITools(r.registry.Definitions()),
			ToolChoice: "auto",
		})
		if err != nil {
			return "", fmt.Errorf("agent chat: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("agent chat: empty choices")
		}
		choice := resp.Choices[0].Message

		assistantMsg := chat.Message{
			Role:      chat.RoleAssistant,
			Content:   choice.Content,
			ToolCalls: fromOpenAIToolCalls(choice.ToolCalls),
		}
		messages = append(messages, assistantMsg)
		newMessages = append(newMessages, assistantMsg)

		if len(assistantMsg.ToolCalls) == 0 {
			final := strings.TrimSpace(assistantMsg.Content)
			r.persist(newMessages)
			return final, nil
		}

		for _, call := range assistantMsg.ToolCalls {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			result, err := r.registry.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			if err != nil {
				// Feed the failure back so the model can recover or apologize.
				log.Printf("agent: tool %s: %v", call.Function.Name, err)
				result = fmt.Sprintf("tool error: %v", err)
			}
			toolMsg := chat.Message{
				Role:       chat.RoleTool,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
				Content:    result,
			}
			messages = append(messages, toolMsg)
			newMessages = append(newMessages, toolMsg)
		}
	}
	return "", fmt.Errorf("agent chat: step limit reached (%d)", r.maxSteps)
}

func (r *Runner) persist(messages []chat.Message) {
	if err := r.sessions.Append(r.sessionKey, messages...); err != nil {
		log.Printf("agent: persist session: %v", err)
	}
}

func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolType(tc.Type),
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(defs []chat.ToolDef) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Function.Name,
				Description: d.Function.Description,
				Parameters:  d.Function.Parameters,
			},
		})
	}
	return out
}

func fromOpenAIToolCalls(calls []openai.ToolCall) []chat.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]chat.ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, chat.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: chat.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out
}
