package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/chadiek/voice-secretary/internal/chat"
	"github.com/chadiek/voice-secretary/internal/todo"
	"github.com/chadiek/voice-secretary/internal/tools"

	openai "github.com/sashabaranov/go-openai"
)

type scriptedCompleter struct {
	responses []openai.ChatCompletionResponse
	requests  []openai.ChatCompletionRequest
	err       error
}

func (s *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return openai.ChatCompletionResponse{}, fmt.Errorf("script exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type memSessions struct {
	history  []chat.Message
	appended []chat.Message
	loadErr  error
}

func (m *memSessions) History(string) ([]chat.Message, error) { return m.history, m.loadErr }
func (m *memSessions) Append(_ string, msgs ...chat.Message) error {
	m.appended = append(m.appended, msgs...)
	return nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: "assistant", Content: content},
		}},
	}
}

func toolCallResponse(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: "assistant",
				ToolCalls: []openai.ToolCall{{
					ID:       id,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: name, Arguments: args},
				}},
			},
		}},
	}
}

func newTestRunner(completer chatCompleter, sessions SessionStore, store *todo.Store) *Runner {
	reg := tools.NewRegistry(
		tools.NewAddTodoTool(store),
		tools.NewListTodoTool(store),
		tools.NewClearTodoTool(store),
		tools.NewNowTool(),
	)
	return &Runner{
		client:     completer,
		model:      "test-model",
		registry:   reg,
		sessions:   sessions,
		sessionKey: "test-key",
		maxSteps:   defaultMaxSteps,
	}
}

func TestRun_PlainReply(t *testing.T) {
	completer := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("  かしこまりました。次のアクション：確認をお願いします。  "),
	}}
	sessions := &memSessions{}
	r := newTestRunner(completer, sessions, todo.NewStore())

	reply, err := r.Run(context.Background(), "こんにちは")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "かしこまりました。次のアクション：確認をお願いします。" {
		t.Fatalf("unexpected reply %q", reply)
	}

	req := completer.requests[0]
	if req.Messages[0].Role != "system" || !strings.Contains(req.Messages[0].Content, "秘書") {
		t.Fatalf("expected persona system message, got %+v", req.Messages[0])
	}
	if len(req.Tools) != 4 {
		t.Fatalf("expected 4 tool definitions, got %d", len(req.Tools))
	}
	// Exchange persisted: user turn plus final assistant turn.
	if len(sessions.appended) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(sessions.appended))
	}
	if sessions.appended[0].Role != chat.RoleUser || sessions.appended[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected persisted roles: %+v", sessions.appended)
	}
}

func TestRun_ToolLoopUsesStoreContents(t *testing.T) {
	store := todo.NewStore()
	store.Add("資料送付")
	store.Add("会議準備")

	completer := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", "list_todo", "{}"),
		textResponse("タスクは2件です。"),
	}}
	sessions := &memSessions{}
	r := newTestRunner(completer, sessions, store)

	reply, err := r.Run(context.Background(), "タスクを一覧して")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "タスクは2件です。" {
		t.Fatalf("unexpected reply %q", reply)
	}

	// The second request must carry the real tool result, not a hallucination.
	second := completer.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Fatalf("expected tool result message, got %+v", last)
	}
	if !strings.Contains(last.Content, "資料送付") || !strings.Contains(last.Content, "会議準備") {
		t.Fatalf("tool result does not reflect the store: %q", last.Content)
	}

	// user, assistant(tool call), tool, assistant(final)
	if len(sessions.appended) != 4 {
		t.Fatalf("expected 4 persisted messages, got %d", len(sessions.appended))
	}
	if len(sessions.appended[1].ToolCalls) != 1 {
		t.Fatalf("tool call lost in persisted history: %+v", sessions.appended[1])
	}
}

func TestRun_ToolMutationVisibleInStore(t *testing.T) {
	store := todo.NewStore()
	completer := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", "add_todo", `{"task":"午後3時に資料送付"}`),
		textResponse("追加しました。"),
	}}
	r := newTestRunner(completer, &memSessions{}, store)

	if _, err := r.Run(context.Background(), "リマインドして"); err != nil {
		t.Fatal(err)
	}
	got := store.List()
	if len(got) != 1 || got[0] != "午後3時に資料送付" {
		t.Fatalf("store not mutated by tool: %v", got)
	}
}

func TestRun_HistoryIncluded(t *testing.T) {
	sessions := &memSessions{history: []chat.Message{
		{Role: chat.RoleUser, Content: "前の発言"},
		{Role: chat.RoleAssistant, Content: "前の返答"},
	}}
	completer := &scriptedCompleter{responses: []openai.ChatCompletionResponse{textResponse("ok")}}
	r := newTestRunner(completer, sessions, todo.NewStore())

	if _, err := r.Run(context.Background(), "続き"); err != nil {
		t.Fatal(err)
	}
	req := completer.requests[0]
	// system + 2 history + new user
	if len(req.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(req.Messages))
	}
	if req.Messages[1].Content != "前の発言" {
		t.Fatalf("history not included: %+v", req.Messages)
	}
}

func TestRun_ProviderFailure(t *testing.T) {
	completer := &scriptedCompleter{err: fmt.Errorf("rate limited")}
	r := newTestRunner(completer, &memSessions{}, todo.NewStore())
	if _, err := r.Run(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on provider failure")
	}
}

func TestRun_UnknownToolFedBackToModel(t *testing.T) {
	completer := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", "no_such_tool", "{}"),
		textResponse("すみません、できませんでした。"),
	}}
	r := newTestRunner(completer, &memSessions{}, todo.NewStore())

	reply, err := r.Run(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if reply == "" {
		t.Fatalf("expected reply after tool failure recovery")
	}
	second := completer.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.Contains(last.Content, "tool error") {
		t.Fatalf("expected tool error fed back, got %q", last.Content)
	}
}

func TestRun_StepLimit(t *testing.T) {
	var responses []openai.ChatCompletionResponse
	for i := 0; i < defaultMaxSteps+1; i++ {
		responses = append(responses, toolCallResponse(fmt.Sprintf("call_%d", i), "list_todo", "{}"))
	}
	completer := &scriptedCompleter{responses: responses}
	r := newTestRunner(completer, &memSessions{}, todo.NewStore())
	if _, err := r.Run(context.Background(), "x"); err == nil {
		t.Fatalf("expected step limit error")
	}
}
