package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chadiek/voice-secretary/internal/chat"
	"github.com/chadiek/voice-secretary/internal/todo"
)

// AddTodoTool appends a task to the shared to-do list.
type AddTodoTool struct {
	store *todo.Store
}

// ListTodoTool returns the current tasks in insertion order.
type ListTodoTool struct {
	store *todo.Store
}

// ClearTodoTool empties the to-do list.
type ClearTodoTool struct {
	store *todo.Store
}

func NewAddTodoTool(store *todo.Store) *AddTodoTool     { return &AddTodoTool{store: store} }
func NewListTodoTool(store *todo.Store) *ListTodoTool   { return &ListTodoTool{store: store} }
func NewClearTodoTool(store *todo.Store) *ClearTodoTool { return &ClearTodoTool{store: store} }

func (t *AddTodoTool) Name() string   { return "add_todo" }
func (t *ListTodoTool) Name() string  { return "list_todo" }
func (t *ClearTodoTool) Name() string { return "clear_todo" }

func (t *AddTodoTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "タスクを1件、To-Doリストに追加する",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task": map[string]any{
						"type":        "string",
						"description": "追加するタスクの内容",
					},
				},
				"required": []string{"task"},
			},
		},
	}
}

func (t *ListTodoTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "現在のTo-Doリストを登録順に返す",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (t *ClearTodoTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "To-Doリストのタスクをすべて削除する",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (t *AddTodoTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Task string `json:"task"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("add_todo args: %w", err)
		}
	}
	task := strings.TrimSpace(in.Task)
	count, ok := t.store.Add(task)
	if !ok {
		// User-facing rejection, not an execution error.
		return "空のタスクは追加できません。", nil
	}
	return fmt.Sprintf("タスクを追加: %s（合計 %d 件）", task, count), nil
}

func (t *ListTodoTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	tasks := t.store.List()
	if tasks == nil {
		tasks = []string{}
	}
	return mustJSON(tasks), nil
}

func (t *ClearTodoTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	t.store.Clear()
	return "タスクをすべて削除しました。", nil
}
