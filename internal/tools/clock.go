package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chadiek/voice-secretary/internal/chat"
)

// jst is a fixed UTC+9 offset, independent of the host timezone.
var jst = time.FixedZone("JST", 9*60*60)

// NowTool reports the current date and time in JST.
type NowTool struct {
	// clock is swappable for tests; defaults to time.Now.
	clock func() time.Time
}

func NewNowTool() *NowTool {
	return &NowTool{clock: time.Now}
}

func (t *NowTool) Name() string { return "now" }

func (t *NowTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "現在の日時（日本標準時）を YYYY-MM-DD HH:MM 形式で返す",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (t *NowTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	return t.clock().In(jst).Format("2006-01-02 15:04"), nil
}
