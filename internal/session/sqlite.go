// Package session persists the agent's conversation history in SQLite so
// multi-turn context survives process restarts.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chadiek/voice-secretary/internal/chat"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps ordered messages per session key.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates and initializes the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_messages (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_key  TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		role         TEXT NOT NULL,
		content      TEXT NOT NULL DEFAULT '',
		name         TEXT NOT NULL DEFAULT '',
		tool_call_id TEXT NOT NULL DEFAULT '',
		tool_calls   TEXT NOT NULL DEFAULT '[]',
		created_at   TEXT NOT NULL,
		UNIQUE(session_key, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_session_messages_key ON session_messages(session_key, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// History returns all messages for the session key in append order.
func (s *SQLiteStore) History(sessionKey string) ([]chat.Message, error) {
	rows, err := s.db.Query(`
		SELECT role, content, name, tool_call_id, tool_calls
		FROM session_messages WHERE session_key=? ORDER BY seq`, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var msg chat.Message
		var toolCallsJSON string
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Name, &msg.ToolCallID, &toolCallsJSON); err != nil {
			continue
		}
		if toolCallsJSON != "" && toolCallsJSON != "[]" {
			var calls []chat.ToolCall
			if err := json.Unmarshal([]byte(toolCallsJSON), &calls); err == nil {
				msg.ToolCalls = calls
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Append adds messages to the end of the session in one transaction.
func (s *SQLiteStore) Append(sessionKey string, messages ...chat.Message) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	row := tx.QueryRow(`SELECT COALESCE(MAX(seq)+1, 0) FROM session_messages WHERE session_key=?`, sessionKey)
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO session_messages (session_key, seq, role, content, name, tool_call_id, tool_calls, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, msg := range messages {
		toolCallsJSON := "[]"
		if len(msg.ToolCalls) > 0 {
			if data, marshalErr := json.Marshal(msg.ToolCalls); marshalErr == nil {
				toolCallsJSON = string(data)
			}
		}
		if _, err := stmt.Exec(sessionKey, next+i, msg.Role, msg.Content, msg.Name,
			msg.ToolCallID, toolCallsJSON, now); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Clear removes every message of the session.
func (s *SQLiteStore) Clear(sessionKey string) error {
	if _, err := s.db.Exec(`DELETE FROM session_messages WHERE session_key=?`, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
