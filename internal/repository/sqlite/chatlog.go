package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/healthchat/internal/model"
)

func (db *DB) AppendChatLog(ctx context.Context, entry *model.ChatLogEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO chat_logs (id, user_id, conversation_id, timestamp, user_input, bot_response)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.ConversationID,
		entry.Timestamp,
		entry.UserInput,
		entry.BotResponse,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending chat log %s: %w", entry.ID, err)
	}
	return nil
}
