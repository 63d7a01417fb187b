package mongo

import (
	"context"
	"fmt"

	"github.com/sakif/healthchat/internal/model"
)

// AppendChatLog inserts one audit entry. Entries are never updated.
func (s *Store) AppendChatLog(ctx context.Context, entry *model.ChatLogEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	if _, err := s.chatLogs.InsertOne(ctx, entry); err != nil {
		return insertErr(model.CollectionChatLogs, "appending chat log", err)
	}
	return nil
}
