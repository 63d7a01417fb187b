package model

import (
	"fmt"
	"time"
)

// AnonymousUserID marks chat turns made without a session.
const AnonymousUserID = "anonymous"

// ChatLogEntry is one completed question/answer exchange. Entries are append-only.
type ChatLogEntry struct {
	ID             string    `json:"log_id"          bson:"_id"             db:"id"`
	UserID         string    `json:"user_id"         bson:"user_id"         db:"user_id"`
	ConversationID string    `json:"conversation_id" bson:"conversation_id" db:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"       bson:"timestamp"       db:"timestamp"`
	UserInput      string    `json:"user_input"      bson:"user_input"      db:"user_input"`
	BotResponse    string    `json:"bot_response"    bson:"bot_response"    db:"bot_response"`
}

func (e *ChatLogEntry) Validate() error {
	switch {
	case e == nil:
		return fmt.Errorf("model: chat log entry is nil")
	case e.ID == "":
		return fmt.Errorf("model: chat log id is empty")
	case e.UserID == "":
		return fmt.Errorf("model: chat log user id is empty")
	case e.ConversationID == "":
		return fmt.Errorf("model: chat log conversation id is empty")
	case e.Timestamp.IsZero():
		return fmt.Errorf("model: chat log timestamp is not set")
	}
	return nil
}
