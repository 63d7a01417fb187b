package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/healthchat/internal/apperror"
	"github.com/sakif/healthchat/internal/auth"
	"github.com/sakif/healthchat/internal/metrics"
	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

// DefaultMaxLength is the answer length requested from the model when the caller gives none.
const DefaultMaxLength = 256

// Generator produces an answer for a question. It is the language model behind the chat.
type Generator interface {
	Generate(ctx context.Context, question string, maxLength int) (string, error)
}

// ChatInput is one question from a client. UserID is empty for anonymous callers.
type ChatInput struct {
	UserID         string `json:"-"`
	ConversationID string `json:"conversation_id" validate:"max=64"`
	Question       string `json:"question"        validate:"required,max=2000"`
	MaxLength      int    `json:"max_length"      validate:"gte=16,lte=1024"`
}

// ChatResult is the answer returned to the client.
type ChatResult struct {
	Answer         string    `json:"answer"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// ChatService runs one question/answer exchange and records it in the audit log.
type ChatService struct {
	generator Generator
	logs      repository.ChatLogRepository
	metrics   *metrics.ChatMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewChatService creates a ChatService. m may be nil.
func NewChatService(generator Generator, logs repository.ChatLogRepository, m *metrics.ChatMetrics, logger *slog.Logger) *ChatService {
	return &ChatService{
		generator: generator,
		logs:      logs,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Ask validates the question, asks the generator and appends one ChatLogEntry.
//
// A failed audit write is logged and does not fail the exchange: the caller
// still gets the answer. A failed generator call returns Unavailable and writes
// no audit entry.
func (s *ChatService) Ask(ctx context.Context, in ChatInput) (*ChatResult, error) {
	in.Question = strings.TrimSpace(in.Question)
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	if in.MaxLength == 0 {
		in.MaxLength = DefaultMaxLength
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	caller := "authenticated"
	userID := in.UserID
	if userID == "" {
		caller = "anonymous"
		userID = model.AnonymousUserID
	}

	conversationID := in.ConversationID
	if conversationID == "" {
		conversationID = auth.GenerateLogID()
	}

	started := time.Now()
	answer, err := s.generator.Generate(ctx, in.Question, in.MaxLength)
	elapsed := time.Since(started)
	if err != nil {
		s.metrics.ObserveTurn(caller, metrics.ResultError, elapsed)
		s.logger.Error("inference failed",
			slog.String("conversationID", conversationID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("inference")
	}

	entry := &model.ChatLogEntry{
		ID:             auth.GenerateLogID(),
		UserID:         userID,
		ConversationID: conversationID,
		Timestamp:      s.now().UTC().Truncate(time.Millisecond),
		UserInput:      in.Question,
		BotResponse:    answer,
	}
	if err := s.logs.AppendChatLog(ctx, entry); err != nil {
		s.logger.Error("writing chat log failed",
			slog.String("logID", entry.ID),
			slog.String("conversationID", conversationID),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.ObserveTurn(caller, metrics.ResultOK, elapsed)
	return &ChatResult{
		Answer:         answer,
		ConversationID: conversationID,
		Timestamp:      entry.Timestamp,
	}, nil
}
