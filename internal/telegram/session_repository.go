package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coach-planner/internal/database"
	"coach-planner/internal/nutrition"
	sessiondb "coach-planner/internal/telegram/session_db"
)

// DefaultTargets are the daily macro targets a chat starts with.
var DefaultTargets = nutrition.Macros{Calories: 2000, Protein: 150, Carbs: 200, Fat: 70}

// ChatSession is what a chat remembers between bot restarts.
type ChatSession struct {
	ChatID    int64
	ClientID  string
	Targets   nutrition.Macros
	UpdatedBy string
	UpdatedAt time.Time
}

// SessionRepository provides access to chat session persistence.
type SessionRepository struct {
	queries *sessiondb.Queries
	now     func() time.Time
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{
		queries: sessiondb.New(db),
		now:     time.Now,
	}
}

// Get returns the stored session for chatID, or nil when the chat has none.
func (sr *SessionRepository) Get(ctx context.Context, chatID int64) (*ChatSession, error) {
	row, err := sr.queries.GetChatSession(ctx, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load chat session: %w", err)
	}

	var targets nutrition.Macros
	if err := json.Unmarshal([]byte(row.Targets), &targets); err != nil {
		return nil, fmt.Errorf("failed to decode chat targets: %w", err)
	}
	updatedAt, err := database.ParseTime(row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ChatSession{
		ChatID:    row.ChatID,
		ClientID:  row.ClientID,
		Targets:   targets,
		UpdatedBy: row.UpdatedBy,
		UpdatedAt: updatedAt,
	}, nil
}

// Save upserts the session.
func (sr *SessionRepository) Save(ctx context.Context, s ChatSession) error {
	data, err := json.Marshal(s.Targets)
	if err != nil {
		return fmt.Errorf("failed to marshal chat targets: %w", err)
	}
	at := s.UpdatedAt
	if at.IsZero() {
		at = sr.now()
	}
	err = sr.queries.UpsertChatSession(ctx, sessiondb.UpsertChatSessionParams{
		ChatID:    s.ChatID,
		ClientID:  s.ClientID,
		Targets:   string(data),
		UpdatedBy: s.UpdatedBy,
		UpdatedAt: database.FormatTime(at),
	})
	if err != nil {
		return fmt.Errorf("failed to save chat session: %w", err)
	}
	return nil
}

// CleanupStale removes sessions untouched for longer than maxAge.
func (sr *SessionRepository) CleanupStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return sr.queries.CleanupStaleChatSessions(ctx, database.FormatTime(sr.now().Add(-maxAge)))
}
