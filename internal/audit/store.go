package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Turn is one audited conversational turn. This is an append-only usage log;
// session state itself stays in memory and is never persisted.
type Turn struct {
	ID          uuid.UUID
	SessionKey  string
	Action      string
	Term        string
	FilterTerm  string
	ResultCount int
}

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// RecordTurn appends one turn to conversation_turns.
func (s *Store) RecordTurn(ctx context.Context, t Turn) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_turns (id, session_key, action, term, filter_term, result_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		t.ID, t.SessionKey, t.Action, t.Term, t.FilterTerm, t.ResultCount,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}
