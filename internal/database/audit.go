// internal/database/audit.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/flip/internal/cache"
)

const schema = `
CREATE TABLE IF NOT EXISTS flip_games (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS flip_audit (
	game_id    UUID NOT NULL REFERENCES flip_games(id),
	seq        BIGINT NOT NULL,
	seat       INT,
	kind       TEXT NOT NULL,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, seq)
);`

// AuditStore persists audit records and per-game status rows.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore wraps pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// EnsureSchema creates the audit tables when missing.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// InsertAudit writes a batch in a single transaction. The game row is upserted for every
// record and closed when the record reports the end of the game. Replayed records are ignored.
func (s *AuditStore) InsertAudit(ctx context.Context, recs []cache.AuditRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range recs {
			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload of %s #%d: %w", rec.Kind, rec.Seq, err)
			}
			batch.Queue(`
				INSERT INTO flip_games (id, status, start_time)
				VALUES ($1, 'in_progress', NOW())
				ON CONFLICT (id) DO NOTHING`, rec.GameID)
			batch.Queue(`
				INSERT INTO flip_audit (game_id, seq, seat, kind, payload, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (game_id, seq) DO NOTHING`,
				rec.GameID, rec.Seq, nullableSeat(rec.Seat), rec.Kind, payload, time.UnixMilli(rec.Timestamp))
			if status := FinalStatus(rec.Kind); status != "" {
				batch.Queue(`
					UPDATE flip_games
					SET status = $2, end_time = NOW()
					WHERE id = $1 AND status = 'in_progress'`, rec.GameID, status)
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// MarkAbandoned closes a game that stopped producing records.
func (s *AuditStore) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE flip_games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'`, gameID)
	if err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return nil
}

// FinalStatus maps a record kind that ends a game to the game row's final status.
func FinalStatus(kind string) string {
	switch kind {
	case "game-completed":
		return "completed"
	case "game-completely-reset":
		return "reset"
	}
	return ""
}

func nullableSeat(seat int) interface{} {
	if seat == 0 {
		return nil
	}
	return seat
}
