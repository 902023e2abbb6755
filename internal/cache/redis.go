// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the server appends audit records to.
const DefaultQueueName = "flip_audit"

// AuditRecord is one entry of the operator audit trail: a processed intent or a
// round/game outcome. The engine never reads these back.
type AuditRecord struct {
	GameID    uuid.UUID              `json:"game_id"`
	Seq       int64                  `json:"seq"`
	Seat      int                    `json:"seat,omitempty"`
	Kind      string                 `json:"kind"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"` // epoch millis
}

// Connect builds a client for addr/db and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// AuditQueue appends and pops audit records on a Redis list.
type AuditQueue struct {
	rdb  *redis.Client
	name string
}

// NewAuditQueue wraps rdb. An empty name selects DefaultQueueName.
func NewAuditQueue(rdb *redis.Client, name string) *AuditQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &AuditQueue{rdb: rdb, name: name}
}

// Publish serializes the record to JSON and pushes it onto the list.
func (q *AuditQueue) Publish(ctx context.Context, rec AuditRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Pop blocks up to timeout for the oldest record. It returns nil, nil when the wait
// times out.
func (q *AuditQueue) Pop(ctx context.Context, timeout time.Duration) (*AuditRecord, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the list name and res[1] the payload
	if len(res) < 2 {
		return nil, nil
	}
	return DecodeRecord([]byte(res[1]))
}

// Close releases the underlying client.
func (q *AuditQueue) Close() error {
	return q.rdb.Close()
}

// EncodeRecord marshals a record for the queue.
func EncodeRecord(rec AuditRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal AuditRecord: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a queued record.
func DecodeRecord(data []byte) (*AuditRecord, error) {
	var rec AuditRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid audit record: %w", err)
	}
	if rec.GameID == uuid.Nil || rec.Kind == "" {
		return nil, errors.New("invalid audit record: missing game_id or kind")
	}
	return &rec, nil
}
