package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// staleReservation is how long a key may stay reserved without a response
// before another request can take it over.
const staleReservation = time.Minute

type IdempotencyRepository struct {
	db DB
}

func NewIdempotencyRepository(db DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Reserve inserts a pending row for key. Postgres serialises the inserts on
// the primary key, so exactly one concurrent caller gets true. A pending row
// older than staleReservation is taken over.
func (r *IdempotencyRepository) Reserve(ctx context.Context, key string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO idempotency_keys (key_id) VALUES ($1)
		ON CONFLICT (key_id) DO UPDATE SET created_at = NOW()
		WHERE idempotency_keys.response_status = 0
		  AND idempotency_keys.created_at < NOW() - make_interval(secs => $2)`,
		key, staleReservation.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Lookup returns the stored response of a completed key.
func (r *IdempotencyRepository) Lookup(ctx context.Context, key string) (int, []byte, bool, error) {
	var status int
	var body []byte
	err := r.db.QueryRow(ctx,
		"SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1 AND response_status <> 0",
		key).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return status, body, true, nil
}

// Save completes a reservation with the response to replay.
func (r *IdempotencyRepository) Save(ctx context.Context, key string, status int, body []byte) error {
	_, err := r.db.Exec(ctx,
		"UPDATE idempotency_keys SET response_status = $2, response_body = $3 WHERE key_id = $1",
		key, status, body)
	return err
}

// Release drops a pending reservation. Completed keys are left alone.
func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM idempotency_keys WHERE key_id = $1 AND response_status = 0",
		key)
	return err
}
