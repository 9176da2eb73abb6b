package lockaudit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore implements [Store] over database/sql with the pgx stdlib
// driver. Upserts rely on ON CONFLICT so concurrent writers for the same
// row serialize inside Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore binds the store to an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) UpsertIPLock(ctx context.Context, ip, latestUsername string) error {
	latest := sql.NullString{String: latestUsername, Valid: latestUsername != ""}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_limited_ips (ip_address, lockout_count, latest_username, created_at, updated_at)
		VALUES ($1, 1, $2, now(), now())
		ON CONFLICT (ip_address) DO UPDATE
		SET lockout_count = rate_limited_ips.lockout_count + 1,
		    latest_username = COALESCE(EXCLUDED.latest_username, rate_limited_ips.latest_username),
		    updated_at = now()
	`, ip, latest)
	if err != nil {
		return fmt.Errorf("%w: upsert ip lock: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetIPLock(ctx context.Context, ip string) (IPLock, error) {
	var (
		rec    IPLock
		latest sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT ip_address, lockout_count, latest_username, created_at, updated_at
		FROM rate_limited_ips
		WHERE ip_address = $1
	`, ip).Scan(&rec.IPAddress, &rec.LockoutCount, &latest, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return IPLock{}, ErrNotFound
		}
		return IPLock{}, fmt.Errorf("%w: get ip lock: %v", ErrStoreUnavailable, err)
	}
	rec.LatestUsername = latest.String
	return rec, nil
}

func (s *PostgresStore) ListIPLocks(ctx context.Context, f ListFilter) ([]IPLock, error) {
	limit, offset := f.limitOffset()

	query := psql.
		Select("ip_address", "lockout_count", "latest_username", "created_at", "updated_at").
		From("rate_limited_ips").
		OrderBy("updated_at DESC").
		Limit(limit).
		Offset(offset)
	if f.IP != "" {
		query = query.Where(sq.Eq{"ip_address": f.IP})
	}
	if f.Username != "" {
		query = query.Where(sq.Eq{"latest_username": f.Username})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ip lock query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list ip locks: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []IPLock
	for rows.Next() {
		var (
			rec    IPLock
			latest sql.NullString
		)
		if err := rows.Scan(&rec.IPAddress, &rec.LockoutCount, &latest, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan ip lock: %v", ErrStoreUnavailable, err)
		}
		rec.LatestUsername = latest.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list ip locks: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteIPLock(ctx context.Context, ip string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rate_limited_ips WHERE ip_address = $1`, ip); err != nil {
		return fmt.Errorf("%w: delete ip lock: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) RecordAccountFailure(ctx context.Context, username string, threshold int, cooldown time.Duration, now time.Time) (AccountLock, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AccountLock{}, fmt.Errorf("%w: begin account failure: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	rec := AccountLock{Username: username}
	var until sql.NullTime
	err = tx.QueryRowContext(ctx, `
		INSERT INTO account_locks (username, failure_count, lockout_until)
		VALUES ($1, 1, NULL)
		ON CONFLICT (username) DO UPDATE
		SET failure_count = account_locks.failure_count + 1
		RETURNING failure_count, lockout_until
	`, username).Scan(&rec.FailureCount, &until)
	if err != nil {
		return AccountLock{}, fmt.Errorf("%w: record account failure: %v", ErrStoreUnavailable, err)
	}
	if until.Valid {
		t := until.Time
		rec.LockoutUntil = &t
	}

	if threshold > 0 && rec.FailureCount >= threshold {
		lockedUntil := now.Add(cooldown)
		if _, err := tx.ExecContext(ctx, `
			UPDATE account_locks
			SET failure_count = 0, lockout_until = $2
			WHERE username = $1
		`, username, lockedUntil); err != nil {
			return AccountLock{}, fmt.Errorf("%w: set account lockout: %v", ErrStoreUnavailable, err)
		}
		rec.FailureCount = 0
		rec.LockoutUntil = &lockedUntil
	}

	if err := tx.Commit(); err != nil {
		return AccountLock{}, fmt.Errorf("%w: commit account failure: %v", ErrStoreUnavailable, err)
	}
	return rec, nil
}

func (s *PostgresStore) GetAccountLock(ctx context.Context, username string) (AccountLock, error) {
	var (
		rec   AccountLock
		until sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT username, failure_count, lockout_until
		FROM account_locks
		WHERE username = $1
	`, username).Scan(&rec.Username, &rec.FailureCount, &until)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AccountLock{}, ErrNotFound
		}
		return AccountLock{}, fmt.Errorf("%w: get account lock: %v", ErrStoreUnavailable, err)
	}
	if until.Valid {
		t := until.Time
		rec.LockoutUntil = &t
	}
	return rec, nil
}

func (s *PostgresStore) ListAccountLocks(ctx context.Context, f ListFilter) ([]AccountLock, error) {
	limit, offset := f.limitOffset()

	query := psql.
		Select("username", "failure_count", "lockout_until").
		From("account_locks").
		OrderBy("failure_count DESC", "username ASC").
		Limit(limit).
		Offset(offset)
	if f.Username != "" {
		query = query.Where(sq.Eq{"username": f.Username})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account lock query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list account locks: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []AccountLock
	for rows.Next() {
		var (
			rec   AccountLock
			until sql.NullTime
		)
		if err := rows.Scan(&rec.Username, &rec.FailureCount, &until); err != nil {
			return nil, fmt.Errorf("%w: scan account lock: %v", ErrStoreUnavailable, err)
		}
		if until.Valid {
			t := until.Time
			rec.LockoutUntil = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list account locks: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) ClearAccountLock(ctx context.Context, username string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE account_locks
		SET failure_count = 0, lockout_until = NULL
		WHERE username = $1
	`, username); err != nil {
		return fmt.Errorf("%w: clear account lock: %v", ErrStoreUnavailable, err)
	}
	return nil
}
