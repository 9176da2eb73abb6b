package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres implements [Directory] over the users table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres binds the directory to an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) GetByUsername(ctx context.Context, username string) (Record, error) {
	sqlStr, args, err := psql.
		Select("username", "email", "password_hash", "is_active").
		From("users").
		Where(sq.Eq{"username": strings.ToLower(username)}).
		ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("build user query: %w", err)
	}

	var rec Record
	err = p.db.QueryRowContext(ctx, sqlStr, args...).
		Scan(&rec.Username, &rec.Email, &rec.PasswordHash, &rec.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get user: %w", err)
	}
	return rec, nil
}
