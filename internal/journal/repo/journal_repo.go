package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/journal/entity"
)

// Repo stores journal entries in PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// EnsureTable creates the mutation_journal table and its index when missing.
func (r *Repo) EnsureTable(ctx context.Context) error {
	var tblName sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT to_regclass('public.mutation_journal')").Scan(&tblName); err != nil {
		return err
	}
	if !tblName.Valid {
		createTable := `CREATE TABLE mutation_journal (
			id varchar(32) PRIMARY KEY,
			action varchar(16) NOT NULL,
			user_id bigint NOT NULL DEFAULT 0,
			outcome varchar(16) NOT NULL,
			message text NOT NULL DEFAULT '',
			created_at timestamptz NOT NULL DEFAULT now()
		)`
		if _, err := r.db.ExecContext(ctx, createTable); err != nil {
			return err
		}
	}

	var idxName sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT to_regclass('public.idx_mutation_journal_user_id')").Scan(&idxName); err != nil {
		return err
	}
	if !idxName.Valid {
		if _, err := r.db.ExecContext(ctx, `CREATE INDEX idx_mutation_journal_user_id ON mutation_journal (user_id)`); err != nil {
			return err
		}
	}
	return nil
}

// Append inserts one entry.
func (r *Repo) Append(ctx context.Context, e *entity.Entry) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO mutation_journal
		(id, action, user_id, outcome, message, created_at)
		VALUES (:id, :action, :user_id, :outcome, :message, :created_at)`, e)
	return err
}

// Recent returns the newest entries first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]entity.Entry, error) {
	out := []entity.Entry{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, action, user_id, outcome, message, created_at
		FROM mutation_journal ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	return out, err
}
