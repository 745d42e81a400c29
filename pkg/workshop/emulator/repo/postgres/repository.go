package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements emulator.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Schema creates the item catalog table.
const Schema = `
CREATE TABLE IF NOT EXISTS workshop_items (
	id           BIGSERIAL PRIMARY KEY,
	app_id       BIGINT NOT NULL,
	owner        TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	tags         TEXT[] NOT NULL DEFAULT '{}',
	visibility   INTEGER NOT NULL DEFAULT 0,
	file_type    INTEGER NOT NULL DEFAULT 0,
	file_name    TEXT NOT NULL DEFAULT '',
	file_size    BIGINT NOT NULL DEFAULT 0,
	content_key  TEXT NOT NULL DEFAULT '',
	preview_key  TEXT NOT NULL DEFAULT '',
	revision     INTEGER NOT NULL DEFAULT 0,
	digest       TEXT NOT NULL DEFAULT '',
	change_notes TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	deleted_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_workshop_items_owner ON workshop_items (app_id, owner, id) WHERE deleted_at IS NULL;
`

// EnsureSchema creates the catalog table when it is missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return r.handlePostgresError("ensure schema", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	// Handle other common errors
	if errors.Is(err, pgx.ErrNoRows) {
		return emulator.ErrItemNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const itemColumns = `id, app_id, owner, title, description, tags, visibility, file_type,
	file_name, file_size, content_key, preview_key, revision, digest, change_notes,
	created_at, updated_at, deleted_at`

func scanItem(row pgx.Row) (*emulator.Item, error) {
	var (
		item       emulator.Item
		id, appID  int64
		visibility int
		fileType   int
	)
	err := row.Scan(&id, &appID, &item.Owner, &item.Title, &item.Description, &item.Tags,
		&visibility, &fileType, &item.FileName, &item.FileSize, &item.ContentKey,
		&item.PreviewKey, &item.Revision, &item.Digest, &item.ChangeNotes,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.ID = workshop.ItemID(id)
	item.AppID = workshop.AppID(appID)
	item.Visibility = workshop.Visibility(visibility)
	item.FileType = workshop.FileType(fileType)
	return &item, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// Item operations

func (r *Repository) CreateItem(ctx context.Context, item *emulator.Item) error {
	query := `
		INSERT INTO workshop_items (
			app_id, owner, title, description, tags, visibility, file_type,
			file_name, file_size, content_key, preview_key, revision, digest,
			change_notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		int64(item.AppID), item.Owner, item.Title, item.Description, tagsOrEmpty(item.Tags),
		int(item.Visibility), int(item.FileType), item.FileName, item.FileSize,
		item.ContentKey, item.PreviewKey, item.Revision, item.Digest, item.ChangeNotes,
		item.CreatedAt, item.UpdatedAt).Scan(&id)
	if err != nil {
		return r.handlePostgresError("create item", err)
	}

	item.ID = workshop.ItemID(id)
	return nil
}

func (r *Repository) GetItem(ctx context.Context, id workshop.ItemID) (*emulator.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM workshop_items WHERE id = $1 AND deleted_at IS NULL`

	item, err := scanItem(r.db.QueryRow(ctx, query, int64(id)))
	if err != nil {
		return nil, r.handlePostgresError("get item", err)
	}
	return item, nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *emulator.Item) error {
	query := `
		UPDATE workshop_items SET
			title = $2, description = $3, tags = $4, visibility = $5, file_type = $6,
			file_name = $7, file_size = $8, content_key = $9, preview_key = $10,
			revision = $11, digest = $12, change_notes = $13, updated_at = $14
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		int64(item.ID), item.Title, item.Description, tagsOrEmpty(item.Tags),
		int(item.Visibility), int(item.FileType), item.FileName, item.FileSize,
		item.ContentKey, item.PreviewKey, item.Revision, item.Digest, item.ChangeNotes,
		item.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update item", err)
	}
	if tag.RowsAffected() == 0 {
		return emulator.ErrItemNotFound
	}
	return nil
}

func (r *Repository) DeleteItem(ctx context.Context, id workshop.ItemID) error {
	query := `UPDATE workshop_items SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, int64(id), time.Now().UTC())
	if err != nil {
		return r.handlePostgresError("delete item", err)
	}
	if tag.RowsAffected() == 0 {
		return emulator.ErrItemNotFound
	}
	return nil
}

func (r *Repository) ListItemsByOwner(ctx context.Context, app workshop.AppID, owner string, offset, limit int) ([]*emulator.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM workshop_items
		WHERE app_id = $1 AND owner = $2 AND deleted_at IS NULL
		ORDER BY id OFFSET $3`
	args := []interface{}{int64(app), owner, offset}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list items", err)
	}
	defer rows.Close()

	var items []*emulator.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list items", err)
	}
	return items, nil
}
