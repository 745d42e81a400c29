package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

// Repository implements emulator.Repository on SQLite. Tags are stored as a
// JSON array and timestamps as RFC 3339 text.
type Repository struct {
	db *sql.DB
}

// New wraps an open database. Bootstrap must have been run on it.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open opens (and creates if needed) the SQLite database at path and
// ensures the catalog table exists.
func Open(ctx context.Context, path string) (*Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection would get its own database.
		db.SetMaxOpenConns(1)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := Bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Bootstrap creates tables and indexes if missing.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workshop_items (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  app_id       INTEGER NOT NULL,
  owner        TEXT NOT NULL,
  title        TEXT NOT NULL DEFAULT '',
  description  TEXT NOT NULL DEFAULT '',
  tags         JSON NOT NULL DEFAULT '[]',
  visibility   INTEGER NOT NULL DEFAULT 0,
  file_type    INTEGER NOT NULL DEFAULT 0,
  file_name    TEXT NOT NULL DEFAULT '',
  file_size    INTEGER NOT NULL DEFAULT 0,
  content_key  TEXT NOT NULL DEFAULT '',
  preview_key  TEXT NOT NULL DEFAULT '',
  revision     INTEGER NOT NULL DEFAULT 0,
  digest       TEXT NOT NULL DEFAULT '',
  change_notes TEXT NOT NULL DEFAULT '',
  created_at   TEXT NOT NULL,
  updated_at   TEXT NOT NULL,
  deleted_at   TEXT
);`,
		`CREATE INDEX IF NOT EXISTS idx_workshop_items_owner ON workshop_items(app_id, owner, id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}

const itemColumns = `id, app_id, owner, title, description, tags, visibility, file_type,
  file_name, file_size, content_key, preview_key, revision, digest, change_notes,
  created_at, updated_at, deleted_at`

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func scanItem(row scanner) (*emulator.Item, error) {
	var (
		item                 emulator.Item
		id, appID            int64
		tags                 string
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)
	err := row.Scan(&id, &appID, &item.Owner, &item.Title, &item.Description, &tags,
		&item.Visibility, &item.FileType, &item.FileName, &item.FileSize, &item.ContentKey,
		&item.PreviewKey, &item.Revision, &item.Digest, &item.ChangeNotes,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	item.ID = workshop.ItemID(id)
	item.AppID = workshop.AppID(appID)
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of item %d: %w", id, err)
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if deletedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, deletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse deleted_at: %w", err)
		}
		item.DeletedAt = &t
	}
	return &item, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

func (r *Repository) CreateItem(ctx context.Context, item *emulator.Item) error {
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO workshop_items (
  app_id, owner, title, description, tags, visibility, file_type, file_name, file_size,
  content_key, preview_key, revision, digest, change_notes, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(item.AppID), item.Owner, item.Title, item.Description, tags,
		int(item.Visibility), int(item.FileType), item.FileName, item.FileSize,
		item.ContentKey, item.PreviewKey, item.Revision, item.Digest, item.ChangeNotes,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert item id: %w", err)
	}
	item.ID = workshop.ItemID(id)
	return nil
}

func (r *Repository) GetItem(ctx context.Context, id workshop.ItemID) (*emulator.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM workshop_items WHERE id = ? AND deleted_at IS NULL`, int64(id))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, emulator.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *emulator.Item) error {
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE workshop_items SET
  title = ?, description = ?, tags = ?, visibility = ?, file_type = ?, file_name = ?,
  file_size = ?, content_key = ?, preview_key = ?, revision = ?, digest = ?,
  change_notes = ?, updated_at = ?
WHERE id = ? AND deleted_at IS NULL`,
		item.Title, item.Description, tags, int(item.Visibility), int(item.FileType),
		item.FileName, item.FileSize, item.ContentKey, item.PreviewKey, item.Revision,
		item.Digest, item.ChangeNotes, formatTime(item.UpdatedAt), int64(item.ID))
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteItem(ctx context.Context, id workshop.ItemID) error {
	now := formatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `UPDATE workshop_items SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now, now, int64(id))
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return emulator.ErrItemNotFound
	}
	return nil
}

func (r *Repository) ListItemsByOwner(ctx context.Context, app workshop.AppID, owner string, offset, limit int) ([]*emulator.Item, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM workshop_items
WHERE app_id = ? AND owner = ? AND deleted_at IS NULL
ORDER BY id LIMIT ? OFFSET ?`, int64(app), owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*emulator.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
