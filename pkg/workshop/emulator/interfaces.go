package emulator

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

var (
	// ErrObjectNotFound is returned by a BlobStore for an unknown key
	ErrObjectNotFound = errors.New("object not found")

	// ErrItemNotFound is returned by a Repository for an unknown or deleted item
	ErrItemNotFound = errors.New("item not found")
)

// BlobStore persists remote storage and published item content.
// List returns objects sorted by key.
type BlobStore interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	GetObjectMeta(ctx context.Context, key string) (*ObjectMeta, error)
	List(ctx context.Context, prefix string) ([]ObjectMeta, error)
}

// ObjectMeta describes a stored object
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// Repository persists the item catalog.
type Repository interface {
	// CreateItem assigns item.ID. IDs start at 1.
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id workshop.ItemID) (*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	// DeleteItem marks the item deleted. Deleted items are not returned.
	DeleteItem(ctx context.Context, id workshop.ItemID) error
	// ListItemsByOwner returns items ordered by ID.
	ListItemsByOwner(ctx context.Context, app workshop.AppID, owner string, offset, limit int) ([]*Item, error)
}

// Item is a catalog entry.
type Item struct {
	ID          workshop.ItemID     `json:"id"`
	AppID       workshop.AppID      `json:"app_id"`
	Owner       string              `json:"owner"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Tags        []string            `json:"tags"`
	Visibility  workshop.Visibility `json:"visibility"`
	FileType    workshop.FileType   `json:"file_type"`
	FileName    string              `json:"file_name,omitempty"`
	FileSize    int64               `json:"file_size"`
	// ContentKey is an object key for single-file items and a key prefix
	// for bundle items.
	ContentKey  string     `json:"content_key,omitempty"`
	PreviewKey  string     `json:"preview_key,omitempty"`
	Revision    int        `json:"revision"`
	Digest      string     `json:"digest,omitempty"`
	ChangeNotes string     `json:"change_notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Details converts the catalog entry to the platform's query result form.
func (i *Item) Details() workshop.ItemDetails {
	return workshop.ItemDetails{
		ItemID:      i.ID,
		AppID:       i.AppID,
		Result:      workshop.ResultOK,
		Owner:       i.Owner,
		Title:       i.Title,
		Description: i.Description,
		Tags:        joinTags(i.Tags),
		Visibility:  i.Visibility,
		FileType:    i.FileType,
		FileName:    i.FileName,
		FileSize:    i.FileSize,
		Revision:    i.Revision,
		Digest:      i.Digest,
		ChangeNotes: i.ChangeNotes,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}
