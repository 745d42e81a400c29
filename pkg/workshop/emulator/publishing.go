package emulator

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/zeebo/blake3"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

// copyObject copies src to dst, feeding the bytes to h when it is non-nil.
func (e *Emulator) copyObject(ctx context.Context, src, dst string, h hash.Hash) (int64, error) {
	rc, err := e.store.Download(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", src, err)
	}
	defer rc.Close()

	counter := &countingReader{r: rc}
	var r io.Reader = counter
	if h != nil {
		r = io.TeeReader(counter, h)
	}
	if err := e.store.Upload(ctx, dst, r); err != nil {
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	return counter.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func digest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// PublishWorkshopFile creates a new item from staged files.
func (e *Emulator) PublishWorkshopFile(file, preview string, app workshop.AppID, title, description string, visibility workshop.Visibility, tags []string, fileType workshop.FileType) workshop.CallHandle {
	tags = append([]string(nil), tags...)
	current := e.currentApp()
	fileKey := e.remoteKey(file)

	return e.issue(CallPublishWorkshopFile, func(ctx context.Context) (workshop.Result, any) {
		if app != current {
			return workshop.ResultInvalidParam, nil
		}
		if _, err := e.store.GetObjectMeta(ctx, fileKey); err != nil {
			return workshop.ResultFileNotFound, nil
		}
		if preview != "" {
			if _, err := e.store.GetObjectMeta(ctx, e.remoteKey(preview)); err != nil {
				return workshop.ResultFileNotFound, nil
			}
		}

		now := time.Now().UTC()
		item := &Item{
			AppID:       app,
			Owner:       e.user,
			Title:       title,
			Description: description,
			Tags:        tags,
			Visibility:  visibility,
			FileType:    fileType,
			FileName:    file,
			Revision:    1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := e.repo.CreateItem(ctx, item); err != nil {
			return e.resultFor(err), nil
		}
		if err := e.storeRevision(ctx, item, file, preview); err != nil {
			return e.resultFor(err), nil
		}
		e.logger.Info("item published", "item", item.ID, "title", title)
		return workshop.ResultOK, workshop.PublishFileResult{ItemID: item.ID, NeedsLegalAgreement: e.legal}
	})
}

// storeRevision copies the staged file and preview into item's current
// revision and persists the item. Empty names keep the previous objects.
func (e *Emulator) storeRevision(ctx context.Context, item *Item, file, preview string) error {
	if file != "" {
		h := blake3.New()
		key := RevisionFileKey(item.AppID, item.ID, item.Revision, file)
		n, err := e.copyObject(ctx, e.remoteKey(file), key, h)
		if err != nil {
			return err
		}
		item.ContentKey = key
		item.FileSize = n
		item.Digest = digest(h)
	}
	if preview != "" {
		key := RevisionFileKey(item.AppID, item.ID, item.Revision, "preview_"+preview)
		if _, err := e.copyObject(ctx, e.remoteKey(preview), key, nil); err != nil {
			return err
		}
		item.PreviewKey = key
	}
	return e.repo.UpdateItem(ctx, item)
}

// CreatePublishedFileUpdateRequest starts collecting changes for item.
func (e *Emulator) CreatePublishedFileUpdateRequest(item workshop.ItemID) workshop.UpdateHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f := e.record(CallCreateUpdateRequest); f.Reject || !e.initialized {
		return workshop.InvalidUpdateHandle
	}
	e.nextHandle++
	h := workshop.UpdateHandle(e.nextHandle)
	e.updates[h] = &fileUpdate{item: item}
	return h
}

func (e *Emulator) withUpdate(call Call, h workshop.UpdateHandle, fn func(u *fileUpdate)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f := e.record(call); f.Reject {
		return false
	}
	u, ok := e.updates[h]
	if !ok {
		return false
	}
	fn(u)
	return true
}

// UpdatePublishedFileFile replaces the content file on commit.
func (e *Emulator) UpdatePublishedFileFile(h workshop.UpdateHandle, file string) bool {
	return e.withUpdate(CallUpdateFile, h, func(u *fileUpdate) { u.file = file })
}

// UpdatePublishedFilePreviewFile replaces the preview on commit.
func (e *Emulator) UpdatePublishedFilePreviewFile(h workshop.UpdateHandle, preview string) bool {
	return e.withUpdate(CallUpdatePreviewFile, h, func(u *fileUpdate) { u.preview = preview })
}

// UpdatePublishedFileTags replaces the tags on commit.
func (e *Emulator) UpdatePublishedFileTags(h workshop.UpdateHandle, tags []string) bool {
	tags = append([]string(nil), tags...)
	return e.withUpdate(CallUpdateTags, h, func(u *fileUpdate) {
		u.tags = tags
		u.setTags = true
	})
}

// CommitPublishedFileUpdate applies the collected changes as a new revision.
func (e *Emulator) CommitPublishedFileUpdate(h workshop.UpdateHandle) workshop.CallHandle {
	e.mu.Lock()
	u, ok := e.updates[h]
	delete(e.updates, h)
	e.mu.Unlock()
	if !ok {
		e.enter(CallCommitUpdate)
		return workshop.InvalidCallHandle
	}

	return e.issue(CallCommitUpdate, func(ctx context.Context) (workshop.Result, any) {
		item, res := e.ownedItem(ctx, u.item)
		if res != workshop.ResultOK {
			return res, nil
		}
		item.Revision++
		item.UpdatedAt = time.Now().UTC()
		if u.file != "" {
			item.FileName = u.file
		}
		if u.setTags {
			item.Tags = u.tags
		}
		if err := e.storeRevision(ctx, item, u.file, u.preview); err != nil {
			return e.resultFor(err), nil
		}
		e.logger.Info("item updated", "item", item.ID, "revision", item.Revision)
		return workshop.ResultOK, workshop.UpdatePublishedFileResult{ItemID: item.ID, NeedsLegalAgreement: e.legal}
	})
}

// ownedItem loads item and checks it belongs to the current user and app.
func (e *Emulator) ownedItem(ctx context.Context, id workshop.ItemID) (*Item, workshop.Result) {
	item, err := e.repo.GetItem(ctx, id)
	if err != nil {
		return nil, e.resultFor(err)
	}
	if item.Owner != e.user || item.AppID != e.currentApp() {
		return nil, workshop.ResultAccessDenied
	}
	return item, workshop.ResultOK
}

// DeletePublishedFile removes an item and its stored revisions.
func (e *Emulator) DeletePublishedFile(id workshop.ItemID) workshop.CallHandle {
	return e.issue(CallDeletePublishedFile, func(ctx context.Context) (workshop.Result, any) {
		item, res := e.ownedItem(ctx, id)
		if res != workshop.ResultOK {
			return res, nil
		}
		if err := e.repo.DeleteItem(ctx, id); err != nil {
			return e.resultFor(err), nil
		}
		objs, err := e.store.List(ctx, ItemPrefix(item.AppID, id))
		if err != nil {
			return e.resultFor(err), nil
		}
		for _, obj := range objs {
			if err := e.store.Delete(ctx, obj.Key); err != nil {
				e.logger.Warn("deleting item object", "key", obj.Key, "error", err)
			}
		}
		e.logger.Info("item deleted", "item", id)
		return workshop.ResultOK, workshop.DeletePublishedFileResult{ItemID: id}
	})
}

// EnumerateUserSharedWorkshopFiles returns one page of the user's items.
func (e *Emulator) EnumerateUserSharedWorkshopFiles(start int) workshop.CallHandle {
	app := e.currentApp()
	return e.issue(CallEnumerateUserFiles, func(ctx context.Context) (workshop.Result, any) {
		items, err := e.repo.ListItemsByOwner(ctx, app, e.user, start, workshop.EnumeratePageSize)
		if err != nil {
			return e.resultFor(err), nil
		}
		ids := make([]workshop.ItemID, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		return workshop.ResultOK, workshop.EnumerateResult{Items: ids, TotalResults: start + len(ids)}
	})
}
