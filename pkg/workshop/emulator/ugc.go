package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

// CreateQueryItemDetails prepares a details query for items.
func (e *Emulator) CreateQueryItemDetails(items []workshop.ItemID) workshop.QueryHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f := e.record(CallCreateQuery); f.Reject || !e.initialized || len(items) == 0 {
		return workshop.InvalidQueryHandle
	}
	e.nextHandle++
	q := workshop.QueryHandle(e.nextHandle)
	e.queries[q] = &query{items: append([]workshop.ItemID(nil), items...)}
	return q
}

// SendQuery runs a prepared query.
func (e *Emulator) SendQuery(q workshop.QueryHandle) workshop.CallHandle {
	e.mu.Lock()
	qq, ok := e.queries[q]
	e.mu.Unlock()
	if !ok {
		e.enter(CallSendQuery)
		return workshop.InvalidCallHandle
	}

	return e.issue(CallSendQuery, func(ctx context.Context) (workshop.Result, any) {
		results := make([]workshop.ItemDetails, 0, len(qq.items))
		for _, id := range qq.items {
			item, err := e.repo.GetItem(ctx, id)
			if err != nil {
				results = append(results, workshop.ItemDetails{ItemID: id, Result: e.resultFor(err)})
				continue
			}
			results = append(results, item.Details())
		}
		e.mu.Lock()
		qq.results = results
		e.mu.Unlock()
		return workshop.ResultOK, workshop.QueryCompleted{Query: q, Results: len(results)}
	})
}

// QueryResult returns one result of a completed query.
func (e *Emulator) QueryResult(q workshop.QueryHandle, index int) (workshop.ItemDetails, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallQueryResult)
	qq, ok := e.queries[q]
	if !ok || index < 0 || index >= len(qq.results) {
		return workshop.ItemDetails{}, false
	}
	return qq.results[index], true
}

// ReleaseQuery frees a query.
func (e *Emulator) ReleaseQuery(q workshop.QueryHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallReleaseQuery)
	if _, ok := e.queries[q]; !ok {
		return false
	}
	delete(e.queries, q)
	return true
}

// StartItemUpdate opens an update session for item.
func (e *Emulator) StartItemUpdate(app workshop.AppID, item workshop.ItemID) workshop.UpdateHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f := e.record(CallStartItemUpdate); f.Reject || !e.initialized || app != e.app {
		return workshop.InvalidUpdateHandle
	}
	e.nextHandle++
	h := workshop.UpdateHandle(e.nextHandle)
	e.sessions[h] = &itemUpdate{app: app, item: item}
	return h
}

// SetItemContent sets the content root of an update session. dir must be
// an absolute or working-directory relative directory.
func (e *Emulator) SetItemContent(h workshop.UpdateHandle, dir string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f := e.record(CallSetItemContent); f.Reject {
		return false
	}
	s, ok := e.sessions[h]
	if !ok {
		return false
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	s.content = abs
	return true
}

// SubmitItemUpdate uploads the session's content directory as a new revision.
func (e *Emulator) SubmitItemUpdate(h workshop.UpdateHandle, changeNotes string) workshop.CallHandle {
	e.mu.Lock()
	s, ok := e.sessions[h]
	var sess itemUpdate
	if ok {
		sess = *s
	}
	e.mu.Unlock()
	if !ok {
		e.enter(CallSubmitItemUpdate)
		return workshop.InvalidCallHandle
	}

	return e.issue(CallSubmitItemUpdate, func(ctx context.Context) (workshop.Result, any) {
		item, res := e.ownedItem(ctx, sess.item)
		if res != workshop.ResultOK {
			return res, nil
		}
		item.Revision++
		item.ChangeNotes = changeNotes
		item.UpdatedAt = time.Now().UTC()
		if sess.content != "" {
			prefix := BundlePrefix(item.AppID, item.ID, item.Revision)
			size, sum, err := e.uploadTree(ctx, sess.content, prefix)
			if err != nil {
				e.logger.Error("bundle upload failed", "item", item.ID, "error", err)
				return workshop.ResultFail, nil
			}
			item.ContentKey = prefix
			item.FileName = ""
			item.FileSize = size
			item.Digest = sum
		}
		if err := e.repo.UpdateItem(ctx, item); err != nil {
			return e.resultFor(err), nil
		}
		e.logger.Info("item bundle submitted", "item", item.ID, "revision", item.Revision, "size", item.FileSize)
		return workshop.ResultOK, workshop.SubmitItemUpdateResult{ItemID: item.ID, NeedsLegalAgreement: e.legal}
	})
}

// uploadTree stores every regular file below root under prefix and returns
// the total size and a digest over paths and contents in walk order.
func (e *Emulator) uploadTree(ctx context.Context, root, prefix string) (int64, string, error) {
	h := blake3.New()
	var total int64
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		io.WriteString(h, rel)
		counter := &countingReader{r: f}
		if err := e.store.Upload(ctx, prefix+rel, io.TeeReader(counter, h)); err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}
		total += counter.n
		return nil
	})
	if err != nil {
		return 0, "", err
	}
	return total, digest(h), nil
}

// ReleaseItemUpdate frees an update session.
func (e *Emulator) ReleaseItemUpdate(h workshop.UpdateHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(CallReleaseItemUpdate)
	delete(e.sessions, h)
}

// DownloadItem writes the current revision of item into installDir/<item>.
// An empty installDir selects the emulator's install root.
func (e *Emulator) DownloadItem(id workshop.ItemID, installDir string) workshop.CallHandle {
	if installDir == "" {
		installDir = e.installRoot
	}
	return e.issue(CallDownloadItem, func(ctx context.Context) (workshop.Result, any) {
		item, err := e.repo.GetItem(ctx, id)
		if err != nil {
			return e.resultFor(err), nil
		}
		target := filepath.Join(installDir, id.String())
		if err := e.install(ctx, item, target); err != nil {
			e.logger.Error("install failed", "item", id, "error", err)
			return workshop.ResultFail, nil
		}
		return workshop.ResultOK, workshop.DownloadItemResult{ItemID: id, InstallDir: target}
	})
}

func (e *Emulator) install(ctx context.Context, item *Item, target string) error {
	if item.ContentKey == "" {
		return errors.New("item has no content")
	}
	if !strings.HasSuffix(item.ContentKey, "/") {
		return e.writeObject(ctx, item.ContentKey, filepath.Join(target, filepath.Base(item.FileName)))
	}
	objs, err := e.store.List(ctx, item.ContentKey)
	if err != nil {
		return err
	}
	for _, obj := range objs {
		rel := filepath.FromSlash(strings.TrimPrefix(obj.Key, item.ContentKey))
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("refusing to install %q outside %s", obj.Key, target)
		}
		if err := e.writeObject(ctx, obj.Key, filepath.Join(target, rel)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emulator) writeObject(ctx context.Context, key, dst string) error {
	rc, err := e.store.Download(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
