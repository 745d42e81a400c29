package emulator

import (
	"bytes"
	"context"
	"strings"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

func (e *Emulator) remoteKey(name string) string {
	return RemoteKey(e.currentApp(), e.user, name)
}

func (e *Emulator) remoteFiles(ctx context.Context) ([]ObjectMeta, string, error) {
	prefix := RemotePrefix(e.currentApp(), e.user)
	objs, err := e.store.List(ctx, prefix)
	return objs, prefix, err
}

// FileExists reports whether name is in temporary storage.
func (e *Emulator) FileExists(name string) bool {
	e.enter(CallFileExists)
	_, err := e.store.GetObjectMeta(context.Background(), e.remoteKey(name))
	return err == nil
}

// FileDelete removes name from temporary storage.
func (e *Emulator) FileDelete(name string) bool {
	if f := e.enter(CallFileDelete); f.Reject {
		return false
	}
	if err := e.store.Delete(context.Background(), e.remoteKey(name)); err != nil {
		e.logger.Debug("remote delete failed", "name", name, "error", err)
		return false
	}
	return true
}

// FileWriteAsync writes data to temporary storage under name.
func (e *Emulator) FileWriteAsync(name string, data []byte) workshop.CallHandle {
	key := e.remoteKey(name)
	buf := bytes.Clone(data)
	return e.issue(CallFileWriteAsync, func(ctx context.Context) (workshop.Result, any) {
		if err := e.store.Upload(ctx, key, bytes.NewReader(buf)); err != nil {
			return e.resultFor(err), nil
		}
		return workshop.ResultOK, workshop.FileWriteResult{Name: name}
	})
}

// FileCount returns the number of files in temporary storage.
func (e *Emulator) FileCount() int {
	e.enter(CallFileCount)
	objs, _, err := e.remoteFiles(context.Background())
	if err != nil {
		e.logger.Error("listing remote files", "error", err)
		return 0
	}
	return len(objs)
}

// FileNameAndSize returns the file at index in key order.
func (e *Emulator) FileNameAndSize(index int) (string, int64) {
	e.enter(CallFileNameAndSize)
	objs, prefix, err := e.remoteFiles(context.Background())
	if err != nil || index < 0 || index >= len(objs) {
		return "", 0
	}
	return strings.TrimPrefix(objs[index].Key, prefix), objs[index].Size
}
