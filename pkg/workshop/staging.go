package workshop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultStagingPrefix namespaces staged file names in remote storage.
const DefaultStagingPrefix = "kpsteam_"

// NormalizeRemotePath turns a host path into the remote storage form: forward
// slashes, no drive letter, no leading root and no dot segments. The result
// is the same on every host OS.
func NormalizeRemotePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		p = p[2:]
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Stager moves local files into the platform's temporary cloud storage and
// reclaims them.
type Stager struct {
	storage RemoteStorage
	corr    *Correlator
	prefix  string
	logger  *slog.Logger
	metrics Metrics
}

// NewStager creates a stager. An empty prefix selects DefaultStagingPrefix.
func NewStager(storage RemoteStorage, corr *Correlator, prefix string, logger *slog.Logger, metrics Metrics) *Stager {
	if prefix == "" {
		prefix = DefaultStagingPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Stager{
		storage: storage,
		corr:    corr,
		prefix:  prefix,
		logger:  logger.With("component", "staging"),
		metrics: metrics,
	}
}

// RemoteName returns the staging name for localPath. The path is normalized
// before its base name is taken so every host yields the same name.
func (s *Stager) RemoteName(localPath string) string {
	return s.prefix + path.Base(NormalizeRemotePath(localPath))
}

// StageFile uploads localPath to temporary storage, replacing any file of
// the same remote name, and verifies it arrived.
func (s *Stager) StageFile(ctx context.Context, localPath string) (StagingRecord, error) {
	const op = "stage"

	info, err := os.Stat(localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StagingRecord{}, notFound(op, localPath)
		}
		return StagingRecord{}, &Error{Kind: KindNotFound, Op: op, Path: localPath, Err: err}
	}
	if info.IsDir() {
		return StagingRecord{}, &Error{Kind: KindNotFound, Op: op, Path: localPath, Msg: "is a directory, not a file"}
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return StagingRecord{}, &Error{Kind: KindNotFound, Op: op, Path: localPath, Err: err}
	}

	remote := s.RemoteName(localPath)
	s.logger.Info("uploading to cloud storage", "file", filepath.Base(localPath), "remote", remote, "size", humanize.Bytes(uint64(len(data))))

	if s.storage.FileExists(remote) {
		s.logger.Info("deleting existing remote file", "remote", remote)
		if !s.storage.FileDelete(remote) {
			return StagingRecord{}, rejected(op, fmt.Errorf("delete of existing %q refused", remote))
		}
	}

	_, err = Await(ctx, s.corr, "file_write", func() CallHandle {
		return s.storage.FileWriteAsync(remote, data)
	}, func(Completion) (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil {
		return StagingRecord{}, err
	}

	if !s.storage.FileExists(remote) {
		return StagingRecord{}, &Error{Kind: KindUploadVerificationFailed, Op: op, Path: remote, Msg: "staged file missing after upload"}
	}
	s.logger.Info("uploaded to cloud storage", "remote", remote)

	return StagingRecord{LocalPath: localPath, RemotePath: remote, Size: int64(len(data))}, nil
}

// List returns every file currently in temporary storage.
func (s *Stager) List() []RemoteFile {
	n := s.storage.FileCount()
	files := make([]RemoteFile, 0, n)
	for i := 0; i < n; i++ {
		name, size := s.storage.FileNameAndSize(i)
		files = append(files, RemoteFile{Name: name, Size: size})
	}
	return files
}

// PurgeStale deletes every file in temporary storage and returns how many
// were removed. Index 0 is deleted until the count reaches zero; a refused
// delete or a count that stops shrinking is an error.
func (s *Stager) PurgeStale() (int, error) {
	const op = "purge_stale"

	deleted := 0
	defer func() {
		if deleted > 0 {
			s.metrics.AddStalePurged(deleted)
		}
	}()

	for {
		count := s.storage.FileCount()
		if count == 0 {
			return deleted, nil
		}
		name, size := s.storage.FileNameAndSize(0)
		s.logger.Info("deleting stale file", "remote", name, "size", humanize.Bytes(uint64(size)))
		if !s.storage.FileDelete(name) {
			return deleted, rejected(op, fmt.Errorf("delete of %q refused", name))
		}
		deleted++
		if s.storage.FileCount() >= count {
			return deleted, rejected(op, fmt.Errorf("file count did not shrink after deleting %q", name))
		}
	}
}
