package workshop_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
	memrepo "github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/memory"
	memstore "github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/memory"
)

const testApp workshop.AppID = 4000

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEmulator(t *testing.T, opts ...emulator.Option) *emulator.Emulator {
	t.Helper()
	base := []emulator.Option{
		emulator.WithBlobStore(memstore.New()),
		emulator.WithRepository(memrepo.New()),
		emulator.WithUser("tester"),
		emulator.WithLogger(quietLogger()),
		emulator.WithInstallRoot(t.TempDir()),
	}
	em, err := emulator.New(append(base, opts...)...)
	require.NoError(t, err)
	return em
}

func sessionOptions(opts ...workshop.Option) []workshop.Option {
	base := []workshop.Option{
		workshop.WithLogger(quietLogger()),
		workshop.WithPollInterval(2 * time.Millisecond),
		workshop.WithOperationTimeout(5 * time.Second),
	}
	return append(base, opts...)
}

func openSession(t *testing.T, em *emulator.Emulator, app workshop.AppID, opts ...workshop.Option) *workshop.Session {
	t.Helper()
	s, err := workshop.Open(context.Background(), em, app, sessionOptions(opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// seedItem stores an item owned by the emulator's user directly in the catalog.
func seedItem(t *testing.T, em *emulator.Emulator, app workshop.AppID, tags ...string) workshop.ItemID {
	t.Helper()
	now := time.Now().UTC()
	item := &emulator.Item{
		AppID:     app,
		Owner:     em.UserID(),
		Title:     "Seeded",
		Tags:      tags,
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, em.Repository().CreateItem(context.Background(), item))
	return item.ID
}

// stateRecorder collects pipeline state transitions.
type stateRecorder struct {
	mu     sync.Mutex
	states []workshop.State
}

func (r *stateRecorder) hooks() *workshop.Hooks {
	return &workshop.Hooks{
		OnStateChange: []workshop.StateChangeHook{
			func(_ *workshop.HookContext, _ workshop.Variant, _ workshop.ItemID, _, to workshop.State) {
				r.mu.Lock()
				defer r.mu.Unlock()
				r.states = append(r.states, to)
			},
		},
	}
}

func (r *stateRecorder) get() []workshop.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]workshop.State(nil), r.states...)
}

// lossyStore accepts uploads of remote files and then forgets them.
type lossyStore struct {
	emulator.BlobStore
}

func (s lossyStore) Upload(ctx context.Context, key string, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
