package workshop_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
	memrepo "github.com/tendant/simple-workshop/pkg/workshop/emulator/repo/memory"
	memstore "github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/memory"
)

func TestStageFile(t *testing.T) {
	em := newEmulator(t)
	s := openSession(t, em, testApp)
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := s.Stager().StageFile(context.Background(), filepath.Join(dir, "absent.pbo"))
		assert.ErrorIs(t, err, workshop.ErrNotFound)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := s.Stager().StageFile(context.Background(), dir)
		assert.ErrorIs(t, err, workshop.ErrNotFound)
	})

	t.Run("stage then purge", func(t *testing.T) {
		rec, err := s.Stager().StageFile(context.Background(), writeFile(t, dir, "demo.pbo", "12345"))
		require.NoError(t, err)
		assert.Equal(t, "kpsteam_demo.pbo", rec.RemotePath)
		assert.EqualValues(t, 5, rec.Size)

		_, err = s.Stager().StageFile(context.Background(), writeFile(t, dir, "preview.png", "png"))
		require.NoError(t, err)

		files := s.Stager().List()
		assert.Equal(t, []workshop.RemoteFile{
			{Name: "kpsteam_demo.pbo", Size: 5},
			{Name: "kpsteam_preview.png", Size: 3},
		}, files)

		n, err := s.PurgeStale()
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Empty(t, s.Stager().List())

		n, err = s.PurgeStale()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("restaging replaces the remote file", func(t *testing.T) {
		p := writeFile(t, dir, "demo.pbo", "first")
		_, err := s.Stager().StageFile(context.Background(), p)
		require.NoError(t, err)

		em.ResetCalls()
		p = writeFile(t, dir, "demo.pbo", "second version")
		_, err = s.Stager().StageFile(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, 1, em.CallCount(emulator.CallFileDelete))

		files := s.Stager().List()
		require.Len(t, files, 1)
		assert.EqualValues(t, len("second version"), files[0].Size)

		_, err = s.PurgeStale()
		require.NoError(t, err)
	})
}

func TestStageFileVerificationFailure(t *testing.T) {
	em, err := emulator.New(
		emulator.WithBlobStore(lossyStore{memstore.New()}),
		emulator.WithRepository(memrepo.New()),
		emulator.WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	s := openSession(t, em, testApp)

	_, err = s.Stager().StageFile(context.Background(), writeFile(t, t.TempDir(), "demo.pbo", "x"))
	assert.ErrorIs(t, err, workshop.ErrUploadVerificationFailed)
}

func TestStagingRefusedDelete(t *testing.T) {
	em := newEmulator(t)
	s := openSession(t, em, testApp)
	p := writeFile(t, t.TempDir(), "demo.pbo", "x")

	_, err := s.Stager().StageFile(context.Background(), p)
	require.NoError(t, err)

	em.SetFault(emulator.CallFileDelete, emulator.Fault{Reject: true})

	_, err = s.Stager().StageFile(context.Background(), p)
	assert.ErrorIs(t, err, workshop.ErrRemoteCallRejected)

	_, err = s.PurgeStale()
	assert.ErrorIs(t, err, workshop.ErrRemoteCallRejected)
	assert.Len(t, s.Stager().List(), 1)
}

func TestOpenPurgesStaleFiles(t *testing.T) {
	em := newEmulator(t)
	dir := t.TempDir()

	first := openSession(t, em, testApp, workshop.WithoutStalePurge())
	_, err := first.Stager().StageFile(context.Background(), writeFile(t, dir, "a.pbo", "a"))
	require.NoError(t, err)
	_, err = first.Stager().StageFile(context.Background(), writeFile(t, dir, "b.pbo", "b"))
	require.NoError(t, err)
	first.Close()

	second := openSession(t, em, testApp)
	assert.Empty(t, second.Stager().List())
}

func TestOpenFailsWhenStalePurgeRefused(t *testing.T) {
	em := newEmulator(t)
	first := openSession(t, em, testApp, workshop.WithoutStalePurge())
	_, err := first.Stager().StageFile(context.Background(), writeFile(t, t.TempDir(), "a.pbo", "a"))
	require.NoError(t, err)
	first.Close()

	em.SetFault(emulator.CallFileDelete, emulator.Fault{Reject: true})
	em.ResetCalls()

	_, err = workshop.Open(context.Background(), em, testApp, sessionOptions()...)
	assert.ErrorIs(t, err, workshop.ErrRemoteCallRejected)
	assert.Equal(t, 1, em.CallCount(emulator.CallShutdown))
}

func TestStagingIsolatedPerUser(t *testing.T) {
	store := memstore.New()
	repo := memrepo.New()
	newUser := func(user string) *emulator.Emulator {
		em, err := emulator.New(
			emulator.WithBlobStore(store),
			emulator.WithRepository(repo),
			emulator.WithUser(user),
			emulator.WithLogger(quietLogger()),
		)
		require.NoError(t, err)
		return em
	}

	alice := openSession(t, newUser("alice"), testApp)
	_, err := alice.Stager().StageFile(context.Background(), writeFile(t, t.TempDir(), "demo.pbo", "x"))
	require.NoError(t, err)

	bob := openSession(t, newUser("bob"), testApp)
	assert.Empty(t, bob.Stager().List())
	assert.Len(t, alice.Stager().List(), 1, "opening another user's session leaves alice's files alone")
}
