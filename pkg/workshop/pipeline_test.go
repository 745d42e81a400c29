package workshop_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

func TestLegacyPublishNewItem(t *testing.T) {
	em := newEmulator(t)
	rec := &stateRecorder{}
	s := openSession(t, em, testApp, workshop.WithHooks(rec.hooks()))
	dir := t.TempDir()

	res, err := s.Publish(context.Background(), workshop.Request{
		Legacy: true,
		Content: workshop.ContentSpec{
			ContentPath: writeFile(t, dir, "demo.pbo", "mission data"),
			Title:       "Test",
			Description: "d",
			Tags:        []string{"Tag1"},
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, res.ItemID)
	assert.True(t, res.Created)
	assert.Equal(t, workshop.VariantLegacy, res.Variant)
	assert.False(t, res.NeedsLegalAgreement)
	require.Len(t, res.Staged, 1)
	assert.Equal(t, "kpsteam_demo.pbo", res.Staged[0].RemotePath)
	assert.EqualValues(t, len("mission data"), res.Staged[0].Size)

	item, err := em.Repository().GetItem(context.Background(), res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, "Test", item.Title)
	assert.Equal(t, "d", item.Description)
	assert.Equal(t, []string{"Tag1"}, item.Tags)
	assert.Equal(t, "kpsteam_demo.pbo", item.FileName)
	assert.Equal(t, workshop.VisibilityPublic, item.Visibility)
	assert.Equal(t, 1, item.Revision)
	assert.NotEmpty(t, item.Digest)

	assert.Empty(t, s.Stager().List(), "staging files are purged after publish")
	assert.Equal(t, []workshop.State{
		workshop.StateStaging,
		workshop.StatePublishSubmitted,
		workshop.StateAwaitingCompletion,
		workshop.StateCommitted,
		workshop.StateCleanedUp,
	}, rec.get())
}

func TestLegacyPublishWithPreview(t *testing.T) {
	em := newEmulator(t, emulator.WithLegalAgreementPending())
	s := openSession(t, em, testApp)
	dir := t.TempDir()

	res, err := s.Publish(context.Background(), workshop.Request{
		Legacy: true,
		Content: workshop.ContentSpec{
			ContentPath: writeFile(t, dir, "demo.pbo", "x"),
			PreviewPath: writeFile(t, dir, "preview.png", "png"),
			Title:       "Test",
			Description: "d",
		},
	})
	require.NoError(t, err)
	assert.True(t, res.NeedsLegalAgreement)
	assert.Len(t, res.Staged, 2)

	item, err := em.Repository().GetItem(context.Background(), res.ItemID)
	require.NoError(t, err)
	assert.NotEmpty(t, item.PreviewKey)
}

func TestLegacyMissingPreviewIsNotAnError(t *testing.T) {
	em := newEmulator(t)
	s := openSession(t, em, testApp)
	dir := t.TempDir()

	res, err := s.Publish(context.Background(), workshop.Request{
		Legacy: true,
		Content: workshop.ContentSpec{
			ContentPath: writeFile(t, dir, "demo.pbo", "x"),
			PreviewPath: filepath.Join(dir, "missing.png"),
			Title:       "Test",
			Description: "d",
		},
	})
	require.NoError(t, err)
	assert.Len(t, res.Staged, 1)
}

func TestLegacyUpdateMergesTags(t *testing.T) {
	em := newEmulator(t)
	s := openSession(t, em, testApp)
	dir := t.TempDir()
	file := writeFile(t, dir, "demo.pbo", "v1")

	created, err := s.Publish(context.Background(), workshop.Request{
		Legacy:  true,
		Content: workshop.ContentSpec{ContentPath: file, Title: "Test", Description: "d", Tags: []string{"Tag1"}},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(file, []byte("version two"), 0o644))
	em.ResetCalls()

	res, err := s.Publish(context.Background(), workshop.Request{
		ItemID:  created.ItemID,
		Legacy:  true,
		Content: workshop.ContentSpec{ContentPath: file, Tags: []string{"New", "Tag1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ItemID, res.ItemID)
	assert.False(t, res.Created)

	item, err := em.Repository().GetItem(context.Background(), created.ItemID)
	require.NoError(t, err)
	assert.Equal(t, []string{"New", "Tag1"}, item.Tags)
	assert.Equal(t, "Test", item.Title, "title is kept on update")
	assert.Equal(t, 2, item.Revision)
	assert.EqualValues(t, len("version two"), item.FileSize)

	assert.Equal(t, 1, em.CallCount(emulator.CallUpdateFile))
	assert.Equal(t, 0, em.CallCount(emulator.CallUpdatePreviewFile), "no preview staged")
	assert.Equal(t, 1, em.CallCount(emulator.CallUpdateTags))
	assert.Equal(t, 1, em.CallCount(emulator.CallCommitUpdate))
	assert.Equal(t, 0, em.CallCount(emulator.CallPublishWorkshopFile))
	assert.Empty(t, s.Stager().List())
}

func TestLegacyValidationMakesNoCalls(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "demo.pbo", "x")

	tests := []struct {
		name  string
		req   workshop.Request
		kind  workshop.Kind
		field string
	}{
		{
			name:  "missing title",
			req:   workshop.Request{Legacy: true, Content: workshop.ContentSpec{ContentPath: file, Description: "d"}},
			kind:  workshop.KindMissingField,
			field: "title",
		},
		{
			name:  "missing description",
			req:   workshop.Request{Legacy: true, Content: workshop.ContentSpec{ContentPath: file, Title: "t"}},
			kind:  workshop.KindMissingField,
			field: "description",
		},
		{
			name: "missing file",
			req:  workshop.Request{Legacy: true, Content: workshop.ContentSpec{ContentPath: filepath.Join(dir, "nope.pbo"), Title: "t", Description: "d"}},
			kind: workshop.KindNotFound,
		},
		{
			name: "directory instead of file",
			req:  workshop.Request{ItemID: 9, Legacy: true, Content: workshop.ContentSpec{ContentPath: dir}},
			kind: workshop.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := newEmulator(t)
			s := openSession(t, em, testApp)
			em.ResetCalls()

			_, err := s.Publish(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, workshop.KindOf(err))

			var we *workshop.Error
			require.True(t, errors.As(err, &we))
			assert.Equal(t, tt.field, we.Field)
			assert.Empty(t, em.Calls())
		})
	}
}

func TestLegacyUpdateSkipsTitleCheck(t *testing.T) {
	em := newEmulator(t)
	s := openSession(t, em, testApp)
	id := seedItem(t, em, testApp)

	_, err := s.Publish(context.Background(), workshop.Request{
		ItemID:  id,
		Legacy:  true,
		Content: workshop.ContentSpec{ContentPath: writeFile(t, t.TempDir(), "demo.pbo", "x")},
	})
	require.NoError(t, err)
}

func TestLegacyFailuresCleanUp(t *testing.T) {
	tests := []struct {
		name      string
		call      emulator.Call
		fault     emulator.Fault
		kind      workshop.Kind
		code      workshop.Result
		ioFailure bool
	}{
		{"publish result", emulator.CallPublishWorkshopFile, emulator.Fault{Result: workshop.ResultAccessDenied}, workshop.KindOperationFailed, workshop.ResultAccessDenied, false},
		{"publish io failure", emulator.CallPublishWorkshopFile, emulator.Fault{IOFailure: true}, workshop.KindOperationFailed, workshop.ResultFail, true},
		{"write rejected", emulator.CallFileWriteAsync, emulator.Fault{Reject: true}, workshop.KindRemoteCallRejected, workshop.ResultNone, false},
		{"publish rejected", emulator.CallPublishWorkshopFile, emulator.Fault{Reject: true}, workshop.KindRemoteCallRejected, workshop.ResultNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := newEmulator(t, emulator.WithFault(tt.call, tt.fault))
			rec := &stateRecorder{}
			s := openSession(t, em, testApp, workshop.WithHooks(rec.hooks()))

			_, err := s.Publish(context.Background(), workshop.Request{
				Legacy: true,
				Content: workshop.ContentSpec{
					ContentPath: writeFile(t, t.TempDir(), "demo.pbo", "x"),
					Title:       "Test",
					Description: "d",
				},
			})
			require.Error(t, err)
			assert.Equal(t, tt.kind, workshop.KindOf(err))

			var we *workshop.Error
			require.True(t, errors.As(err, &we))
			assert.Equal(t, tt.code, we.Code)
			assert.Equal(t, tt.ioFailure, we.IOFailure)

			assert.Empty(t, s.Stager().List(), "staging files are purged after a failure")
			states := rec.get()
			require.GreaterOrEqual(t, len(states), 2)
			assert.Equal(t, []workshop.State{workshop.StateFailed, workshop.StateCleanedUp}, states[len(states)-2:])
		})
	}
}

func TestLegacyTimeout(t *testing.T) {
	em := newEmulator(t, emulator.WithFault(emulator.CallPublishWorkshopFile, emulator.Fault{Drop: true}))
	s := openSession(t, em, testApp, workshop.WithOperationTimeout(50*time.Millisecond), workshop.WithDrainTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := s.Publish(context.Background(), workshop.Request{
		Legacy: true,
		Content: workshop.ContentSpec{
			ContentPath: writeFile(t, t.TempDir(), "demo.pbo", "x"),
			Title:       "Test",
			Description: "d",
		},
	})
	assert.ErrorIs(t, err, workshop.ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 0, s.Correlator().Pending())
	assert.Empty(t, s.Stager().List())
}

func TestTimedOutStagingWriteIsPurgedOnClose(t *testing.T) {
	em := newEmulator(t, emulator.WithLatency(200*time.Millisecond))

	_, err := workshop.Upload(context.Background(), em, testApp, workshop.Request{
		Legacy: true,
		Content: workshop.ContentSpec{
			ContentPath: writeFile(t, t.TempDir(), "demo.pbo", "x"),
			Title:       "Test",
			Description: "d",
		},
	}, sessionOptions(workshop.WithOperationTimeout(20*time.Millisecond))...)
	require.ErrorIs(t, err, workshop.ErrTimeout)
	var we *workshop.Error
	require.ErrorAs(t, err, &we)
	assert.Equal(t, workshop.KindTimeout, we.Kind)

	objs, err := em.Store().List(context.Background(), emulator.RemotePrefix(testApp, "tester"))
	require.NoError(t, err)
	assert.Empty(t, objs, "no staged file survives the session")
	assert.Equal(t, 1, em.CallCount(emulator.CallShutdown))
}

func TestLegacyContextCancelled(t *testing.T) {
	em := newEmulator(t, emulator.WithFault(emulator.CallPublishWorkshopFile, emulator.Fault{Drop: true}))
	s := openSession(t, em, testApp, workshop.WithOperationTimeout(0), workshop.WithDrainTimeout(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := s.Publish(ctx, workshop.Request{
		Legacy: true,
		Content: workshop.ContentSpec{
			ContentPath: writeFile(t, t.TempDir(), "demo.pbo", "x"),
			Title:       "Test",
			Description: "d",
		},
	})
	assert.ErrorIs(t, err, workshop.ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLegacyTagUpdateRejected(t *testing.T) {
	em := newEmulator(t, emulator.WithFault(emulator.CallUpdateTags, emulator.Fault{Reject: true}))
	s := openSession(t, em, testApp)
	id := seedItem(t, em, testApp, "Tag1")

	_, err := s.Publish(context.Background(), workshop.Request{
		ItemID:  id,
		Legacy:  true,
		Content: workshop.ContentSpec{ContentPath: writeFile(t, t.TempDir(), "demo.pbo", "x")},
	})
	assert.ErrorIs(t, err, workshop.ErrRemoteCallRejected)
	assert.ErrorIs(t, err, workshop.ErrTagUpdateFailed)
	assert.Equal(t, 0, em.CallCount(emulator.CallCommitUpdate))
}

func TestBundleRequiresExistingItem(t *testing.T) {
	em := newEmulator(t)
	s := openSession(t, em, testApp)
	em.ResetCalls()

	_, err := s.Publish(context.Background(), workshop.Request{
		Content: workshop.ContentSpec{ContentPath: t.TempDir()},
	})
	assert.ErrorIs(t, err, workshop.ErrUnsupportedOperation)
	assert.Empty(t, em.Calls())
}

func TestBundleMissingDirectory(t *testing.T) {
	em := newEmulator(t)
	s := openSession(t, em, testApp)
	id := seedItem(t, em, testApp)
	em.ResetCalls()

	_, err := s.Publish(context.Background(), workshop.Request{
		ItemID:  id,
		Content: workshop.ContentSpec{ContentPath: filepath.Join(t.TempDir(), "missing")},
	})
	assert.ErrorIs(t, err, workshop.ErrNotFound)
	assert.Equal(t, 0, em.CallCount(emulator.CallStartItemUpdate))
	assert.Empty(t, em.Calls())
}

func TestBundleGuard(t *testing.T) {
	t.Run("scenario of flight sim is refused", func(t *testing.T) {
		em := newEmulator(t)
		s := openSession(t, em, workshop.AppFlightSim)
		id := seedItem(t, em, workshop.AppFlightSim, "Scenario", "Multiplayer")
		em.ResetCalls()

		_, err := s.Publish(context.Background(), workshop.Request{
			ItemID:  id,
			Content: workshop.ContentSpec{ContentPath: t.TempDir()},
		})
		assert.ErrorIs(t, err, workshop.ErrIncompatibleContentType)
		assert.Equal(t, 0, em.CallCount(emulator.CallStartItemUpdate))
		assert.Equal(t, 0, em.CallCount(emulator.CallSetItemContent))
		assert.Equal(t, 0, em.CallCount(emulator.CallSubmitItemUpdate))
	})

	t.Run("other apps are not guarded", func(t *testing.T) {
		em := newEmulator(t)
		s := openSession(t, em, testApp)
		id := seedItem(t, em, testApp, "Scenario")
		dir := t.TempDir()
		writeFile(t, dir, "mod.cpp", "name")

		_, err := s.Publish(context.Background(), workshop.Request{
			ItemID:  id,
			Content: workshop.ContentSpec{ContentPath: dir},
		})
		assert.NoError(t, err)
	})

	t.Run("guard can be disabled", func(t *testing.T) {
		em := newEmulator(t)
		s := openSession(t, em, workshop.AppFlightSim, workshop.WithGuard(workshop.NoGuard))
		id := seedItem(t, em, workshop.AppFlightSim, "Scenario")

		_, err := s.Publish(context.Background(), workshop.Request{
			ItemID:  id,
			Content: workshop.ContentSpec{ContentPath: t.TempDir()},
		})
		assert.NoError(t, err)
	})
}

func TestBundlePublish(t *testing.T) {
	em := newEmulator(t)
	rec := &stateRecorder{}
	s := openSession(t, em, testApp, workshop.WithHooks(rec.hooks()))
	id := seedItem(t, em, testApp, "Tag1")

	dir := t.TempDir()
	writeFile(t, dir, "mod.cpp", "name = \"demo\";")
	writeFile(t, dir, "addons/demo.pbo", "pbo bytes")

	res, err := s.Publish(context.Background(), workshop.Request{
		ItemID:  id,
		Content: workshop.ContentSpec{ContentPath: dir, ChangeNotes: "second release"},
	})
	require.NoError(t, err)
	assert.Equal(t, id, res.ItemID)
	assert.False(t, res.Created)
	assert.Equal(t, workshop.VariantBundle, res.Variant)

	item, err := em.Repository().GetItem(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Revision)
	assert.Equal(t, "second release", item.ChangeNotes)
	assert.Equal(t, emulator.BundlePrefix(testApp, id, 2), item.ContentKey)
	assert.EqualValues(t, len("name = \"demo\";")+len("pbo bytes"), item.FileSize)

	objs, err := em.Store().List(context.Background(), item.ContentKey)
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	assert.Equal(t, 1, em.CallCount(emulator.CallReleaseItemUpdate))
	assert.Equal(t, []workshop.State{
		workshop.StateStaging,
		workshop.StateUpdateSubmitted,
		workshop.StateAwaitingCompletion,
		workshop.StateCommitted,
		workshop.StateCleanedUp,
	}, rec.get())
}

func TestBundleFailures(t *testing.T) {
	tests := []struct {
		name  string
		call  emulator.Call
		fault emulator.Fault
		is    error
	}{
		{"content assignment", emulator.CallSetItemContent, emulator.Fault{Reject: true}, workshop.ErrContentAssignmentFailed},
		{"session not started", emulator.CallStartItemUpdate, emulator.Fault{Reject: true}, workshop.ErrRemoteUpdateFailed},
		{"submit result", emulator.CallSubmitItemUpdate, emulator.Fault{Result: workshop.ResultLimitExceeded}, workshop.ErrOperationFailed},
		{"submit io failure", emulator.CallSubmitItemUpdate, emulator.Fault{IOFailure: true}, workshop.ErrOperationFailed},
		{"details lookup", emulator.CallSendQuery, emulator.Fault{Result: workshop.ResultBusy}, workshop.ErrOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := newEmulator(t, emulator.WithFault(tt.call, tt.fault))
			rec := &stateRecorder{}
			s := openSession(t, em, testApp, workshop.WithHooks(rec.hooks()))
			id := seedItem(t, em, testApp)

			_, err := s.Publish(context.Background(), workshop.Request{
				ItemID:  id,
				Content: workshop.ContentSpec{ContentPath: t.TempDir()},
			})
			assert.ErrorIs(t, err, tt.is)

			item, gerr := em.Repository().GetItem(context.Background(), id)
			require.NoError(t, gerr)
			assert.Equal(t, 1, item.Revision, "failed runs leave the item untouched")

			states := rec.get()
			require.NotEmpty(t, states)
			assert.Equal(t, workshop.StateCleanedUp, states[len(states)-1])
			assert.Contains(t, states, workshop.StateFailed)
		})
	}
}

func TestPublishHooks(t *testing.T) {
	em := newEmulator(t)
	var staged []workshop.StagingRecord
	var published []workshop.ItemID
	var failures []string
	hooks := &workshop.Hooks{
		BeforePublish: []workshop.BeforePublishHook{
			func(_ *workshop.HookContext, req *workshop.Request) error {
				req.Content.Tags = append(req.Content.Tags, "Hooked")
				return nil
			},
		},
		AfterStage: []workshop.AfterStageHook{
			func(_ *workshop.HookContext, rec workshop.StagingRecord) error {
				staged = append(staged, rec)
				return nil
			},
		},
		AfterPublish: []workshop.AfterPublishHook{
			func(_ *workshop.HookContext, res *workshop.PublishResult) error {
				published = append(published, res.ItemID)
				return nil
			},
		},
		OnError: []workshop.ErrorHook{
			func(_ *workshop.HookContext, op string, err error) {
				failures = append(failures, op)
			},
		},
	}
	s := openSession(t, em, testApp, workshop.WithHooks(hooks))

	res, err := s.Publish(context.Background(), workshop.Request{
		Legacy: true,
		Content: workshop.ContentSpec{
			ContentPath: writeFile(t, t.TempDir(), "demo.pbo", "x"),
			Title:       "Test",
			Description: "d",
		},
	})
	require.NoError(t, err)
	assert.Len(t, staged, 1)
	assert.Equal(t, []workshop.ItemID{res.ItemID}, published)

	item, err := em.Repository().GetItem(context.Background(), res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hooked"}, item.Tags)

	_, err = s.Publish(context.Background(), workshop.Request{})
	require.Error(t, err)
	assert.Equal(t, []string{"publish"}, failures)
}

func TestUploadBracketsSession(t *testing.T) {
	em := newEmulator(t)

	res, err := workshop.Upload(context.Background(), em, testApp, workshop.Request{
		Legacy: true,
		Content: workshop.ContentSpec{
			ContentPath: writeFile(t, t.TempDir(), "demo.pbo", "x"),
			Title:       "Test",
			Description: "d",
		},
	}, sessionOptions(workshop.WithInlinePump())...)
	require.NoError(t, err)
	assert.NotZero(t, res.ItemID)
	assert.Equal(t, 1, em.CallCount(emulator.CallInit))
	assert.Equal(t, 1, em.CallCount(emulator.CallShutdown))

	em.ResetCalls()
	_, err = workshop.Upload(context.Background(), em, testApp, workshop.Request{}, sessionOptions()...)
	assert.ErrorIs(t, err, workshop.ErrUnsupportedOperation)
	assert.Equal(t, 1, em.CallCount(emulator.CallInit))
	assert.Equal(t, 1, em.CallCount(emulator.CallShutdown), "shutdown runs on the failure path too")
}

func TestOpenFailsWhenPlatformUnavailable(t *testing.T) {
	em := newEmulator(t, emulator.WithFault(emulator.CallInit, emulator.Fault{Reject: true}))

	_, err := workshop.Open(context.Background(), em, testApp, sessionOptions()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not initialize platform for app 4000")
	assert.Equal(t, 0, em.CallCount(emulator.CallShutdown))
}
