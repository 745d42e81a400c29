// Package repotest holds the behavior every emulator.Repository must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

func newItem(app workshop.AppID, owner, title string) *emulator.Item {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &emulator.Item{
		AppID:       app,
		Owner:       owner,
		Title:       title,
		Description: "description of " + title,
		Tags:        []string{"Scenario", "Multiplayer"},
		Visibility:  workshop.VisibilityPublic,
		FileType:    workshop.FileTypeCommunity,
		FileName:    "kpsteam_demo.pbo",
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Run exercises repo. The repository must start empty.
func Run(t *testing.T, repo emulator.Repository) {
	ctx := context.Background()

	t.Run("ItemLifecycle", func(t *testing.T) {
		item := newItem(workshop.AppFlightSim, "alice", "Test")
		require.NoError(t, repo.CreateItem(ctx, item))
		require.NotZero(t, item.ID)

		got, err := repo.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.Title, got.Title)
		assert.Equal(t, item.Owner, got.Owner)
		assert.Equal(t, item.AppID, got.AppID)
		assert.Equal(t, []string{"Scenario", "Multiplayer"}, got.Tags)
		assert.Equal(t, 1, got.Revision)
		assert.Nil(t, got.DeletedAt)

		got.Revision = 2
		got.Tags = []string{"Tag1"}
		got.ContentKey = "items/107410/1/r2/content/"
		got.Digest = "abc"
		got.FileSize = 42
		require.NoError(t, repo.UpdateItem(ctx, got))

		updated, err := repo.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Revision)
		assert.Equal(t, []string{"Tag1"}, updated.Tags)
		assert.Equal(t, "items/107410/1/r2/content/", updated.ContentKey)
		assert.Equal(t, "abc", updated.Digest)
		assert.Equal(t, int64(42), updated.FileSize)

		require.NoError(t, repo.DeleteItem(ctx, item.ID))
		_, err = repo.GetItem(ctx, item.ID)
		assert.ErrorIs(t, err, emulator.ErrItemNotFound)
		assert.ErrorIs(t, repo.DeleteItem(ctx, item.ID), emulator.ErrItemNotFound)
		assert.ErrorIs(t, repo.UpdateItem(ctx, updated), emulator.ErrItemNotFound)
	})

	t.Run("IDsAreDistinct", func(t *testing.T) {
		a := newItem(1, "carol", "a")
		b := newItem(1, "carol", "b")
		require.NoError(t, repo.CreateItem(ctx, a))
		require.NoError(t, repo.CreateItem(ctx, b))
		assert.NotZero(t, a.ID)
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		_, err := repo.GetItem(ctx, workshop.ItemID(999999))
		assert.ErrorIs(t, err, emulator.ErrItemNotFound)
	})

	t.Run("ListItemsByOwner", func(t *testing.T) {
		const app workshop.AppID = 4000
		var ids []workshop.ItemID
		for i := 0; i < 5; i++ {
			item := newItem(app, "dave", "item")
			require.NoError(t, repo.CreateItem(ctx, item))
			ids = append(ids, item.ID)
		}
		require.NoError(t, repo.CreateItem(ctx, newItem(app, "eve", "other owner")))
		require.NoError(t, repo.CreateItem(ctx, newItem(app+1, "dave", "other app")))
		require.NoError(t, repo.DeleteItem(ctx, ids[4]))

		all, err := repo.ListItemsByOwner(ctx, app, "dave", 0, 50)
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i, item := range all {
			assert.Equal(t, ids[i], item.ID)
		}

		page, err := repo.ListItemsByOwner(ctx, app, "dave", 1, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[1], page[0].ID)
		assert.Equal(t, ids[2], page[1].ID)

		empty, err := repo.ListItemsByOwner(ctx, app, "dave", 10, 50)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}
