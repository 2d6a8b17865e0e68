package services

import (
	"context"
	"testing"
	"time"

	"sitesmith-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionStore_CommitAndList(t *testing.T) {
	db := setupTestDB(t)
	store := NewVersionStore(db)
	ctx := context.Background()
	user := seedUser(t, db, "alice", 0)
	project := seedProject(t, db, user.ID, "")

	empty := ""
	v1, err := store.Commit(ctx, project.ID, "<p>1</p>", VersionDescriptionInitial, &empty)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	v2, err := store.Commit(ctx, project.ID, "<p>2</p>", VersionDescriptionChanges, &v1.ID)
	require.NoError(t, err)

	var reloaded models.Project
	require.NoError(t, db.First(&reloaded, "id = ?", project.ID).Error)
	assert.Equal(t, v2.ID, reloaded.CurrentVersionIndex)
	assert.Equal(t, "<p>2</p>", *reloaded.CurrentCode)

	versions, err := store.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, v1.ID, versions[0].ID)
	assert.Equal(t, "<p>1</p>", versions[0].Code, "earlier versions stay untouched")
	assert.Equal(t, v2.ID, versions[1].ID)
}

func TestVersionStore_CommitRejectsStaleHead(t *testing.T) {
	db := setupTestDB(t)
	store := NewVersionStore(db)
	ctx := context.Background()
	user := seedUser(t, db, "alice", 0)
	project := seedProject(t, db, user.ID, "<p>base</p>")

	stale := "some-other-version"
	_, err := store.Commit(ctx, project.ID, "<p>new</p>", VersionDescriptionChanges, &stale)
	assert.ErrorIs(t, err, ErrConflict)

	versions, err := store.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1, "the appended version must roll back with the head")

	var reloaded models.Project
	require.NoError(t, db.First(&reloaded, "id = ?", project.ID).Error)
	assert.Equal(t, "<p>base</p>", *reloaded.CurrentCode)
}

func TestVersionStore_SetHeadAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewVersionStore(db)
	ctx := context.Background()
	user := seedUser(t, db, "alice", 0)
	project := seedProject(t, db, user.ID, "<p>base</p>")
	other := seedProject(t, db, user.ID, "<p>other</p>")

	t.Run("Missing project", func(t *testing.T) {
		err := store.SetHead(ctx, "missing", "", "<p/>", nil)
		assert.ErrorIs(t, err, ErrProjectNotFound)
	})

	t.Run("Manual head", func(t *testing.T) {
		require.NoError(t, store.SetHead(ctx, project.ID, "", "<p>hand</p>", nil))
		var reloaded models.Project
		require.NoError(t, db.First(&reloaded, "id = ?", project.ID).Error)
		assert.Equal(t, "", reloaded.CurrentVersionIndex)
		assert.Equal(t, "<p>hand</p>", *reloaded.CurrentCode)
	})

	t.Run("Get scoped to project", func(t *testing.T) {
		_, err := store.Get(ctx, project.ID, other.CurrentVersionIndex)
		assert.ErrorIs(t, err, ErrVersionNotFound)

		v, err := store.Get(ctx, other.ID, other.CurrentVersionIndex)
		require.NoError(t, err)
		assert.Equal(t, "<p>other</p>", v.Code)
	})
}

func TestConversationLog_Order(t *testing.T) {
	db := setupTestDB(t)
	log := NewConversationLog(db)
	ctx := context.Background()
	user := seedUser(t, db, "alice", 0)
	project := seedProject(t, db, user.ID, "")

	_, err := log.Append(ctx, project.ID, models.ConversationRoleUser, "make it blue")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = log.Append(ctx, project.ID, models.ConversationRoleAssistant, enhancedMessage("a blue site"))
	require.NoError(t, err)

	entries, err := log.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ConversationRoleUser, entries[0].Role)
	assert.Equal(t, `I've enhanced your prompt to: "a blue site"`, entries[1].Content)
}

func TestConversationLog_OrderWithTiedTimestamps(t *testing.T) {
	db := setupTestDB(t)
	log := NewConversationLog(db)
	ctx := context.Background()
	user := seedUser(t, db, "alice", 0)
	project := seedProject(t, db, user.ID, "")

	// Millisecond columns, as on MySQL, make back-to-back turns collide.
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := []string{"make it blue", enhancedMessage("a blue site"), MsgMakingChanges, MsgChangesMade}
	for _, content := range want {
		require.NoError(t, db.Create(&models.ConversationEntry{
			ProjectID: project.ID,
			Role:      models.ConversationRoleAssistant,
			Content:   content,
			Timestamp: at,
		}).Error)
	}

	entries, err := log.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Content)
	}
	assert.Equal(t, want, got)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Version{
			ProjectID:   project.ID,
			Code:        string(rune('a' + i)),
			Description: VersionDescriptionChanges,
			Timestamp:   at,
		}).Error)
	}
	versions, err := NewVersionStore(db).ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{versions[0].Code, versions[1].Code, versions[2].Code})
}
