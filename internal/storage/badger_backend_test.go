package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

func setupTestBadgerBackend(t *testing.T) (*BadgerBackend, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "badger")

	backend := NewBadgerBackend()
	err := backend.Initialize(dbPath, false)
	require.NoError(t, err)

	cleanup := func() {
		backend.Close()
	}

	return backend, cleanup
}

func TestBadgerBackend_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "badger")

		backend := NewBadgerBackend()
		err := backend.Initialize(dbPath, false)

		assert.NoError(t, err)
		assert.NotNil(t, backend.db)
		assert.True(t, backend.initialized)

		backend.Close()
	})

	t.Run("ReadOnly", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "badger")

		// First create the DB
		backend1 := NewBadgerBackend()
		err := backend1.Initialize(dbPath, false)
		require.NoError(t, err)
		backend1.Close()

		// Open in read-only mode
		backend2 := NewBadgerBackend()
		err = backend2.Initialize(dbPath, true)

		assert.NoError(t, err)
		assert.True(t, backend2.initialized)

		backend2.Close()
	})
}

func TestBadgerBackend_AddAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	t.Run("Posts", func(t *testing.T) {
		post := model.Post{
			ID:         "abc",
			Title:      "Scene analysis thread",
			AuthorID:   "u1",
			AuthorName: "cinephile",
			Subreddit:  "TrueFilm",
			CreatedUTC: 1700000000,
		}
		require.NoError(t, backend.AddPosts(ctx, []model.Post{post}))

		got, err := backend.GetPost(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, post, *got)
	})

	t.Run("Comments", func(t *testing.T) {
		comment := model.Comment{
			ID:         "c1",
			PostID:     "abc",
			AuthorID:   "u2",
			AuthorName: "replier",
			Body:       "great breakdown of the tracking shot",
			ParentID:   "abc",
			ParentKind: model.ParentPost,
			CreatedUTC: 1700000100,
		}
		require.NoError(t, backend.AddComments(ctx, []model.Comment{comment}))

		got, err := backend.GetComment(ctx, "c1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, comment, *got)
	})

	t.Run("Users", func(t *testing.T) {
		user := model.User{ID: "u1", Username: "cinephile", CommentKarma: 2500}
		require.NoError(t, backend.AddUsers(ctx, []model.User{user}))

		got, err := backend.GetUser(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user, *got)
	})

	t.Run("NotFound", func(t *testing.T) {
		got, err := backend.GetPost(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestBadgerBackend_Stats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	require.NoError(t, backend.AddPosts(ctx, []model.Post{{ID: "p1"}, {ID: "p2"}}))
	require.NoError(t, backend.AddComments(ctx, []model.Comment{{ID: "c1"}}))
	require.NoError(t, backend.AddUsers(ctx, []model.User{{ID: "u1"}}))

	stats, err := backend.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Posts: 2, Comments: 1, Users: 1}, stats)

	// Upserting an existing post must not inflate the count
	require.NoError(t, backend.AddPosts(ctx, []model.Post{{ID: "p1", Score: 5}}))

	stats, err = backend.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Posts)
}

func TestBadgerBackend_Search(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	require.NoError(t, backend.AddPosts(ctx, []model.Post{
		{ID: "p1", Title: "Tarkovsky and the long take", AuthorName: "alice", SelfText: "Mirror uses..."},
		{ID: "p2", Title: "Weekly watch thread", AuthorName: "bot"},
	}))
	require.NoError(t, backend.AddComments(ctx, []model.Comment{
		{ID: "c1", AuthorName: "bob", Body: "The long take in Stalker is even better"},
		{ID: "c2", AuthorName: "carol", Body: "off topic entirely"},
	}))

	t.Run("MatchesPostsAndComments", func(t *testing.T) {
		results, err := backend.Search(ctx, "long take", 10)
		require.NoError(t, err)
		require.Len(t, results, 2)

		ids := []string{results[0].ID, results[1].ID}
		assert.Contains(t, ids, "p1")
		assert.Contains(t, ids, "c1")
	})

	t.Run("RanksMoreMatchesHigher", func(t *testing.T) {
		results, err := backend.Search(ctx, "tarkovsky long take", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "p1", results[0].ID)
		assert.Equal(t, KindPost, results[0].Kind)
	})

	t.Run("Limit", func(t *testing.T) {
		results, err := backend.Search(ctx, "long take", 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("NoMatch", func(t *testing.T) {
		results, err := backend.Search(ctx, "nosuchword", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		results, err := backend.Search(ctx, "", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestBadgerBackend_IndexSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "badger")

	backend := NewBadgerBackend()
	require.NoError(t, backend.Initialize(dbPath, false))
	require.NoError(t, backend.AddPosts(ctx, []model.Post{
		{ID: "p1", Title: "Ozu framing", AuthorName: "alice"},
	}))
	require.NoError(t, backend.Close())

	// Reopen: counts and FTS index are rebuilt from disk
	reopened := NewBadgerBackend()
	require.NoError(t, reopened.Initialize(dbPath, false))
	defer reopened.Close()

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Posts)

	results, err := reopened.Search(ctx, "ozu", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)
}
