package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop_web/internal/repository"
	"tabletop_web/internal/storage/storagetest"
)

type chatLine struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

func newRepo(t *testing.T) repository.DocumentRepository {
	t.Helper()
	return repository.NewDocumentRepository(storagetest.NewDB(t))
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	db, err := repo.Create(ctx, "tabletop_room_0")
	require.NoError(t, err)

	want := []chatLine{{ID: 1, Text: "hello"}, {ID: 2, Text: "2d6"}}
	rev, err := db.Put(ctx, "chatLog", want, 0)
	require.NoError(t, err)

	var got []chatLine
	readRev, err := db.Get(ctx, "chatLog", &got)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, rev, readRev)

	want = append(want, chatLine{ID: 3, Text: "bye"})
	next, err := db.Put(ctx, "chatLog", want, rev)
	require.NoError(t, err)
	assert.NotEqual(t, rev, next)

	got = nil
	_, err = db.Get(ctx, "chatLog", &got)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPutWithStaleRevisionConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	db, err := repo.Create(ctx, "master")
	require.NoError(t, err)

	first, err := db.Put(ctx, "map", "castle.png", 0)
	require.NoError(t, err)
	_, err = db.Put(ctx, "map", "forest.png", first)
	require.NoError(t, err)

	_, err = db.Put(ctx, "map", "cave.png", first)
	require.ErrorIs(t, err, repository.ErrConflict)

	// 已存在的 key 不能再以 rev 0 建立
	_, err = db.Put(ctx, "map", "cave.png", 0)
	require.ErrorIs(t, err, repository.ErrConflict)

	var current string
	_, err = db.Get(ctx, "map", &current)
	require.NoError(t, err)
	assert.Equal(t, "forest.png", current)
}

func TestPutMissingKeyWithRevision(t *testing.T) {
	ctx := context.Background()
	db, err := newRepo(t).Create(ctx, "master")
	require.NoError(t, err)

	_, err = db.Put(ctx, "images", []string{}, 4)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDatabaseLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	ok, err := repo.Exists(ctx, "tabletop")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Open(ctx, "tabletop")
	require.ErrorIs(t, err, repository.ErrNotFound)

	db, err := repo.Create(ctx, "tabletop")
	require.NoError(t, err)
	_, err = db.Put(ctx, "images", []string{"a"}, 0)
	require.NoError(t, err)

	_, err = repo.Create(ctx, "tabletop")
	require.ErrorIs(t, err, repository.ErrConflict)

	opened, err := repo.Open(ctx, "tabletop")
	require.NoError(t, err)
	assert.Equal(t, "tabletop", opened.Name())

	require.NoError(t, repo.Destroy(ctx, "tabletop"))
	ok, err = repo.Exists(ctx, "tabletop")
	require.NoError(t, err)
	assert.False(t, ok)

	// 重新建立後舊文件不應殘留
	db, err = repo.Create(ctx, "tabletop")
	require.NoError(t, err)
	_, err = db.Get(ctx, "images", nil)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, repo.Destroy(ctx, "missing"), repository.ErrNotFound)
}

func TestDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	a, err := repo.Create(ctx, "room_a")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "room_b")
	require.NoError(t, err)

	_, err = a.Put(ctx, "roomName", "Tavern", 0)
	require.NoError(t, err)
	_, err = b.Put(ctx, "roomName", "Dungeon", 0)
	require.NoError(t, err)

	require.NoError(t, repo.Destroy(ctx, "room_a"))

	var name string
	_, err = b.Get(ctx, "roomName", &name)
	require.NoError(t, err)
	assert.Equal(t, "Dungeon", name)
}
