package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogprojesi/backend/internal/models"
)

func TestBookmarks_Toggle(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice", models.RoleUser)
	bob := f.createUser(t, "bob", models.RoleUser)
	post := f.createPost(t, alice, "Live", true)

	on, err := f.svc.Bookmarks.Toggle(f.ctx, bob, post.ID)
	require.NoError(t, err)
	assert.True(t, on)
	marked, err := f.svc.Bookmarks.IsBookmarked(f.ctx, bob, post.ID)
	require.NoError(t, err)
	assert.True(t, marked)

	n, err := f.svc.Bookmarks.CountForPost(f.ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	on, err = f.svc.Bookmarks.Toggle(f.ctx, bob, post.ID)
	require.NoError(t, err)
	assert.False(t, on)
	marked, err = f.svc.Bookmarks.IsBookmarked(f.ctx, bob, post.ID)
	require.NoError(t, err)
	assert.False(t, marked)

	_, err = f.svc.Bookmarks.Toggle(f.ctx, bob, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	draft := f.createPost(t, alice, "Draft", false)
	_, err = f.svc.Bookmarks.Toggle(f.ctx, bob, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookmarks_PostsSkipsUnpublished(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice", models.RoleUser)
	bob := f.createUser(t, "bob", models.RoleUser)
	first := f.createPost(t, alice, "First", true)
	second := f.createPost(t, alice, "Second", true)
	hidden := f.createPost(t, alice, "Hidden later", true)

	for _, p := range []*models.Post{first, second, hidden} {
		_, err := f.svc.Bookmarks.Toggle(f.ctx, bob, p.ID)
		require.NoError(t, err)
	}
	_, err := f.svc.Posts.TogglePublished(f.ctx, hidden.ID, systemActor, "")
	require.NoError(t, err)

	posts, err := f.svc.Bookmarks.Posts(f.ctx, bob)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.ElementsMatch(t, []uint{first.ID, second.ID}, []uint{posts[0].ID, posts[1].ID})
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "alice", posts[0].Author.Username)

	mine, err := f.svc.Bookmarks.Posts(f.ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestReactions_RemovedWithPostAndUser(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin", models.RoleAdmin)
	alice := f.createUser(t, "alice", models.RoleUser)
	bob := f.createUser(t, "bob", models.RoleUser)
	alicePost := f.createPost(t, alice, "Alice writes", true)
	bobPost := f.createPost(t, bob, "Bob writes", true)

	for _, r := range []struct {
		user *models.User
		post *models.Post
	}{{bob, alicePost}, {alice, bobPost}, {bob, bobPost}} {
		_, err := f.svc.Ratings.Rate(f.ctx, r.user, r.post.ID, 4)
		require.NoError(t, err)
		_, err = f.svc.Bookmarks.Toggle(f.ctx, r.user, r.post.ID)
		require.NoError(t, err)
	}

	count := func(model any) int64 {
		var n int64
		require.NoError(t, f.db.Model(model).Count(&n).Error)
		return n
	}

	require.NoError(t, f.svc.Posts.Delete(f.ctx, bobPost.ID, bob))
	assert.Equal(t, int64(1), count(&models.Rating{}))
	assert.Equal(t, int64(1), count(&models.Bookmark{}))

	require.NoError(t, f.svc.Users.DeleteUser(f.ctx, alice.ID, admin, ""))
	assert.Zero(t, count(&models.Rating{}))
	assert.Zero(t, count(&models.Bookmark{}))
}
