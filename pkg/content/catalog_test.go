package content

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/models"
)

func TestSeed(t *testing.T) {
	c := NewSeeded()
	assert.Len(t, c.Creators(), 8)
	posts, page := c.Posts(models.PageRequest{})
	require.Len(t, posts, 1)
	assert.Equal(t, 58, posts[0].Likes)
	assert.Len(t, posts[0].Comments, 2)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasMore)
}

func TestLikeCreatorOnlyTouchesOne(t *testing.T) {
	c := NewSeeded()
	before := c.Creators()
	got, err := c.LikeCreator(3)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)

	after := c.Creators()
	for i := range after {
		if after[i].ID == 3 {
			assert.Equal(t, before[i].Likes+1, after[i].Likes)
			continue
		}
		assert.Equal(t, before[i], after[i])
	}

	_, err = c.LikeCreator(99)
	assert.True(t, errors.Is(err, apperr.New(apperr.ContentNotFound)))
}

func TestConcurrentLikesAllCount(t *testing.T) {
	c := NewSeeded()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.LikePost(1)
		}()
	}
	wg.Wait()
	p, err := c.Post(1)
	require.NoError(t, err)
	assert.Equal(t, 108, p.Likes)
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	c := NewSeeded()

	p, err := c.CreatePost(ctx, NewPost{CreatorName: "Hao Leong", Content: "New series drops <b>tonight</b>"})
	require.NoError(t, err)
	assert.Equal(t, 2, p.ID)
	assert.Equal(t, "New series drops btonight/b", p.Content)

	posts, _ := c.Posts(models.PageRequest{Page: 1, Limit: 1})
	require.Len(t, posts, 1)
	assert.Equal(t, 2, posts[0].ID, "newest first")

	_, err = c.CreatePost(ctx, NewPost{Content: "short"})
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.ValidationRequiredField, appErr.Code)

	_, err = c.CreatePost(ctx, NewPost{Content: "come see my nsfw gallery today"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.ContentModerationFailed, appErr.Code)
}

func TestCommentsAppendAndLike(t *testing.T) {
	ctx := context.Background()
	c := NewSeeded()

	cm, err := c.AddComment(ctx, 1, "", "Gorgeous light")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDisplayName, cm.User)

	p, err := c.Post(1)
	require.NoError(t, err)
	require.Len(t, p.Comments, 3)
	assert.Equal(t, cm.ID, p.Comments[2].ID)

	liked, err := c.LikeComment(1, cm.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)

	_, err = c.LikeComment(1, "missing")
	assert.Error(t, err)
	_, err = c.AddComment(ctx, 42, "x", "hello")
	assert.True(t, errors.Is(err, apperr.New(apperr.ContentNotFound)))
	_, err = c.AddComment(ctx, 1, "x", "  ")
	assert.Error(t, err)
}

func TestPostsAreCopies(t *testing.T) {
	c := NewSeeded()
	posts, _ := c.Posts(models.PageRequest{})
	posts[0].Comments[0].Text = "mutated"
	p, _ := c.Post(1)
	assert.NotEqual(t, "mutated", p.Comments[0].Text)
}
