package content

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/moderation"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
	"github.com/naughtyden-us/naughty-den/pkg/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Catalog holds creators and posts in memory. Like counters are not persisted.
type Catalog struct {
	mu       sync.RWMutex
	creators []models.Creator
	posts    []models.Post // newest first
	nextPost int
}

// NewCatalog returns a catalog holding the given seed data.
func NewCatalog(creators []models.Creator, posts []models.Post) *Catalog {
	c := &Catalog{
		creators: append([]models.Creator(nil), creators...),
		nextPost: 1,
	}
	for _, p := range posts {
		c.posts = append(c.posts, p.Clone())
		if p.ID >= c.nextPost {
			c.nextPost = p.ID + 1
		}
	}
	return c
}

// NewSeeded returns a catalog with the default listing and live post.
func NewSeeded() *Catalog {
	return NewCatalog(SeedCreators(), SeedPosts(timeutil.Now().UTC()))
}

func (c *Catalog) Creators() []models.Creator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Creator(nil), c.creators...)
}

func (c *Catalog) Creator(id int) (models.Creator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cr := range c.creators {
		if cr.ID == id {
			return cr, nil
		}
	}
	return models.Creator{}, apperr.New(apperr.ContentNotFound)
}

// LikeCreator increments only the matching creator's counter.
func (c *Catalog) LikeCreator(id int) (models.Creator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.creators {
		if c.creators[i].ID == id {
			c.creators[i].Likes++
			return c.creators[i], nil
		}
	}
	return models.Creator{}, apperr.New(apperr.ContentNotFound)
}

// Posts returns one page of public posts, newest first.
func (c *Catalog) Posts(req models.PageRequest) ([]models.Post, models.PaginationResponse) {
	req = req.Normalize(defaultPageSize, maxPageSize)
	c.mu.RLock()
	defer c.mu.RUnlock()

	visible := make([]models.Post, 0, len(c.posts))
	for _, p := range c.posts {
		if p.IsPublic {
			visible = append(visible, p)
		}
	}
	total := len(visible)
	start := (req.Page - 1) * req.Limit
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}
	out := make([]models.Post, 0, end-start)
	for _, p := range visible[start:end] {
		out = append(out, p.Clone())
	}
	return out, models.NewPagination(req, total)
}

func (c *Catalog) Post(id int) (models.Post, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return models.Post{}, apperr.New(apperr.ContentNotFound)
	}
	return c.posts[i].Clone(), nil
}

func (c *Catalog) indexOf(id int) int {
	for i := range c.posts {
		if c.posts[i].ID == id {
			return i
		}
	}
	return -1
}

type NewPost struct {
	CreatorName  string `json:"creatorName"`
	CreatorImage string `json:"creatorImage"`
	Content      string `json:"content"`
	IsPublic     *bool  `json:"isPublic,omitempty"`
}

// CreatePost validates and moderates the body, then prepends the post.
func (c *Catalog) CreatePost(ctx context.Context, in NewPost) (models.Post, error) {
	if err := ctx.Err(); err != nil {
		return models.Post{}, err
	}
	if err := validation.PostContent(in.Content).Err(); err != nil {
		return models.Post{}, err
	}
	if d := moderation.ModeratePost(in.Content); !d.Approved {
		logger.Info("post_rejected", "creator", in.CreatorName, "reasons", d.Reasons)
		return models.Post{}, apperr.New(apperr.ContentModerationFailed).WithDetails(map[string]any{"reasons": d.Reasons})
	}

	now := timeutil.Now().UTC()
	public := true
	if in.IsPublic != nil {
		public = *in.IsPublic
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p := models.Post{
		ID:           c.nextPost,
		CreatorName:  in.CreatorName,
		CreatorImage: in.CreatorImage,
		Content:      validation.SanitizeInput(in.Content),
		Comments:     []models.Comment{},
		CreatedAt:    now,
		UpdatedAt:    now,
		IsPublic:     public,
	}
	c.nextPost++
	c.posts = append([]models.Post{p}, c.posts...)
	return p.Clone(), nil
}

func (c *Catalog) LikePost(id int) (models.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return models.Post{}, apperr.New(apperr.ContentNotFound)
	}
	c.posts[i].Likes++
	return c.posts[i].Clone(), nil
}

// AddComment appends a validated, moderated comment to the post.
func (c *Catalog) AddComment(ctx context.Context, postID int, user, text string) (models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return models.Comment{}, err
	}
	if err := validation.Comment(text).Err(); err != nil {
		return models.Comment{}, err
	}
	if d := moderation.ModerateComment(text); !d.Approved {
		return models.Comment{}, apperr.New(apperr.ContentModerationFailed).WithDetails(map[string]any{"reasons": d.Reasons})
	}
	if user == "" {
		user = models.DefaultDisplayName
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(postID)
	if i < 0 {
		return models.Comment{}, apperr.New(apperr.ContentNotFound)
	}
	cm := models.Comment{
		ID:        uuid.NewString(),
		User:      user,
		Text:      validation.SanitizeInput(text),
		CreatedAt: timeutil.Now().UTC(),
	}
	c.posts[i].Comments = append(c.posts[i].Comments, cm)
	c.posts[i].UpdatedAt = cm.CreatedAt
	return cm, nil
}

func (c *Catalog) LikeComment(postID int, commentID string) (models.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(postID)
	if i < 0 {
		return models.Comment{}, apperr.New(apperr.ContentNotFound)
	}
	for j := range c.posts[i].Comments {
		if c.posts[i].Comments[j].ID == commentID {
			c.posts[i].Comments[j].Likes++
			return c.posts[i].Comments[j], nil
		}
	}
	return models.Comment{}, apperr.New(apperr.ContentNotFound)
}
