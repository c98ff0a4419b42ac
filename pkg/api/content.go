package api

import (
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/router"
	"github.com/naughtyden-us/naughty-den/pkg/api/utils"
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/content"
	"github.com/naughtyden-us/naughty-den/pkg/metrics"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/viewstate"
)

var errBadID = apperr.Newf(apperr.ValidationRequiredField, "Validation failed").
	WithDetails(map[string]any{"id": "Must be a number"})

// mirror applies a to the caller's view session, if it has one.
func (h *Handlers) mirror(ctx *fasthttp.RequestCtx, a viewstate.Action) {
	if h.d.Sessions == nil {
		return
	}
	if s, ok := h.d.Sessions.Lookup(utils.SessionID(ctx)); ok {
		s.Dispatch(a)
	}
}

// displayName is the caller's profile name, or "" without a signed-in session.
func (h *Handlers) displayName(ctx *fasthttp.RequestCtx) string {
	if h.d.Sessions == nil {
		return ""
	}
	s, ok := h.d.Sessions.Lookup(utils.SessionID(ctx))
	if !ok {
		return ""
	}
	st := s.Snapshot()
	if st.Profile == nil {
		return ""
	}
	return st.Profile.DisplayName
}

func (h *Handlers) ListCreators(ctx *fasthttp.RequestCtx) {
	router.WriteData(ctx, fasthttp.StatusOK, h.d.Catalog.Creators())
}

func (h *Handlers) GetCreator(ctx *fasthttp.RequestCtx) {
	id, ok := utils.GetPathParamInt(ctx, "id")
	if !ok {
		router.WriteError(ctx, errBadID)
		return
	}
	c, err := h.d.Catalog.Creator(id)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, c)
}

func (h *Handlers) LikeCreator(ctx *fasthttp.RequestCtx) {
	id, ok := utils.GetPathParamInt(ctx, "id")
	if !ok {
		router.WriteError(ctx, errBadID)
		return
	}
	c, err := h.d.Catalog.LikeCreator(id)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	metrics.Likes.WithLabelValues("creator").Inc()
	h.mirror(ctx, viewstate.LikeCreator{ID: id})
	router.WriteData(ctx, fasthttp.StatusOK, c)
}

type postsPage struct {
	Posts      []models.Post             `json:"posts"`
	Pagination models.PaginationResponse `json:"pagination"`
}

func (h *Handlers) ListPosts(ctx *fasthttp.RequestCtx) {
	posts, page := h.d.Catalog.Posts(utils.ParsePageRequest(ctx))
	router.WriteData(ctx, fasthttp.StatusOK, postsPage{Posts: posts, Pagination: page})
}

func (h *Handlers) GetPost(ctx *fasthttp.RequestCtx) {
	id, ok := utils.GetPathParamInt(ctx, "id")
	if !ok {
		router.WriteError(ctx, errBadID)
		return
	}
	p, err := h.d.Catalog.Post(id)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, p)
}

func (h *Handlers) CreatePost(ctx *fasthttp.RequestCtx) {
	var in content.NewPost
	if err := router.DecodeBody(ctx, &in); err != nil {
		router.WriteError(ctx, err)
		return
	}
	if in.CreatorName == "" {
		in.CreatorName = h.displayName(ctx)
	}
	p, err := h.d.Catalog.CreatePost(ctx, in)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	h.mirror(ctx, viewstate.AddPost{Post: p})
	router.WriteData(ctx, fasthttp.StatusCreated, p)
}

func (h *Handlers) LikePost(ctx *fasthttp.RequestCtx) {
	id, ok := utils.GetPathParamInt(ctx, "id")
	if !ok {
		router.WriteError(ctx, errBadID)
		return
	}
	p, err := h.d.Catalog.LikePost(id)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	metrics.Likes.WithLabelValues("post").Inc()
	h.mirror(ctx, viewstate.LikePost{ID: id})
	router.WriteData(ctx, fasthttp.StatusOK, p)
}

type commentBody struct {
	Text string `json:"text"`
	User string `json:"user"`
}

func (h *Handlers) AddComment(ctx *fasthttp.RequestCtx) {
	id, ok := utils.GetPathParamInt(ctx, "id")
	if !ok {
		router.WriteError(ctx, errBadID)
		return
	}
	var body commentBody
	if err := router.DecodeBody(ctx, &body); err != nil {
		router.WriteError(ctx, err)
		return
	}
	if body.User == "" {
		body.User = h.displayName(ctx)
	}
	c, err := h.d.Catalog.AddComment(ctx, id, body.User, body.Text)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	h.mirror(ctx, viewstate.AddComment{PostID: id, Comment: c})
	router.WriteData(ctx, fasthttp.StatusCreated, c)
}

func (h *Handlers) LikeComment(ctx *fasthttp.RequestCtx) {
	id, ok := utils.GetPathParamInt(ctx, "id")
	if !ok {
		router.WriteError(ctx, errBadID)
		return
	}
	commentID := utils.GetPathParam(ctx, "commentId")
	c, err := h.d.Catalog.LikeComment(id, commentID)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	metrics.Likes.WithLabelValues("comment").Inc()
	h.mirror(ctx, viewstate.LikeComment{PostID: id, CommentID: commentID})
	router.WriteData(ctx, fasthttp.StatusOK, c)
}
