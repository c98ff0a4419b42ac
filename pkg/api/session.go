package api

import (
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/router"
	"github.com/naughtyden-us/naughty-den/pkg/api/utils"
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/moderation"
	"github.com/naughtyden-us/naughty-den/pkg/validation"
	"github.com/naughtyden-us/naughty-den/pkg/viewstate"
)

var errNoSessions = apperr.Newf(apperr.SystemError, "Sessions are not available")

// session resolves (or starts) the caller's view session and echoes its id.
func (h *Handlers) session(ctx *fasthttp.RequestCtx) (*viewstate.Session, bool) {
	if h.d.Sessions == nil {
		router.WriteError(ctx, errNoSessions)
		return nil, false
	}
	s, id := h.d.Sessions.Get(utils.SessionID(ctx))
	utils.SetSessionID(ctx, id)
	return s, true
}

func (h *Handlers) GetSession(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, s.Snapshot())
}

// SessionAction applies one user-driven action, e.g. {"type":"navigate","page":"creators"}.
func (h *Handlers) SessionAction(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	a, err := viewstate.DecodeAction(ctx.PostBody())
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, s.Dispatch(a))
}

type signInResult struct {
	User  models.User     `json:"user"`
	State viewstate.State `json:"state"`
}

func (h *Handlers) SessionSignIn(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	var c viewstate.Credentials
	if err := router.DecodeBody(ctx, &c); err != nil {
		router.WriteError(ctx, err)
		return
	}
	u, err := s.SignIn(ctx, c)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, signInResult{User: u, State: s.Snapshot()})
}

func (h *Handlers) SessionSignOut(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	if err := s.SignOut(ctx); err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, s.Snapshot())
}

func (h *Handlers) SessionToggleCreator(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	if _, err := s.ToggleCreator(ctx); err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, s.Snapshot())
}

func (h *Handlers) SessionSaveProfile(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	var form validation.ProfileForm
	if err := router.DecodeBody(ctx, &form); err != nil {
		router.WriteError(ctx, err)
		return
	}
	if err := moderateProfile(form); err != nil {
		router.WriteError(ctx, err)
		return
	}
	if _, err := s.SaveProfile(ctx, form); err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, s.Snapshot())
}

// moderateProfile rejects profile text the moderation rules flag.
func moderateProfile(form validation.ProfileForm) error {
	d := moderation.ModerateProfile(moderation.ProfileInput{
		DisplayName: form.DisplayName,
		Bio:         form.Bio,
		Categories:  form.Categories,
	})
	if d.Approved {
		return nil
	}
	return apperr.New(apperr.ContentModerationFailed).WithDetails(map[string]any{"reasons": d.Reasons})
}
