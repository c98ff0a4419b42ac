package api

import (
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/router"
	"github.com/naughtyden-us/naughty-den/pkg/api/utils"
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/validation"
	"github.com/naughtyden-us/naughty-den/pkg/viewstate"
)

// owner returns the caller's session when it is signed in as uid.
func (h *Handlers) owner(ctx *fasthttp.RequestCtx, uid string) (*viewstate.Session, error) {
	if h.d.Sessions == nil {
		return nil, errNoSessions
	}
	s, ok := h.d.Sessions.Lookup(utils.SessionID(ctx))
	if !ok {
		return nil, apperr.New(apperr.AuthRequired)
	}
	st := s.Snapshot()
	if !st.IsAuthenticated || st.Profile == nil {
		return nil, apperr.New(apperr.AuthRequired)
	}
	if st.Profile.UID != uid {
		return nil, apperr.New(apperr.StoragePermissionDenied)
	}
	return s, nil
}

func (h *Handlers) GetProfile(ctx *fasthttp.RequestCtx) {
	p, err := h.d.Profiles.Get(ctx, utils.GetPathParam(ctx, "uid"))
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, p)
}

// UpdateProfile saves the profile form through the owner's session so the
// view state follows the stored document.
func (h *Handlers) UpdateProfile(ctx *fasthttp.RequestCtx) {
	s, err := h.owner(ctx, utils.GetPathParam(ctx, "uid"))
	if err != nil {
		router.WriteError(ctx, err)
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
	p, err := s.SaveProfile(ctx, form)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, p)
}

var errNoName = apperr.Newf(apperr.ValidationRequiredField, "Validation failed").
	WithDetails(map[string]any{"name": "File name is required"})

// Upload stores the raw request body as /files/{uid}/{name}.
func (h *Handlers) Upload(ctx *fasthttp.RequestCtx) {
	uid := utils.GetPathParam(ctx, "uid")
	if _, err := h.owner(ctx, uid); err != nil {
		router.WriteError(ctx, err)
		return
	}
	name := utils.GetQuery(ctx, "name")
	if name == "" {
		router.WriteError(ctx, errNoName)
		return
	}
	url, err := h.d.Files.Upload(ctx, uid, name, ctx.PostBody())
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusCreated, map[string]string{"url": url})
}

func (h *Handlers) ServeFile(ctx *fasthttp.RequestCtx) {
	data, contentType, err := h.d.Files.Open(ctx, utils.GetPathParam(ctx, "uid"), utils.GetPathParam(ctx, "name"))
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	ctx.SetContentType(contentType)
	ctx.Response.Header.Set("Cache-Control", "public, max-age=3600")
	ctx.SetBody(data)
}
