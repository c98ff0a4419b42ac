package api

import (
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/router"
	"github.com/naughtyden-us/naughty-den/pkg/api/utils"
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/metrics"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/moderation"
)

func (h *Handlers) SubmitReport(ctx *fasthttp.RequestCtx) {
	var in moderation.ReportInput
	if err := router.DecodeBody(ctx, &in); err != nil {
		router.WriteError(ctx, err)
		return
	}
	if in.ReporterID == "" && h.d.Sessions != nil {
		if s, ok := h.d.Sessions.Lookup(utils.SessionID(ctx)); ok {
			if st := s.Snapshot(); st.Profile != nil {
				in.ReporterID = st.Profile.UID
			}
		}
	}
	rep, err := h.d.Reports.Submit(ctx, in)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	metrics.Reports.Inc()
	router.WriteData(ctx, fasthttp.StatusCreated, rep)
}

func (h *Handlers) GetReport(ctx *fasthttp.RequestCtx) {
	rep, err := h.d.Reports.Get(ctx, utils.GetPathParam(ctx, "id"))
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, rep)
}

type resolveBody struct {
	Status models.ReportStatus `json:"status"`
}

func (h *Handlers) ResolveReport(ctx *fasthttp.RequestCtx) {
	var body resolveBody
	if err := router.DecodeBody(ctx, &body); err != nil {
		router.WriteError(ctx, err)
		return
	}
	if !body.Status.Valid() {
		router.WriteError(ctx, apperr.Newf(apperr.ValidationRequiredField, "Validation failed").
			WithDetails(map[string]any{"status": "Status must be pending, reviewed or resolved"}))
		return
	}
	rep, err := h.d.Reports.Resolve(ctx, utils.GetPathParam(ctx, "id"), body.Status)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, rep)
}

func (h *Handlers) ReportStats(ctx *fasthttp.RequestCtx) {
	st, err := h.d.Reports.Stats(ctx)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, st)
}
