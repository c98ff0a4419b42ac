package api

import (
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/router"
	"github.com/naughtyden-us/naughty-den/pkg/api/utils"
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/verification"
)

const signatureHeader = "X-HMAC-SIGNATURE"

var errNoVerifier = apperr.Newf(apperr.SystemError, "Verification is not available")

// StartVerification opens a vendor session for the signed-in caller and
// returns the URL to embed.
func (h *Handlers) StartVerification(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	url, err := s.StartVerification(ctx)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, map[string]string{"url": url})
}

// VerificationWebhook receives the vendor decision and hands it to the
// waiting session.
func (h *Handlers) VerificationWebhook(ctx *fasthttp.RequestCtx) {
	if h.d.Verifier == nil {
		router.WriteError(ctx, errNoVerifier)
		return
	}
	body := ctx.PostBody()
	if err := verification.VerifySignature(body, utils.GetHeader(ctx, signatureHeader), h.d.VerifySecret); err != nil {
		logger.Warn("verification_webhook_rejected", "reason", "signature", "error", err, "remote", ctx.RemoteAddr().String())
		router.WriteError(ctx, apperr.Wrap(apperr.AuthRequired, err))
		return
	}
	d, err := verification.ParseDecision(body)
	if err != nil {
		router.WriteError(ctx, apperr.Newf(apperr.ValidationRequiredField, "Validation failed").
			WithDetails(map[string]any{"body": err.Error()}))
		return
	}
	if err := h.d.Verifier.Complete(d.SessionID, nil, d.Code, d.Person); err != nil {
		if errors.Is(err, verification.ErrUnknownSession) {
			router.WriteError(ctx, apperr.Wrap(apperr.ContentNotFound, err))
			return
		}
		router.WriteError(ctx, err)
		return
	}
	router.WriteData(ctx, fasthttp.StatusOK, map[string]any{
		"sessionId": d.SessionID,
		"result":    verification.MapFinish(nil, d.Code),
	})
}
