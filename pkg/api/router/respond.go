package router

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Code    string         `json:"code,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(ctx *fasthttp.RequestCtx, data interface{}) error {
	ctx.Response.Header.Set("Content-Type", "application/json")
	return json.NewEncoder(ctx).Encode(data)
}

// WriteData writes a success envelope.
func WriteData(ctx *fasthttp.RequestCtx, status int, data any) {
	ctx.SetStatusCode(status)
	_ = WriteJSON(ctx, Envelope{Success: true, Data: data})
}

// WriteError classifies err and writes the failure envelope with the
// status the error code maps to.
func WriteError(ctx *fasthttp.RequestCtx, err error) {
	e := apperr.Translate(err)
	status := e.Code.HTTPStatus()
	if status >= fasthttp.StatusInternalServerError {
		logger.Error("request_failed", "path", string(ctx.Path()), "code", e.Code, "error", err)
	}
	ctx.SetStatusCode(status)
	_ = WriteJSON(ctx, Envelope{Error: e.Message, Details: e.Details, Code: string(e.Code)})
}

// WriteJSONError writes a failure envelope with a plain message.
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	_ = WriteJSON(ctx, Envelope{Error: message})
}

var errEmptyBody = apperr.Newf(apperr.ValidationRequiredField, "Request body is required")

// DecodeBody unmarshals the JSON request body into v.
func DecodeBody(ctx *fasthttp.RequestCtx, v any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, v); err != nil {
		var syn *json.SyntaxError
		var typ *json.UnmarshalTypeError
		if errors.As(err, &syn) || errors.As(err, &typ) {
			return apperr.Newf(apperr.ValidationRequiredField, "Invalid JSON body").
				WithDetails(map[string]any{"body": err.Error()})
		}
		return apperr.Newf(apperr.ValidationRequiredField, "Invalid JSON body")
	}
	return nil
}
