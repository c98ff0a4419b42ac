package utils

import (
	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/models"
)

// ParsePageRequest reads page and limit query parameters. Bounds are left
// to the reader that serves the page.
func ParsePageRequest(ctx *fasthttp.RequestCtx) models.PageRequest {
	return models.PageRequest{
		Page:  GetQueryInt(ctx, "page", 1),
		Limit: GetQueryInt(ctx, "limit", 0),
	}
}
