package router

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// Router dispatches on method and path. Patterns are slash separated and
// may hold {name} segments; matched values become ctx user values.
// HEAD falls back to the GET route, and a trailing slash is ignored.
type Router struct {
	byMethod map[string][]pattern
	notFound fasthttp.RequestHandler
}

type pattern struct {
	raw     string
	parts   []string
	params  map[int]string
	handler fasthttp.RequestHandler
}

func New() *Router {
	return &Router{byMethod: make(map[string][]pattern)}
}

// Handle registers h for method and path. Later registrations of the same
// method and path replace earlier ones.
func (r *Router) Handle(method, path string, h fasthttp.RequestHandler) {
	p := compile(path, h)
	list := r.byMethod[method]
	for i := range list {
		if list[i].raw == p.raw {
			list[i] = p
			return
		}
	}
	r.byMethod[method] = append(list, p)
}

func (r *Router) GET(path string, h fasthttp.RequestHandler)     { r.Handle(fasthttp.MethodGet, path, h) }
func (r *Router) POST(path string, h fasthttp.RequestHandler)    { r.Handle(fasthttp.MethodPost, path, h) }
func (r *Router) PUT(path string, h fasthttp.RequestHandler)     { r.Handle(fasthttp.MethodPut, path, h) }
func (r *Router) PATCH(path string, h fasthttp.RequestHandler)   { r.Handle(fasthttp.MethodPatch, path, h) }
func (r *Router) DELETE(path string, h fasthttp.RequestHandler)  { r.Handle(fasthttp.MethodDelete, path, h) }
func (r *Router) OPTIONS(path string, h fasthttp.RequestHandler) { r.Handle(fasthttp.MethodOptions, path, h) }

// NotFound sets the handler for requests no route accepts. It is also
// responsible for 405 answers; see Allowed.
func (r *Router) NotFound(h fasthttp.RequestHandler) { r.notFound = h }

// Group registers routes under a shared prefix.
func (r *Router) Group(prefix string) *Group {
	return &Group{r: r, prefix: strings.TrimSuffix(prefix, "/")}
}

func (r *Router) Handler(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	parts := split(string(ctx.Path()))

	if p, vals, ok := r.lookup(method, parts); ok {
		for k, v := range vals {
			ctx.SetUserValue(k, v)
		}
		p.handler(ctx)
		return
	}
	if method == fasthttp.MethodHead {
		if p, vals, ok := r.lookup(fasthttp.MethodGet, parts); ok {
			for k, v := range vals {
				ctx.SetUserValue(k, v)
			}
			p.handler(ctx)
			return
		}
	}

	if r.notFound != nil {
		r.notFound(ctx)
		return
	}
	if len(r.allowed(parts)) > 0 {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNotFound)
}

// Allowed lists the methods with a route for path.
func (r *Router) Allowed(path string) []string {
	return r.allowed(split(path))
}

func (r *Router) allowed(parts []string) []string {
	var out []string
	for method, list := range r.byMethod {
		for i := range list {
			if _, ok := list[i].match(parts); ok {
				out = append(out, method)
				break
			}
		}
	}
	return out
}

func (r *Router) lookup(method string, parts []string) (*pattern, map[string]string, bool) {
	list := r.byMethod[method]
	for i := range list {
		if vals, ok := list[i].match(parts); ok {
			return &list[i], vals, true
		}
	}
	return nil, nil, false
}

func compile(path string, h fasthttp.RequestHandler) pattern {
	parts := split(path)
	p := pattern{raw: "/" + strings.Join(parts, "/"), parts: parts, handler: h}
	for i, part := range parts {
		if len(part) > 2 && part[0] == '{' && part[len(part)-1] == '}' {
			if p.params == nil {
				p.params = make(map[int]string)
			}
			p.params[i] = part[1 : len(part)-1]
		}
	}
	return p
}

func (p *pattern) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(p.parts) {
		return nil, false
	}
	var vals map[string]string
	for i, part := range parts {
		if name, ok := p.params[i]; ok {
			if part == "" {
				return nil, false
			}
			if vals == nil {
				vals = make(map[string]string, len(p.params))
			}
			vals[name] = part
			continue
		}
		if part != p.parts[i] {
			return nil, false
		}
	}
	return vals, true
}

// split returns the non-empty path segments; "/" yields none.
func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Group is a prefix view over a Router.
type Group struct {
	r      *Router
	prefix string
}

func (g *Group) Handle(method, path string, h fasthttp.RequestHandler) {
	g.r.Handle(method, g.prefix+path, h)
}

func (g *Group) GET(path string, h fasthttp.RequestHandler)    { g.Handle(fasthttp.MethodGet, path, h) }
func (g *Group) POST(path string, h fasthttp.RequestHandler)   { g.Handle(fasthttp.MethodPost, path, h) }
func (g *Group) PUT(path string, h fasthttp.RequestHandler)    { g.Handle(fasthttp.MethodPut, path, h) }
func (g *Group) DELETE(path string, h fasthttp.RequestHandler) { g.Handle(fasthttp.MethodDelete, path, h) }

// Group nests a further prefix.
func (g *Group) Group(prefix string) *Group {
	return &Group{r: g.r, prefix: g.prefix + strings.TrimSuffix(prefix, "/")}
}
