package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/naughtyden-us/naughty-den/pkg/api/utils"
	"github.com/naughtyden-us/naughty-den/pkg/config"
	"github.com/naughtyden-us/naughty-den/pkg/metrics"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

var ErrNotWaiting = errors.New("offline: worker is not waiting to activate")

var cacheableExt = map[string]bool{
	"js": true, "css": true, "png": true, "jpg": true, "jpeg": true,
	"gif": true, "svg": true, "woff": true, "woff2": true,
}

// Options configures a Worker.
type Options struct {
	Origin           *url.URL
	StaticCache      string
	DynamicCache     string
	Manifest         []string
	APIPrefix        string
	NavigateFallback string
	ImageFallback    string
	SyncTag          string
	// Sync runs on a matching background-sync event. Nil logs and succeeds.
	Sync func(ctx context.Context) error
}

// OptionsFromConfig derives worker options from the offline section.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	o := cfg.Offline
	origin, err := url.Parse(o.Origin)
	if err != nil {
		return Options{}, fmt.Errorf("offline origin: %w", err)
	}
	static, dynamic := cfg.CacheNames()
	return Options{
		Origin:           origin,
		StaticCache:      static,
		DynamicCache:     dynamic,
		Manifest:         append([]string(nil), o.Manifest...),
		APIPrefix:        o.APIPrefix,
		NavigateFallback: o.NavigateFallback,
		ImageFallback:    o.ImageFallback,
		SyncTag:          o.Sync.Tag,
	}, nil
}

// Worker implements the offline cache lifecycle and fetch interception.
type Worker struct {
	opts    Options
	storage CacheStorage
	net     Fetcher
	notify  Notifier
	windows WindowOpener

	mu      sync.RWMutex
	phase   Phase
	claimed bool

	pending sync.WaitGroup
}

func NewWorker(opts Options, storage CacheStorage, net Fetcher, notify Notifier, windows WindowOpener) *Worker {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/"
	}
	if opts.NavigateFallback == "" {
		opts.NavigateFallback = "/"
	}
	if opts.ImageFallback == "" {
		opts.ImageFallback = "/logo.png"
	}
	if opts.SyncTag == "" {
		opts.SyncTag = "background-sync"
	}
	return &Worker{
		opts:    opts,
		storage: storage,
		net:     net,
		notify:  notify,
		windows: windows,
		phase:   PhaseNew,
	}
}

func (w *Worker) Phase() Phase {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.phase
}

func (w *Worker) Claimed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.claimed
}

func (w *Worker) setPhase(p Phase) {
	w.mu.Lock()
	w.phase = p
	w.mu.Unlock()
}

// resolve turns a site path into the absolute URL used as the cache key.
func (w *Worker) resolve(p string) string {
	if w.opts.Origin == nil {
		return p
	}
	ref, err := url.Parse(p)
	if err != nil {
		return p
	}
	return cacheKey(w.opts.Origin.ResolveReference(ref))
}

// Install fetches the whole manifest into the static partition. Any single
// failure fails the install and leaves the worker not installed.
func (w *Worker) Install(ctx context.Context) error {
	w.mu.Lock()
	if w.phase != PhaseNew {
		cur := w.phase
		w.mu.Unlock()
		return fmt.Errorf("offline: install from phase %s", cur)
	}
	w.phase = PhaseInstalling
	w.mu.Unlock()

	logger.Info("offline_installing", "cache", w.opts.StaticCache, "files", len(w.opts.Manifest))
	err := w.install(ctx)
	metrics.CacheLifecycle.WithLabelValues("install", metrics.Result(err)).Inc()
	if err != nil {
		w.setPhase(PhaseNew)
		logger.Error("offline_install_failed", "error", err)
		return err
	}
	w.setPhase(PhaseWaiting)
	logger.Info("offline_installed", "cache", w.opts.StaticCache)
	return nil
}

func (w *Worker) install(ctx context.Context) error {
	c, err := w.storage.Open(w.opts.StaticCache)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.opts.StaticCache, err)
	}
	urls := make([]string, len(w.opts.Manifest))
	for i, p := range w.opts.Manifest {
		urls[i] = w.resolve(p)
	}
	return c.AddAll(ctx, w.net, urls)
}

// Activate removes every partition outside the current pair, then claims clients.
func (w *Worker) Activate(ctx context.Context) error {
	w.mu.Lock()
	if w.phase != PhaseWaiting {
		w.mu.Unlock()
		return ErrNotWaiting
	}
	w.phase = PhaseActivating
	w.mu.Unlock()

	err := w.purgeStale(ctx)
	metrics.CacheLifecycle.WithLabelValues("activate", metrics.Result(err)).Inc()
	if err != nil {
		w.setPhase(PhaseWaiting)
		logger.Error("offline_activate_failed", "error", err)
		return err
	}

	w.mu.Lock()
	w.phase = PhaseActive
	w.claimed = true
	w.mu.Unlock()
	logger.Info("offline_activated", "static", w.opts.StaticCache, "dynamic", w.opts.DynamicCache)
	return nil
}

func (w *Worker) purgeStale(ctx context.Context) error {
	names, err := w.storage.Keys()
	if err != nil {
		return fmt.Errorf("list caches: %w", err)
	}
	var errs []error
	for _, name := range names {
		if name == w.opts.StaticCache || name == w.opts.DynamicCache {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info("offline_cache_deleted", "cache", name)
		if _, err := w.storage.Delete(name); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Start installs and activates in one go.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.Install(ctx); err != nil {
		return err
	}
	return w.Activate(ctx)
}

// ShouldCache decides whether a successful response for req is persisted.
func (w *Worker) ShouldCache(req *Request) bool {
	p := req.URL.Path
	if strings.HasPrefix(p, w.opts.APIPrefix) {
		return true
	}
	if req.Destination == DestImage {
		return true
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")
	return ext != "" && cacheableExt[ext]
}

// Fetch runs the interception algorithm for one request.
func (w *Worker) Fetch(ctx context.Context, req *Request) (*Response, Outcome, error) {
	resp, outcome, err := w.fetch(ctx, req)
	metrics.CacheFetches.WithLabelValues(string(outcome)).Inc()
	return resp, outcome, err
}

func (w *Worker) fetch(ctx context.Context, req *Request) (*Response, Outcome, error) {
	if req.Method != "GET" || (req.URL.Scheme != "http" && req.URL.Scheme != "https") || w.Phase() != PhaseActive {
		resp, err := w.net.Fetch(ctx, req)
		if err != nil {
			return nil, OutcomeFailed, err
		}
		return resp, OutcomePassthrough, nil
	}

	key, client := w.requestKey(req)
	if cached, ok, err := w.storage.Match(key); err != nil {
		logger.Warn("offline_match_failed", "url", key, "error", err)
	} else if ok {
		logger.Debug("offline_cache_hit", "url", key)
		return cached, OutcomeCacheHit, nil
	}

	logger.Debug("offline_network_fetch", "url", key)
	resp, err := w.net.Fetch(ctx, req)
	if err != nil {
		return w.fallback(req, err)
	}
	if !resp.OK() || resp.Type != TypeBasic {
		return resp, OutcomeNetwork, nil
	}
	if !w.ShouldCache(req) {
		return resp, OutcomeNetwork, nil
	}
	if client == "" && assignsSession(resp) {
		return resp, OutcomeNetwork, nil
	}
	w.storeAsync(key, resp.Clone())
	return resp, OutcomeNetworkStored, nil
}

// requestKey is the cache key for req. The edge serves many clients, so an
// API request that names a view session gets its own entry; anonymous API
// reads share the plain URL key.
func (w *Worker) requestKey(req *Request) (key, client string) {
	key = cacheKey(req.URL)
	if !strings.HasPrefix(req.URL.Path, w.opts.APIPrefix) {
		return key, ""
	}
	client = clientID(req.Header)
	if client == "" {
		return key, ""
	}
	// cacheKey never keeps a fragment, so this cannot collide with a URL key.
	return key + "#client=" + url.QueryEscape(client), client
}

// clientID reads the view session id from the header, else the cookie.
func clientID(h http.Header) string {
	if id := h.Get(utils.SessionHeader); id != "" {
		return id
	}
	if c, err := (&http.Request{Header: h}).Cookie(utils.SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// assignsSession reports whether resp hands the caller a session, which
// must never be replayed to another client.
func assignsSession(resp *Response) bool {
	return resp.Header.Get("Set-Cookie") != "" || resp.Header.Get(utils.SessionHeader) != ""
}

func (w *Worker) fallback(req *Request, cause error) (*Response, Outcome, error) {
	logger.Info("offline_network_failed", "url", req.URL.String(), "error", cause)
	var target string
	switch {
	case req.Mode == ModeNavigate:
		target = w.opts.NavigateFallback
	case req.Destination == DestImage:
		target = w.opts.ImageFallback
	default:
		return nil, OutcomeFailed, cause
	}
	cached, ok, err := w.storage.Match(w.resolve(target))
	if err != nil || !ok {
		return nil, OutcomeFailed, cause
	}
	return cached, OutcomeFallback, nil
}

func (w *Worker) storeAsync(key string, resp *Response) {
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("offline_cache_write_panic", "url", key, "panic", r)
			}
		}()
		c, err := w.storage.Open(w.opts.DynamicCache)
		if err != nil {
			logger.Error("offline_cache_open_failed", "cache", w.opts.DynamicCache, "error", err)
			return
		}
		if err := c.Put(key, resp); err != nil {
			logger.Error("offline_cache_write_failed", "url", key, "error", err)
		}
	}()
}

// Wait blocks until background cache writes have finished.
func (w *Worker) Wait() {
	w.pending.Wait()
}

// Status is a point-in-time view for the control surface.
type Status struct {
	Phase        Phase    `json:"phase"`
	Claimed      bool     `json:"claimed"`
	StaticCache  string   `json:"staticCache"`
	DynamicCache string   `json:"dynamicCache"`
	Partitions   []string `json:"partitions"`
}

func (w *Worker) Status() (Status, error) {
	names, err := w.storage.Keys()
	if err != nil {
		return Status{}, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Status{
		Phase:        w.phase,
		Claimed:      w.claimed,
		StaticCache:  w.opts.StaticCache,
		DynamicCache: w.opts.DynamicCache,
		Partitions:   names,
	}, nil
}
