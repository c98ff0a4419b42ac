package offline

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
)

const origin = "https://naughtyden.test"

var errOffline = errors.New("network unreachable")

// fakeNet serves canned responses keyed by absolute URL and counts calls.
type fakeNet struct {
	mu      sync.Mutex
	routes  map[string]*Response
	calls   map[string]int
	offline bool
}

func newFakeNet() *fakeNet {
	f := &fakeNet{routes: map[string]*Response{}, calls: map[string]int{}}
	for _, p := range []string{"/", "/manifest.webmanifest", "/favicon.png", "/logo.png", "/pl.gif", "/sw.js"} {
		f.routes[origin+p] = &Response{Status: 200, Type: TypeBasic, Header: http.Header{}, Body: []byte("asset " + p)}
	}
	return f
}

func (f *fakeNet) set(u string, r *Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[u] = r
}

func (f *fakeNet) count(u string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[u]
}

func (f *fakeNet) Fetch(_ context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := req.URL.String()
	f.calls[u]++
	if f.offline {
		return nil, errOffline
	}
	r, ok := f.routes[u]
	if !ok {
		return &Response{Status: 404, Type: TypeBasic, Header: http.Header{}}, nil
	}
	return r.Clone(), nil
}

func testOptions() Options {
	o, _ := url.Parse(origin)
	return Options{
		Origin:       o,
		StaticCache:  "naughty-den-static-v1",
		DynamicCache: "naughty-den-dynamic-v1",
		Manifest:     []string{"/", "/manifest.webmanifest", "/favicon.png", "/logo.png", "/pl.gif", "/sw.js"},
	}
}

func get(t *testing.T, raw string) *Request {
	t.Helper()
	req, err := NewGet(raw)
	require.NoError(t, err)
	return req
}

func activeWorker(t *testing.T, storage CacheStorage, net *fakeNet) *Worker {
	t.Helper()
	w := NewWorker(testOptions(), storage, net, NewOutbox(10), LogOpener{})
	require.NoError(t, w.Start(context.Background()))
	require.Equal(t, PhaseActive, w.Phase())
	require.True(t, w.Claimed())
	return w
}

func storages(t *testing.T) map[string]func() CacheStorage {
	return map[string]func() CacheStorage{
		"memory": func() CacheStorage { return NewMemoryStorage() },
		"pebble": func() CacheStorage {
			db, err := storedb.OpenInMemory()
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewPebbleStorage(db)
		},
	}
}

func TestInstallCachesManifest(t *testing.T) {
	for name, mk := range storages(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			net := newFakeNet()
			w := NewWorker(testOptions(), s, net, nil, nil)
			require.NoError(t, w.Install(context.Background()))
			assert.Equal(t, PhaseWaiting, w.Phase())

			r, ok, err := s.Match(origin + "/sw.js")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "asset /sw.js", string(r.Body))
		})
	}
}

func TestInstallFailsClosed(t *testing.T) {
	for name, mk := range storages(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			net := newFakeNet()
			net.set(origin+"/pl.gif", &Response{Status: 500, Type: TypeBasic})
			w := NewWorker(testOptions(), s, net, nil, nil)

			require.Error(t, w.Install(context.Background()))
			assert.Equal(t, PhaseNew, w.Phase())
			_, ok, err := s.Match(origin + "/")
			require.NoError(t, err)
			assert.False(t, ok, "nothing from a failed install is kept")
			assert.ErrorIs(t, w.Activate(context.Background()), ErrNotWaiting)
		})
	}
}

func TestActivatePurgesOnlyStalePartitions(t *testing.T) {
	for name, mk := range storages(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			for _, n := range []string{"naughty-den-v1", "naughty-den-static-v0", "naughty-den-dynamic-v1"} {
				c, err := s.Open(n)
				require.NoError(t, err)
				require.NoError(t, c.Put(origin+"/old", &Response{Status: 200, Type: TypeBasic}))
			}
			activeWorker(t, s, newFakeNet())

			keys, err := s.Keys()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"naughty-den-static-v1", "naughty-den-dynamic-v1"}, keys)

			_, ok, err := s.Match(origin + "/old")
			require.NoError(t, err)
			assert.True(t, ok, "current dynamic partition untouched")
		})
	}
}

func TestNonGetPassesThrough(t *testing.T) {
	s := NewMemoryStorage()
	net := newFakeNet()
	w := activeWorker(t, s, net)

	req := get(t, origin+"/api/posts")
	req.Method = http.MethodPost
	net.set(origin+"/api/posts", &Response{Status: 201, Type: TypeBasic})

	resp, outcome, err := w.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomePassthrough, outcome)
	assert.Equal(t, 201, resp.Status)
	w.Wait()

	c, _ := s.Open("naughty-den-dynamic-v1")
	_, ok, _ := c.Match(origin + "/api/posts")
	assert.False(t, ok)
}

func TestNonHTTPSchemePassesThrough(t *testing.T) {
	w := activeWorker(t, NewMemoryStorage(), newFakeNet())
	_, outcome, err := w.Fetch(context.Background(), get(t, "chrome-extension://abc/x.js"))
	require.NoError(t, err)
	assert.Equal(t, OutcomePassthrough, outcome)
}

func TestQualifyingResponsesServedFromCache(t *testing.T) {
	cases := []struct {
		name string
		url  string
		dest Destination
	}{
		{"api prefix", origin + "/api/creators", DestNone},
		{"image destination", origin + "/avatar", DestImage},
		{"static extension", origin + "/static/app.woff2", DestNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			net := newFakeNet()
			net.set(tc.url, &Response{Status: 200, Type: TypeBasic, Header: http.Header{"Content-Type": {"x/y"}}, Body: []byte("v1")})
			w := activeWorker(t, NewMemoryStorage(), net)

			req := get(t, tc.url)
			req.Destination = tc.dest
			_, outcome, err := w.Fetch(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, OutcomeNetworkStored, outcome)
			w.Wait()

			net.set(tc.url, &Response{Status: 200, Type: TypeBasic, Body: []byte("v2")})
			resp, outcome, err := w.Fetch(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, OutcomeCacheHit, outcome)
			assert.Equal(t, "v1", string(resp.Body))
			assert.Equal(t, 1, net.count(tc.url))
		})
	}
}

func TestNonQualifyingResponsesNotCached(t *testing.T) {
	cases := []struct {
		name string
		url  string
		resp *Response
	}{
		{"cross origin", origin + "/api/a", &Response{Status: 200, Type: TypeCORS}},
		{"opaque", origin + "/x.png", &Response{Status: 200, Type: TypeOpaque}},
		{"non 2xx", origin + "/api/b", &Response{Status: 503, Type: TypeBasic}},
		{"plain page", origin + "/about", &Response{Status: 200, Type: TypeBasic}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			net := newFakeNet()
			net.set(tc.url, tc.resp)
			s := NewMemoryStorage()
			w := activeWorker(t, s, net)

			_, outcome, err := w.Fetch(context.Background(), get(t, tc.url))
			require.NoError(t, err)
			assert.Equal(t, OutcomeNetwork, outcome)
			w.Wait()

			_, ok, err := s.Match(tc.url)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestOfflineFallbacks(t *testing.T) {
	net := newFakeNet()
	w := activeWorker(t, NewMemoryStorage(), net)
	net.mu.Lock()
	net.offline = true
	net.mu.Unlock()

	nav := get(t, origin+"/creators/3")
	nav.Mode = ModeNavigate
	resp, outcome, err := w.Fetch(context.Background(), nav)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, outcome)
	assert.Equal(t, "asset /", string(resp.Body))

	img := get(t, origin+"/uploads/missing.jpg")
	img.Destination = DestImage
	resp, _, err = w.Fetch(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "asset /logo.png", string(resp.Body))

	_, outcome, err = w.Fetch(context.Background(), get(t, origin+"/api/posts"))
	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestInactiveWorkerDoesNotIntercept(t *testing.T) {
	s := NewMemoryStorage()
	net := newFakeNet()
	w := NewWorker(testOptions(), s, net, nil, nil)
	_, outcome, err := w.Fetch(context.Background(), get(t, origin+"/logo.png"))
	require.NoError(t, err)
	assert.Equal(t, OutcomePassthrough, outcome)
	keys, _ := s.Keys()
	assert.Empty(t, keys)
}

func TestShouldCache(t *testing.T) {
	w := NewWorker(testOptions(), NewMemoryStorage(), newFakeNet(), nil, nil)
	for raw, want := range map[string]bool{
		origin + "/api/x":        true,
		origin + "/a/b.CSS":      false,
		origin + "/a/b.css":      true,
		origin + "/a/b.svg":      true,
		origin + "/a/b.html":     false,
		origin + "/apix":         false,
		origin + "/fonts/f.woff": true,
	} {
		assert.Equal(t, want, w.ShouldCache(get(t, raw)), raw)
	}
}

func TestConcurrentFetchesLeakNothing(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	net := newFakeNet()
	for i := 0; i < 20; i++ {
		net.set(origin+"/api/"+string(rune('a'+i)), &Response{Status: 200, Type: TypeBasic, Body: []byte{byte(i)}})
	}
	w := activeWorker(t, NewMemoryStorage(), net)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := w.Fetch(context.Background(), get(t, origin+"/api/"+string(rune('a'+i))))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	w.Wait()
}

func TestResponseCloneIsIndependent(t *testing.T) {
	r := &Response{Status: 200, Header: http.Header{"A": {"1"}}, Body: []byte("abc")}
	c := r.Clone()
	c.Body[0] = 'z'
	c.Header.Set("A", "2")
	assert.Equal(t, "abc", string(r.Body))
	assert.Equal(t, "1", r.Header.Get("A"))
	assert.True(t, r.OK())
	assert.False(t, (*Response)(nil).OK())
}

func TestAPIEntriesPartitionedByClient(t *testing.T) {
	for name, mk := range storages(t) {
		t.Run(name, func(t *testing.T) {
			assets := newFakeNet()
			var mu sync.Mutex
			calls := 0
			net := FetcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
				if req.URL.Path != "/api/session" {
					return assets.Fetch(ctx, req)
				}
				mu.Lock()
				calls++
				mu.Unlock()
				return &Response{Status: 200, Type: TypeBasic, Header: http.Header{}, Body: []byte(`{"user":"` + clientID(req.Header) + `"}`)}, nil
			})
			w := NewWorker(testOptions(), mk(), net, NewOutbox(10), LogOpener{})
			require.NoError(t, w.Start(context.Background()))

			fetchAs := func(header, value string) (string, Outcome) {
				req := get(t, origin+"/api/session")
				req.Header.Set(header, value)
				resp, outcome, err := w.Fetch(context.Background(), req)
				require.NoError(t, err)
				w.Wait()
				return string(resp.Body), outcome
			}

			body, outcome := fetchAs("X-Session-ID", "alice")
			assert.Equal(t, `{"user":"alice"}`, body)
			assert.Equal(t, OutcomeNetworkStored, outcome)

			body, outcome = fetchAs("Cookie", "nd_session=bob")
			assert.Equal(t, `{"user":"bob"}`, body)
			assert.Equal(t, OutcomeNetworkStored, outcome)

			body, outcome = fetchAs("X-Session-ID", "alice")
			assert.Equal(t, `{"user":"alice"}`, body)
			assert.Equal(t, OutcomeCacheHit, outcome)

			body, outcome = fetchAs("Cookie", "nd_session=bob")
			assert.Equal(t, `{"user":"bob"}`, body)
			assert.Equal(t, OutcomeCacheHit, outcome)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 2, calls)
		})
	}
}

func TestSessionAssigningResponseNotShared(t *testing.T) {
	net := newFakeNet()
	net.set(origin+"/api/session", &Response{
		Status: 200, Type: TypeBasic,
		Header: http.Header{"Set-Cookie": {"nd_session=fresh; Path=/"}, "X-Session-Id": {"fresh"}},
		Body:   []byte(`{"id":"fresh"}`),
	})
	w := activeWorker(t, NewMemoryStorage(), net)

	for i := 0; i < 2; i++ {
		_, outcome, err := w.Fetch(context.Background(), get(t, origin+"/api/session"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNetwork, outcome)
		w.Wait()
	}
	assert.Equal(t, 2, net.count(origin+"/api/session"))
}

func TestRequestKey(t *testing.T) {
	w := NewWorker(testOptions(), NewMemoryStorage(), newFakeNet(), NewOutbox(1), LogOpener{})

	req := get(t, origin+"/api/profile/u1#top")
	key, client := w.requestKey(req)
	assert.Equal(t, origin+"/api/profile/u1", key)
	assert.Empty(t, client)

	req.Header.Set("X-Session-ID", "a b")
	key, client = w.requestKey(req)
	assert.Equal(t, origin+"/api/profile/u1#client=a+b", key)
	assert.Equal(t, "a b", client)

	asset := get(t, origin+"/logo.png")
	asset.Header.Set("X-Session-ID", "a b")
	key, _ = w.requestKey(asset)
	assert.Equal(t, origin+"/logo.png", key, "static assets stay shared")
}
