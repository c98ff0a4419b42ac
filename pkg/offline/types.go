package offline

import (
	"encoding/json"
	"net/http"
	"net/url"
)

type Mode string

const (
	ModeNavigate   Mode = "navigate"
	ModeCORS       Mode = "cors"
	ModeNoCORS     Mode = "no-cors"
	ModeSameOrigin Mode = "same-origin"
)

type Destination string

const (
	DestNone     Destination = ""
	DestDocument Destination = "document"
	DestImage    Destination = "image"
	DestScript   Destination = "script"
	DestStyle    Destination = "style"
	DestFont     Destination = "font"
)

// Request is an intercepted fetch.
type Request struct {
	Method      string
	URL         *url.URL
	Mode        Mode
	Destination Destination
	Header      http.Header
	Body        []byte
}

// NewGet builds a plain GET for rawURL.
func NewGet(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Request{Method: http.MethodGet, URL: u, Mode: ModeCORS, Header: http.Header{}}, nil
}

// ResponseType mirrors the fetch response tainting categories.
type ResponseType string

const (
	TypeBasic  ResponseType = "basic"
	TypeCORS   ResponseType = "cors"
	TypeOpaque ResponseType = "opaque"
	TypeError  ResponseType = "error"
)

// Response is a fully buffered network or cached response.
type Response struct {
	Status int          `json:"status"`
	Type   ResponseType `json:"type"`
	Header http.Header  `json:"header"`
	Body   []byte       `json:"body"`
}

func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status <= 299
}

// Clone returns a copy sharing no header or body storage with r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		Status: r.Status,
		Type:   r.Type,
		Header: r.Header.Clone(),
		Body:   append([]byte(nil), r.Body...),
	}
}

type Phase string

const (
	PhaseNew        Phase = "new"
	PhaseInstalling Phase = "installing"
	PhaseWaiting    Phase = "waiting"
	PhaseActivating Phase = "activating"
	PhaseActive     Phase = "active"
	PhaseRedundant  Phase = "redundant"
)

// Outcome says how Fetch produced its response.
type Outcome string

const (
	OutcomePassthrough   Outcome = "passthrough"
	OutcomeCacheHit      Outcome = "cache_hit"
	OutcomeNetwork       Outcome = "network"
	OutcomeNetworkStored Outcome = "network_stored"
	OutcomeFallback      Outcome = "fallback"
	OutcomeFailed        Outcome = "failed"
)

type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

type Notification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body,omitempty"`
	Icon    string               `json:"icon,omitempty"`
	Badge   string               `json:"badge,omitempty"`
	Tag     string               `json:"tag,omitempty"`
	Data    json.RawMessage      `json:"data,omitempty"`
	Actions []NotificationAction `json:"actions"`
}

// cacheKey normalises a URL for lookup. Fragments never reach the network.
func cacheKey(u *url.URL) string {
	cp := *u
	cp.Fragment = ""
	cp.RawFragment = ""
	return cp.String()
}
