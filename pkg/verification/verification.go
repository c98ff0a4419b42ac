package verification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/naughtyden-us/naughty-den/pkg/metrics"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

var ErrUnknownSession = errors.New("verification: unknown session")

// Result is the outcome reported back to the application.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
	ResultPending Result = "pending"
)

// CodeSuccess is the finish code of an approved verification.
const CodeSuccess = "SUCCESS"

type EventKind string

const (
	EventSession  EventKind = "session"
	EventFinished EventKind = "finished"
)

// Event is emitted by an Adapter during one verification session.
type Event struct {
	Kind      EventKind       `json:"kind"`
	SessionID string          `json:"sessionId,omitempty"`
	URL       string          `json:"url,omitempty"`
	Err       error           `json:"-"`
	Code      string          `json:"code,omitempty"`
	Person    json.RawMessage `json:"person,omitempty"`
}

// SessionConfig carries the vendor settings for one session.
type SessionConfig struct {
	Host       string
	APIKey     string
	MountID    string
	VendorData string
	Person     Person
}

type Person struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Adapter starts verification sessions. The returned channel yields a
// session event, then at most one finished event, then closes. Cancel
// forgets an open session and closes its channel without a finished
// event; a later Complete for it returns ErrUnknownSession.
type Adapter interface {
	StartVerification(ctx context.Context, cfg SessionConfig) (<-chan Event, error)
	Complete(sessionID string, err error, code string, person json.RawMessage) error
	Cancel(sessionID string)
}

// MapFinish maps a finish callback onto success or failed.
func MapFinish(err error, code string) Result {
	if err == nil && code == CodeSuccess {
		return ResultSuccess
	}
	return ResultFailed
}

// hub tracks open sessions and their event channels.
type hub struct {
	mu       sync.Mutex
	sessions map[string]chan Event
}

func newHub() *hub {
	return &hub{sessions: make(map[string]chan Event)}
}

func (h *hub) open(id string, first Event) <-chan Event {
	ch := make(chan Event, 2)
	ch <- first
	h.mu.Lock()
	h.sessions[id] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) complete(id string, ev Event) error {
	h.mu.Lock()
	ch, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}
	ch <- ev
	close(ch)
	metrics.Verifications.WithLabelValues(string(MapFinish(ev.Err, ev.Code))).Inc()
	logger.Info("verification_finished", "session_id", id, "code", ev.Code, "error", ev.Err)
	return nil
}

// Cancel drops an open session. Unknown ids are ignored.
func (h *hub) Cancel(id string) {
	h.mu.Lock()
	ch, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(ch)
	logger.Info("verification_cancelled", "session_id", id)
}

func (h *hub) pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// failed returns a closed channel holding a single session error.
func failed(err error) <-chan Event {
	ch := make(chan Event, 1)
	ch <- Event{Kind: EventSession, Err: err}
	close(ch)
	return ch
}
