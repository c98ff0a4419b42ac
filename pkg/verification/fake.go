package verification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Fake is an in-process Adapter for tests and local runs.
type Fake struct {
	*hub
	BaseURL string
	// FailSession makes the next StartVerification emit a session error.
	FailSession error
}

func NewFake(baseURL string) *Fake {
	return &Fake{hub: newHub(), BaseURL: baseURL}
}

func (f *Fake) StartVerification(ctx context.Context, _ SessionConfig) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.FailSession; err != nil {
		f.FailSession = nil
		return failed(err), nil
	}
	id := uuid.NewString()
	return f.open(id, Event{Kind: EventSession, SessionID: id, URL: f.BaseURL + "/v/" + id}), nil
}

func (f *Fake) Complete(sessionID string, err error, code string, person json.RawMessage) error {
	return f.complete(sessionID, Event{Kind: EventFinished, SessionID: sessionID, Err: err, Code: code, Person: person})
}

// Open reports how many sessions are waiting for a finish.
func (f *Fake) Open() int { return f.pending() }
