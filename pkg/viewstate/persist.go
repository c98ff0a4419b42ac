package viewstate

import (
	"context"
	"encoding/json"

	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
)

// StorageName is the fixed name the persisted slice is stored under.
const StorageName = "naughty-den-storage"

// Persister stores one session's Persisted slice.
type Persister interface {
	Load(ctx context.Context) (Persisted, bool, error)
	Save(ctx context.Context, p Persisted) error
}

// StorePersister keeps slices in pebble under <StorageName>/<session id>.
type StorePersister struct {
	db  *storedb.DB
	key string
}

func NewStorePersister(db *storedb.DB, sessionID string) *StorePersister {
	return &StorePersister{db: db, key: StorageName + "/" + sessionID}
}

func (p *StorePersister) Load(ctx context.Context) (Persisted, bool, error) {
	if err := ctx.Err(); err != nil {
		return Persisted{}, false, err
	}
	var out Persisted
	if err := p.db.GetJSON(p.key, &out); err != nil {
		if storedb.IsNotFound(err) {
			return Persisted{}, false, nil
		}
		return Persisted{}, false, err
	}
	return out, true, nil
}

func (p *StorePersister) Save(ctx context.Context, v Persisted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.SaveJSON(p.key, v)
}

// Forget drops the stored slice.
func (p *StorePersister) Forget() error {
	return p.db.DeleteKey(p.key)
}

func encodePersisted(p Persisted) []byte {
	b, _ := json.Marshal(p)
	return b
}
