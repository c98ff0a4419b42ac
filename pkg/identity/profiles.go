package identity

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

const profilePrefix = "profiles/"

// ProfileStore keeps one profile document per uid.
type ProfileStore struct {
	db *storedb.DB
}

func NewProfileStore(db *storedb.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func profileKey(uid string) string { return profilePrefix + uid }

func (s *ProfileStore) Get(ctx context.Context, uid string) (models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return models.Profile{}, err
	}
	var p models.Profile
	if err := s.db.GetJSON(profileKey(uid), &p); err != nil {
		if storedb.IsNotFound(err) {
			return models.Profile{}, errProfileMissing
		}
		return models.Profile{}, err
	}
	return p, nil
}

// Create stores p if no profile exists for p.UID yet.
func (s *ProfileStore) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return models.Profile{}, err
	}
	err := s.db.Update(profileKey(p.UID), func(_ []byte, exists bool) ([]byte, error) {
		if exists {
			return nil, errProfileExists
		}
		return json.Marshal(p)
	})
	if err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// Update applies patch to the stored profile and returns the result.
func (s *ProfileStore) Update(ctx context.Context, uid string, patch models.ProfilePatch) (models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return models.Profile{}, err
	}
	var out models.Profile
	err := s.db.Update(profileKey(uid), func(old []byte, exists bool) ([]byte, error) {
		if !exists {
			return nil, errProfileMissing
		}
		var cur models.Profile
		if err := json.Unmarshal(old, &cur); err != nil {
			return nil, err
		}
		out = patch.Apply(cur, timeutil.Now().UTC())
		return json.Marshal(out)
	})
	if err != nil {
		return models.Profile{}, err
	}
	return out, nil
}

// IsNotFound reports whether err is the missing-profile error.
func IsNotFound(err error) bool {
	return errors.Is(err, errProfileMissing)
}

// IsExists reports whether err is the duplicate-profile error.
func IsExists(err error) bool {
	return errors.Is(err, errProfileExists)
}
