package syncsched

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

var ErrNotOwner = errors.New("syncsched: lease held by another owner")

// FileLease is a Locker backed by a lock file created with os.Link.
type FileLease struct {
	path string
}

type leaseFile struct {
	Owner   string `json:"owner"`
	Expires string `json:"expires"`
}

func NewFileLease(dir string) *FileLease {
	return &FileLease{path: filepath.Join(dir, "sync.lock")}
}

func (l *FileLease) Acquire(owner string, ttl time.Duration) (bool, error) {
	now := timeutil.Now()
	b, err := json.Marshal(leaseFile{Owner: owner, Expires: now.Add(ttl).Format(time.RFC3339)})
	if err != nil {
		return false, err
	}
	tmp := l.path + "." + owner + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		logger.Error("lease_tmp_write_failed", "path", tmp, "error", err)
		return false, err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, l.path); err == nil {
		logger.Debug("lease_acquired", "path", l.path, "owner", owner)
		return true, nil
	}

	existing, err := l.read()
	if err != nil {
		return false, err
	}
	exp, _ := time.Parse(time.RFC3339, existing.Expires)
	if !exp.Before(now) {
		logger.Info("lease_currently_held", "path", l.path, "owner", existing.Owner)
		return false, nil
	}
	if err := os.Rename(tmp, l.path); err != nil {
		logger.Error("lease_replace_failed", "error", err)
		return false, err
	}
	logger.Info("lease_acquired_replaced", "path", l.path, "owner", owner, "previous", existing.Owner)
	return true, nil
}

func (l *FileLease) Release(owner string) error {
	existing, err := l.read()
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		return ErrNotOwner
	}
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("remove lease: %w", err)
	}
	return nil
}

func (l *FileLease) read() (leaseFile, error) {
	var lf leaseFile
	data, err := os.ReadFile(l.path)
	if err != nil {
		return lf, err
	}
	if err := json.Unmarshal(data, &lf); err != nil {
		return lf, fmt.Errorf("decode lease: %w", err)
	}
	return lf, nil
}
