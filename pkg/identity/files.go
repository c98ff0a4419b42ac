package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gabriel-vasile/mimetype"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/validation"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// FileStore writes uploads under <root>/<uid>/<name>.
type FileStore struct {
	root    string
	maxSize int64
	allowed []string
}

func NewFileStore(root string, maxSize int64, allowed []string) *FileStore {
	if maxSize <= 0 {
		maxSize = validation.MaxFileSize
	}
	if len(allowed) == 0 {
		allowed = validation.AllowedFileTypes
	}
	return &FileStore{root: root, maxSize: maxSize, allowed: allowed}
}

// FileURL is the public URL for an uploaded file.
func FileURL(uid, name string) string {
	return "/files/" + uid + "/" + name
}

func (s *FileStore) path(uid, name string) (string, error) {
	if !safeName.MatchString(uid) || !safeName.MatchString(name) {
		return "", apperr.Provider("storage/invalid-argument", "invalid file path")
	}
	return filepath.Join(s.root, uid, name), nil
}

// Upload sniffs and validates data, then stores it. The returned URL is
// served by the files route.
func (s *FileStore) Upload(ctx context.Context, uid, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mt := mimetype.Detect(data)
	if err := validation.FileWithLimits(int64(len(data)), mt.String(), s.maxSize, s.allowed).Err(); err != nil {
		return "", err
	}
	p, err := s.path(uid, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("rename upload: %w", err)
	}
	logger.Info("file_uploaded", "uid", uid, "name", name, "type", mt.String(), "bytes", len(data))
	return FileURL(uid, name), nil
}

// Open reads a stored file and its sniffed content type.
func (s *FileStore) Open(ctx context.Context, uid, name string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	p, err := s.path(uid, name)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", apperr.Provider("storage/not-found", "file not found")
		}
		return nil, "", err
	}
	return data, mimetype.Detect(data).String(), nil
}
