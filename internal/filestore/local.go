package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/hemline/internal/config"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

type localStore struct {
	dir       string
	publicURL string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(cfg config.FileStoreConfig, publicBaseURL string) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimSuffix(publicBaseURL, "/") + "/api/v1/files"
	}
	return NewLocalStore(cfg.Dir, publicURL), nil
}

// NewLocalStore keeps objects as files under dir. Objects are served from
// publicURL + "/" + key.
func NewLocalStore(dir, publicURL string) Store {
	return &localStore{dir: dir, publicURL: strings.TrimSuffix(publicURL, "/")}
}

func (s *localStore) Type() string {
	return "local"
}

func (s *localStore) URL(key string) string {
	return s.publicURL + "/" + key
}

func (s *localStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	_ = ctx
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	// write to a temp file first so readers never see a partial object
	tmp, err := os.CreateTemp(s.dir, "."+key+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.CopyN(tmp, r, size); err != nil && !errors.Is(err, io.EOF) {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, key))
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	if err := checkKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
