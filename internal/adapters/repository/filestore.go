package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// Default file store configuration constants.
const (
	defaultFileMode  = 0o644
	defaultDirMode   = 0o755
	defaultExtension = ".cbor"
)

// FileStore keeps one CBOR file per counter: <dir>/<name>.cbor.
type FileStore struct {
	mode os.FileMode
	ext  string
	enc  cbor.EncMode
	dec  cbor.DecMode
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a CBOR-backed Store.
func NewFileStore(opts ...Option) (*FileStore, error) {
	s := &FileStore{
		mode: defaultFileMode,
		ext:  defaultExtension,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Core deterministic encoding keeps re-rendered states byte-identical.
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	enc, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		MaxArrayElements: 1 << 24,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR decoder: %w", err)
	}
	s.enc = enc
	s.dec = dec
	return s, nil
}

// Path returns the file a counter's state lives in.
func (s *FileStore) Path(dir, name string) string {
	return filepath.Join(dir, name+s.ext)
}

// Save writes st atomically: a temp file in dir is renamed over the target.
func (s *FileStore) Save(ctx context.Context, dir, name string, st *CounterState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.enc.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state %q: %w", name, err)
	}
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state %q: %w", name, err)
	}
	if err := os.Chmod(tmpName, s.mode); err != nil {
		return fmt.Errorf("chmod state %q: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(dir, name)); err != nil {
		return fmt.Errorf("publish state %q: %w", name, err)
	}
	return nil
}

// Load reads the state saved for name under dir.
func (s *FileStore) Load(ctx context.Context, dir, name string) (*CounterState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}

	var st CounterState
	if err := s.dec.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptState, path, err)
	}
	if st.Bins <= 0 || len(st.Counts) != st.Bins {
		return nil, fmt.Errorf("%w: %s: %d counts for %d bins", ErrCorruptState, path, len(st.Counts), st.Bins)
	}
	return &st, nil
}
