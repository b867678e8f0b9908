package repository

import "os"

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithFileMode sets the permission bits of written state files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *FileStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}

// WithExtension sets the file extension of state files, including the dot.
func WithExtension(ext string) Option {
	return func(s *FileStore) {
		if ext != "" {
			s.ext = ext
		}
	}
}
