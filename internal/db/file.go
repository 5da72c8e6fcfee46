package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSlot stores a slot as a file on disk. Writes go to a temporary file
// that is renamed over the target, so readers never see a partial document.
type FileSlot struct {
	Path string
}

// NewFileSlot creates a slot backed by the file at path.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{Path: path}
}

// Get reads the slot file.
func (s *FileSlot) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot file: %w", err)
	}
	return data, nil
}

// Put replaces the slot file.
func (s *FileSlot) Put(ctx context.Context, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create slot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to replace slot file: %w", err)
	}
	return nil
}
