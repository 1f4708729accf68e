// Package store persists trained artifacts.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cornerstats/fight-predictor/internal/predictor"
)

// ErrNotFound is returned when no artifact matches the request.
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore saves and retrieves artifacts.
type ArtifactStore interface {
	Save(ctx context.Context, a *predictor.Artifact) error
	Latest(ctx context.Context) (*predictor.Artifact, error)
	Load(ctx context.Context, id string) (*predictor.Artifact, error)
}

// FileStore keeps a single artifact as a JSON file. Save replaces it.
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Save writes the artifact through a temporary file so readers never see a
// partial document.
func (s *FileStore) Save(_ context.Context, a *predictor.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := predictor.Encode(tmp, a); err != nil {
		tmp.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// Latest reads the stored artifact.
func (s *FileStore) Latest(_ context.Context) (*predictor.Artifact, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return predictor.Decode(f)
}

// Load reads the stored artifact and checks that it has the given ID.
func (s *FileStore) Load(ctx context.Context, id string) (*predictor.Artifact, error) {
	a, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if a.ID != id {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}
