// Package transcripts stores immutable transcript artifacts on disk, one JSON
// file per transcript, keyed "<ticketID>-<closeEpochMillis>". Files are never
// rewritten once stored.
package transcripts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/wardenbot/warden/pkg/entities"
)

var (
	// ErrNotFound is returned when no transcript exists for the ID.
	ErrNotFound = errors.New("transcript not found")

	// ErrAlreadyExists is returned when saving over an existing transcript.
	ErrAlreadyExists = errors.New("transcript already exists")
)

// idPattern is the only shape of ID the store will touch on disk. It keeps
// request-supplied IDs from escaping the transcript directory.
var idPattern = regexp.MustCompile(`^[0-9]{1,9}-[0-9]{1,20}$`)

// Store persists transcript artifacts.
type Store interface {
	// Save durably stores a transcript. The transcript's ID must be unused.
	Save(t *entities.Transcript) error

	// Get loads a transcript by ID.
	Get(id string) (*entities.Transcript, error)
}

type fileStore struct {
	dir string
}

// NewFileStore creates a file-backed transcript store rooted at dir, creating
// the directory if needed.
func NewFileStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating transcript directory: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path(id string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *fileStore) Save(t *entities.Transcript) error {
	path, err := s.path(t.ID)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, t.ID)
	}

	raw, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding transcript: %w", err)
	}

	// Write to a temp file first so a crash mid-write never leaves a partial
	// artifact behind the final name.
	tmp, err := os.CreateTemp(s.dir, "transcript-*.tmp")
	if err != nil {
		return fmt.Errorf("error creating transcript file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing transcript file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error storing transcript: %w", err)
	}
	return nil
}

func (s *fileStore) Get(id string) (*entities.Transcript, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("error reading transcript: %w", err)
	}

	t := new(entities.Transcript)
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("error decoding transcript: %w", err)
	}
	return t, nil
}
