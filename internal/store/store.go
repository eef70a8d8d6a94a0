// Package store keeps the history of analysis runs in a runs.json index
// beside the per-run output directories.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/KaramelBytes/scoreloom-cli/internal/utils"
)

const indexFileName = "runs.json"

// Run describes one completed analysis.
type Run struct {
	ID        string    `json:"id"`
	Dataset   string    `json:"dataset"`
	Dir       string    `json:"dir"`
	Students  int       `json:"students"`
	Subjects  []string  `json:"subjects"`
	Charts    int       `json:"charts"`
	Failed    int       `json:"failed_charts"`
	Narrative string    `json:"narrative"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrNotFound is returned when no run matches an id.
var ErrNotFound = errors.New("run not found")

// Store is the on-disk run index rooted at a directory.
type Store struct {
	fs   afero.Fs
	root string
	Runs []*Run `json:"runs"`
}

// Open loads the index under root. A missing index yields an empty store.
func Open(fs afero.Fs, root string) (*Store, error) {
	s := &Store{fs: fs, root: root}
	b, err := afero.ReadFile(fs, filepath.Join(root, indexFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read run index: %w", err)
	}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse run index: %w", err)
	}
	return s, nil
}

// Root returns the directory holding the index.
func (s *Store) Root() string { return s.root }

// NewID returns a fresh run id.
func NewID() string { return uuid.NewString() }

// RunDir is where a run's artifacts live.
func (s *Store) RunDir(id string) string {
	return filepath.Join(s.root, id)
}

// Add records r and persists the index. ID and CreatedAt are filled when empty.
func (s *Store) Add(r *Run) error {
	if r == nil {
		return errors.New("nil run")
	}
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Dir == "" {
		r.Dir = s.RunDir(r.ID)
	}
	for _, existing := range s.Runs {
		if existing.ID == r.ID {
			return fmt.Errorf("duplicate run id %s", r.ID)
		}
	}
	s.Runs = append(s.Runs, r)
	return s.save()
}

func (s *Store) save() error {
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(s.fs, filepath.Join(s.root, indexFileName), data)
}

// List returns runs newest first.
func (s *Store) List() []*Run {
	out := make([]*Run, len(s.Runs))
	copy(out, s.Runs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Get finds a run by id or unique id prefix.
func (s *Store) Get(id string) (*Run, error) {
	var match *Run
	for _, r := range s.Runs {
		if r.ID == id {
			return r, nil
		}
		if id != "" && strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous run id prefix %q", id)
			}
			match = r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}
