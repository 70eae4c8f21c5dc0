// Package store persists flow definitions as one human-editable JSON file
// per flow in a directory.
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
	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Load and Delete for unknown flow ids. Callers
// treat it as a normal, non-fatal outcome.
var ErrNotFound = errors.New("flow not found")

// Store reads and writes flow files under a single directory.
type Store struct {
	dir string
	log logrus.FieldLogger
}

// New opens (creating if needed) a flow store at dir.
func New(dir string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create flow dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// GenerateID mints a prefixed identifier for flows and steps.
func (s *Store) GenerateID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// List returns all readable flow definitions sorted by name. Malformed files
// are skipped with a warning rather than failing the whole listing.
func (s *Store) List() ([]flow.Definition, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read flow dir: %w", err)
	}
	var defs []flow.Definition
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		def, err := s.readFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.WithField("file", e.Name()).WithError(err).Warn("skipping malformed flow file")
			continue
		}
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Load reads one flow by id.
func (s *Store) Load(id string) (*flow.Definition, error) {
	def, err := s.readFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return def, err
}

// Save writes the definition, stamping UpdatedAt (and CreatedAt on first
// save). The write is atomic: temp file then rename.
func (s *Store) Save(def *flow.Definition) error {
	if def.ID == "" {
		def.ID = s.GenerateID("flow")
	}
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	if def.Version == 0 {
		def.Version = 1
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("encode flow %s: %w", def.ID, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".flow-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(def.ID))
}

// Delete removes one flow by id.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func (s *Store) path(id string) string {
	// Flow ids are generator-assigned, but ids from hand-edited files
	// could try to escape the directory.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
	return filepath.Join(s.dir, safe+".json")
}

func (s *Store) readFile(path string) (*flow.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var def flow.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &def, nil
}
