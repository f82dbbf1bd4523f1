// Package roster stores army lists: named collections of datasheet
// picks with model counts and wargear selections, priced against the
// datasheet cost rows.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound reports an unknown roster id.
var ErrNotFound = errors.New("roster not found")

// Entry is one unit pick in a roster.
type Entry struct {
	DatasheetID string   `json:"datasheet_id"`
	Name        string   `json:"name,omitempty"`
	Models      int      `json:"models"`
	Wargear     []string `json:"wargear,omitempty"`
	Points      int      `json:"points,omitempty"`
}

// Roster is a full army list.
type Roster struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Faction string  `json:"faction,omitempty"`
	Created int64   `json:"created"`
	Updated int64   `json:"updated"`
	Points  int     `json:"points"`
	Entries []Entry `json:"entries"`
}

// Pricer resolves a unit's points cost at a given size.
type Pricer interface {
	PointsFor(unitID string, modelCount int) int
}

// Price fills in per-entry and total points from the pricer.
func Price(r *Roster, p Pricer) {
	total := 0
	for i := range r.Entries {
		r.Entries[i].Points = p.PointsFor(r.Entries[i].DatasheetID, r.Entries[i].Models)
		total += r.Entries[i].Points
	}
	r.Points = total
}

// Store holds rosters in memory, mirrored to a JSON dir when dir is
// set. Persisted rosters are loaded up front so List sees them.
type Store struct {
	mu   sync.Mutex
	dir  string
	recs map[string]*Roster
}

// NewStore returns a store persisting to dir, or memory-only when dir
// is empty.
func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	s := &Store{dir: dir, recs: map[string]*Roster{}}
	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("roster dir: %w", err)
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("roster dir: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			continue
		}
		var r Roster
		if err := json.Unmarshal(data, &r); err != nil || strings.TrimSpace(r.ID) == "" {
			continue
		}
		s.recs[r.ID] = &r
	}
	return s, nil
}

// Create stores a new roster and assigns its id and stamps.
func (s *Store) Create(r Roster) (*Roster, error) {
	now := time.Now().Unix()
	r.ID = uuid.NewString()
	r.Created = now
	r.Updated = now

	s.mu.Lock()
	s.recs[r.ID] = &r
	snap := snapshot(&r)
	s.mu.Unlock()

	if err := s.save(&r); err != nil {
		return nil, err
	}
	return snap, nil
}

// Get returns a copy of a roster.
func (s *Store) Get(id string) (*Roster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recs[id]; ok {
		return snapshot(r), true
	}
	return nil, false
}

// List returns copies of all rosters sorted by name.
func (s *Store) List() []*Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Roster, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, snapshot(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete removes a roster from memory and disk.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.recs[id]
	delete(s.recs, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if s.dir != "" {
		if err := os.Remove(s.filePath(id)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func snapshot(r *Roster) *Roster {
	cp := *r
	cp.Entries = make([]Entry, len(r.Entries))
	copy(cp.Entries, r.Entries)
	return &cp
}

func (s *Store) filePath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) save(r *Roster) error {
	if s.dir == "" {
		return nil
	}
	s.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	path := s.filePath(r.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
