// Package session keeps live game logs: calculation results and notes
// appended while a game is played, optionally persisted to a JSON
// directory and fanned out to websocket subscribers.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mordian/w40k-companion/internal/models"
)

// ErrNotFound reports an unknown session id.
var ErrNotFound = errors.New("session not found")

// Entry is one line of a game log. Kind is "calc" for an engine result
// or "note" for free text.
type Entry struct {
	Time     int64              `json:"time"`
	Kind     string             `json:"kind"`
	Actor    string             `json:"actor,omitempty"`
	Round    int                `json:"round,omitempty"`
	Text     string             `json:"text,omitempty"`
	Attacker string             `json:"attacker,omitempty"`
	Defender string             `json:"defender,omitempty"`
	Weapon   string             `json:"weapon,omitempty"`
	Result   *models.CalcResult `json:"result,omitempty"`
}

// Record is a full session log.
type Record struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Players []string `json:"players,omitempty"`
	Created int64    `json:"created"`
	Updated int64    `json:"updated"`
	Entries []Entry  `json:"entries"`
}

// Store holds sessions in memory, with optional JSON persistence when
// dir is set. Writes go through a tmp file and a rename so a crash
// never leaves a half-written record.
type Store struct {
	mu   sync.Mutex
	dir  string
	recs map[string]*Record
}

// NewStore returns a store persisting to dir, or memory-only when dir
// is empty.
func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("session dir: %w", err)
		}
	}
	return &Store{dir: dir, recs: map[string]*Record{}}, nil
}

// Create opens a new session log.
func (s *Store) Create(name string, players []string) (*Record, error) {
	now := time.Now().Unix()
	rec := &Record{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(name),
		Players: players,
		Created: now,
		Updated: now,
	}
	s.mu.Lock()
	s.recs[rec.ID] = rec
	snap := snapshot(rec)
	s.mu.Unlock()

	if err := s.save(rec); err != nil {
		return nil, err
	}
	return snap, nil
}

// Get returns a copy of the session, lazy-loading from the
// persistence dir when it is not in memory.
func (s *Store) Get(id string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[id]; ok {
		return snapshot(rec), true
	}
	if rec := s.load(id); rec != nil {
		s.recs[rec.ID] = rec
		return snapshot(rec), true
	}
	return nil, false
}

// Append adds an entry to the session and stamps it. Unit and weapon
// names pass through the phonetic correction table so spoken-style
// inputs land on canonical datasheet names.
func (s *Store) Append(id string, e Entry) (*Record, error) {
	if e.Time == 0 {
		e.Time = time.Now().Unix()
	}
	if e.Kind == "" {
		if e.Text != "" && e.Result == nil {
			e.Kind = "note"
		} else {
			e.Kind = "calc"
		}
	}
	e.Attacker = CorrectName(e.Attacker)
	e.Defender = CorrectName(e.Defender)
	e.Weapon = CorrectName(e.Weapon)

	s.mu.Lock()
	rec, ok := s.recs[id]
	if !ok {
		if rec = s.load(id); rec == nil {
			s.mu.Unlock()
			return nil, ErrNotFound
		}
		s.recs[rec.ID] = rec
	}
	rec.Entries = append(rec.Entries, e)
	rec.Updated = time.Now().Unix()
	snap := snapshot(rec)
	s.mu.Unlock()

	if err := s.save(rec); err != nil {
		return nil, err
	}
	return snap, nil
}

// snapshot copies a record so callers can marshal it outside the lock.
func snapshot(rec *Record) *Record {
	cp := *rec
	cp.Players = slices.Clone(rec.Players)
	cp.Entries = slices.Clone(rec.Entries)
	return &cp
}

func (s *Store) filePath(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".json")
}

// sanitizeID keeps alnum, dash and underscore so a client-supplied id
// can never escape the persistence dir.
func sanitizeID(id string) string {
	b := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b = append(b, r)
		} else {
			b = append(b, '-')
		}
	}
	out := strings.Trim(strings.ReplaceAll(string(b), "--", "-"), "-")
	if out == "" {
		out = "session"
	}
	return out
}

func (s *Store) save(rec *Record) error {
	if s.dir == "" {
		return nil
	}
	s.mu.Lock()
	data, err := json.MarshalIndent(rec, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	path := s.filePath(rec.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) load(id string) *Record {
	if s.dir == "" || strings.TrimSpace(id) == "" {
		return nil
	}
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = id
	}
	return &rec
}
