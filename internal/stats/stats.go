// Package stats tracks calculator usage per user and the best
// expected-damage calculation of the day.
package stats

import (
	"strings"
	"sync"
	"time"
)

// UserStats counts one user's calculator usage.
type UserStats struct {
	Username     string  `json:"username"`
	Calculations int     `json:"calculations"`
	Simulations  int     `json:"simulations"`
	LastUsed     int64   `json:"last_used,omitempty"`
	BestDamage   float64 `json:"best_damage,omitempty"`
	BestWeapon   string  `json:"best_weapon,omitempty"`
	BestDefender string  `json:"best_defender,omitempty"`
}

// Store keeps usage counters in memory. The daily top resets when the
// UTC date rolls over.
type Store struct {
	mu    sync.Mutex
	users map[string]*UserStats
	day   string
	top   *TopDamage
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{users: map[string]*UserStats{}, now: time.Now}
}

func username(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "anonymous"
	}
	return s
}

// RecordCalc notes one calculation for a user and offers it as the
// daily top, replacing the current holder on higher damage with kills
// as the tie-break.
func (s *Store) RecordCalc(user, weapon, defender string, expectedDamage, expectedKills float64) {
	user = username(user)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user]
	if !ok {
		u = &UserStats{Username: user}
		s.users[user] = u
	}
	u.Calculations++
	u.LastUsed = now.Unix()
	if expectedDamage > u.BestDamage {
		u.BestDamage = expectedDamage
		u.BestWeapon = weapon
		u.BestDefender = defender
	}

	day := now.UTC().Format("2006-01-02")
	if s.day != day {
		s.day = day
		s.top = nil
	}
	if s.top == nil || expectedDamage > s.top.Damage ||
		(expectedDamage == s.top.Damage && expectedKills > s.top.Kills) {
		s.top = &TopDamage{
			Date:     day,
			Username: user,
			Weapon:   weapon,
			Defender: defender,
			Damage:   expectedDamage,
			Kills:    expectedKills,
			Time:     now.Unix(),
		}
	}
}

// RecordSim notes one simulated trace for a user.
func (s *Store) RecordSim(user string) {
	user = username(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[user]
	if !ok {
		u = &UserStats{Username: user}
		s.users[user] = u
	}
	u.Simulations++
	u.LastUsed = s.now().Unix()
}

// User returns a user's counters, zeroed when unseen.
func (s *Store) User(user string) UserStats {
	user = username(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[user]; ok {
		return *u
	}
	return UserStats{Username: user}
}
