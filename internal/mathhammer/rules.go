package mathhammer

import (
	"fmt"
	"sort"
)

type ruleKey int

const (
	keyLethalHits ruleKey = iota
	keySustainedHits
	keyDevastatingWounds
	keyAnti
	keyTorrent
	keyTwinLinked
	keyRapidFire
	keyBlast
	keyHeavy
	keyLance
)

// Rule is a single weapon special rule. Each variant carries exactly
// the data that rule needs, so an Anti rule without a keyword or a
// Sustained Hits without a count cannot be built by accident.
type Rule interface {
	key() ruleKey
	String() string
}

// LethalHits converts critical hits into automatic wounds that skip
// the wound roll.
type LethalHits struct{}

// SustainedHits grants Count additional plain hits per critical hit.
type SustainedHits struct{ Count int }

// DevastatingWounds converts critical wounds into mortal damage that
// bypasses saves.
type DevastatingWounds struct{}

// AntiKeyword lowers the critical-wound threshold to Threshold against
// defenders carrying Keyword. It never changes the wound target
// itself. A threshold of 7 is legal and never triggers, leaving the
// critical threshold at the natural 6.
type AntiKeyword struct {
	Keyword   string
	Threshold int
}

// Torrent weapons hit automatically and never critically.
type Torrent struct{}

// TwinLinked grants reroll of failed wound rolls.
type TwinLinked struct{}

// RapidFire adds Count attacks when firing at half range.
type RapidFire struct{ Count int }

// Blast adds one attack per five models in the defending unit.
type Blast struct{}

// Heavy grants +1 to hit when the attacker remained stationary.
type Heavy struct{}

// Lance grants +1 to wound when the attacker charged.
type Lance struct{}

func (LethalHits) key() ruleKey        { return keyLethalHits }
func (SustainedHits) key() ruleKey     { return keySustainedHits }
func (DevastatingWounds) key() ruleKey { return keyDevastatingWounds }
func (AntiKeyword) key() ruleKey       { return keyAnti }
func (Torrent) key() ruleKey           { return keyTorrent }
func (TwinLinked) key() ruleKey        { return keyTwinLinked }
func (RapidFire) key() ruleKey         { return keyRapidFire }
func (Blast) key() ruleKey             { return keyBlast }
func (Heavy) key() ruleKey             { return keyHeavy }
func (Lance) key() ruleKey             { return keyLance }

func (LethalHits) String() string        { return "Lethal Hits" }
func (r SustainedHits) String() string   { return fmt.Sprintf("Sustained Hits %d", r.Count) }
func (DevastatingWounds) String() string { return "Devastating Wounds" }
func (r AntiKeyword) String() string {
	return fmt.Sprintf("Anti-%s %d+", r.Keyword, r.Threshold)
}
func (Torrent) String() string     { return "Torrent" }
func (TwinLinked) String() string  { return "Twin-linked" }
func (r RapidFire) String() string { return fmt.Sprintf("Rapid Fire %d", r.Count) }
func (Blast) String() string       { return "Blast" }
func (Heavy) String() string       { return "Heavy" }
func (Lance) String() string       { return "Lance" }

// RuleSet is a collection of weapon rules holding at most one rule of
// each kind. The zero value is the empty set.
type RuleSet struct {
	rules map[ruleKey]Rule
}

// NewRuleSet builds a set, rejecting duplicate rule kinds.
func NewRuleSet(rules ...Rule) (RuleSet, error) {
	m := make(map[ruleKey]Rule, len(rules))
	for _, r := range rules {
		if prev, dup := m[r.key()]; dup {
			return RuleSet{}, fmt.Errorf("duplicate rule %s (already have %s)", r, prev)
		}
		m[r.key()] = r
	}
	return RuleSet{rules: m}, nil
}

// MustRules is NewRuleSet for fixtures and literals known to be valid.
func MustRules(rules ...Rule) RuleSet {
	s, err := NewRuleSet(rules...)
	if err != nil {
		panic(err)
	}
	return s
}

// With returns a copy of the set where each given rule replaces any
// existing rule of the same kind. Calculation requests use it to lay
// toggles from the modifier payload over a weapon's intrinsic rules.
func (s RuleSet) With(rules ...Rule) RuleSet {
	m := make(map[ruleKey]Rule, len(s.rules)+len(rules))
	for k, r := range s.rules {
		m[k] = r
	}
	for _, r := range rules {
		m[r.key()] = r
	}
	return RuleSet{rules: m}
}

func (s RuleSet) has(k ruleKey) bool {
	_, ok := s.rules[k]
	return ok
}

func (s RuleSet) Lethal() bool      { return s.has(keyLethalHits) }
func (s RuleSet) Devastating() bool { return s.has(keyDevastatingWounds) }
func (s RuleSet) Torrent() bool     { return s.has(keyTorrent) }
func (s RuleSet) TwinLinked() bool  { return s.has(keyTwinLinked) }
func (s RuleSet) Blast() bool       { return s.has(keyBlast) }
func (s RuleSet) Heavy() bool       { return s.has(keyHeavy) }
func (s RuleSet) Lance() bool       { return s.has(keyLance) }

// Sustained reports the Sustained Hits count when present.
func (s RuleSet) Sustained() (int, bool) {
	r, ok := s.rules[keySustainedHits]
	if !ok {
		return 0, false
	}
	return r.(SustainedHits).Count, true
}

// RapidFireCount reports the Rapid Fire count when present.
func (s RuleSet) RapidFireCount() (int, bool) {
	r, ok := s.rules[keyRapidFire]
	if !ok {
		return 0, false
	}
	return r.(RapidFire).Count, true
}

// Anti reports the Anti rule when present.
func (s RuleSet) Anti() (AntiKeyword, bool) {
	r, ok := s.rules[keyAnti]
	if !ok {
		return AntiKeyword{}, false
	}
	return r.(AntiKeyword), true
}

// All returns the rules in a stable order.
func (s RuleSet) All() []Rule {
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// Strings renders the rules for logs and traces.
func (s RuleSet) Strings() []string {
	all := s.All()
	out := make([]string, len(all))
	for i, r := range all {
		out[i] = r.String()
	}
	return out
}

func (s RuleSet) validate() error {
	if r, ok := s.Sustained(); ok && r < 1 {
		return invalidf("sustainedHits", "count must be at least 1, got %d", r)
	}
	if r, ok := s.RapidFireCount(); ok && r < 1 {
		return invalidf("rapidFire", "count must be at least 1, got %d", r)
	}
	if a, ok := s.Anti(); ok {
		if a.Keyword == "" {
			return invalidf("antiX", "keyword must not be empty")
		}
		if a.Threshold < 2 || a.Threshold > 7 {
			return invalidf("antiX", "threshold %d+ out of range 2-7", a.Threshold)
		}
	}
	return nil
}
