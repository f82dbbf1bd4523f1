package mathhammer

import (
	"fmt"
	"strings"
)

// WeaponProfile is one attacking weapon line, frozen for a single
// calculation.
type WeaponProfile struct {
	Name     string
	Attacks  DiceExpr
	Skill    int // hit roll needed, 2..6; ignored under Torrent
	Strength int
	AP       int // save worsening, 0 or more
	Damage   DiceExpr
	Rules    RuleSet
}

// DefenderProfile is the target unit, frozen for a single calculation.
type DefenderProfile struct {
	Name         string
	Toughness    int
	Save         int      // armor save, 2..7 where 7 means none
	Invuln       int      // invulnerable save, 0 if none
	Wounds       int      // wounds per model
	Models       int      // models in the unit
	FeelNoPain   int      // 0 if none
	Keywords     []string // evaluated by Anti-X
	Cover        bool     // unit sits in cover
	ReduceDamage int      // flat damage reduction per instance
	HalveDamage  bool     // halve damage per instance, rounding up
}

// HasKeyword reports whether the defender carries the keyword,
// case-insensitively.
func (d DefenderProfile) HasKeyword(kw string) bool {
	for _, k := range d.Keywords {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(kw)) {
			return true
		}
	}
	return false
}

// ModifierSet is the active-at-calculation-time adjustments: the UI
// toggles and stratagem effects layered over the two profiles. Net
// hit and wound modifiers are capped to +/-1 at the point of use, not
// per source, so HitMod may arrive outside that range.
type ModifierSet struct {
	HitMod   int
	WoundMod int

	RerollHits   RerollPolicy
	RerollWounds RerollPolicy
	RerollDamage RerollPolicy

	Cover   bool
	Stealth bool // defender imposes -1 to hit

	WoundMin int // "always wound on X+" override; 0 when unset

	Charged            bool // attacker charged this turn (Lance)
	RemainedStationary bool // attacker did not move (Heavy)
	HalfRange          bool // target inside half range (Rapid Fire)
}

// capMod caps a net modifier to the +/-1 band.
func capMod(m int) int {
	if m > 1 {
		return 1
	}
	if m < -1 {
		return -1
	}
	return m
}

// netHitModifier folds every hit-roll adjustment into one capped
// value.
func netHitModifier(w WeaponProfile, m ModifierSet) int {
	mod := m.HitMod
	if m.Stealth {
		mod--
	}
	if w.Rules.Heavy() && m.RemainedStationary {
		mod++
	}
	return capMod(mod)
}

// netWoundModifier folds every wound-roll adjustment into one capped
// value.
func netWoundModifier(w WeaponProfile, m ModifierSet) int {
	mod := m.WoundMod
	if w.Rules.Lance() && m.Charged {
		mod++
	}
	return capMod(mod)
}

// ValidationError reports an input rejected before any computation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate rejects malformed profiles and modifier sets. Hit and wound
// modifiers are exempt: any magnitude is legal input and is capped at
// use.
func Validate(w WeaponProfile, d DefenderProfile, m ModifierSet) error {
	if w.Attacks.Min() < 0 {
		return invalidf("attacks", "must not be negative, got %s", w.Attacks)
	}
	if !w.Rules.Torrent() {
		if w.Skill < 1 || w.Skill > 6 {
			return invalidf("skill", "hit roll %d+ out of range 1-6", w.Skill)
		}
	}
	if w.Strength < 1 {
		return invalidf("strength", "must be at least 1, got %d", w.Strength)
	}
	if w.AP < 0 {
		return invalidf("ap", "must not be negative, got %d", w.AP)
	}
	if w.Damage.Min() < 1 {
		return invalidf("damage", "must be at least 1, got %s", w.Damage)
	}
	if err := w.Rules.validate(); err != nil {
		return err
	}
	if d.Toughness < 1 {
		return invalidf("toughness", "must be at least 1, got %d", d.Toughness)
	}
	if d.Save < 2 || d.Save > 7 {
		return invalidf("save", "armor save %d+ out of range 2-7", d.Save)
	}
	if d.Invuln != 0 && (d.Invuln < 2 || d.Invuln > 6) {
		return invalidf("invuln", "invulnerable save %d+ out of range 2-6", d.Invuln)
	}
	if d.Wounds < 1 {
		return invalidf("wounds", "wounds per model must be at least 1, got %d", d.Wounds)
	}
	if d.Models < 1 {
		return invalidf("models", "unit must have at least 1 model, got %d", d.Models)
	}
	if d.FeelNoPain != 0 && (d.FeelNoPain < 2 || d.FeelNoPain > 6) {
		return invalidf("feelNoPain", "threshold %d+ out of range 2-6", d.FeelNoPain)
	}
	if d.ReduceDamage < 0 {
		return invalidf("reduceDamage", "must not be negative, got %d", d.ReduceDamage)
	}
	if m.WoundMin != 0 && (m.WoundMin < 2 || m.WoundMin > 6) {
		return invalidf("woundMin", "wound override %d+ out of range 2-6", m.WoundMin)
	}
	for _, rp := range []struct {
		name   string
		policy RerollPolicy
	}{
		{"rerollHits", m.RerollHits},
		{"rerollWounds", m.RerollWounds},
		{"rerollDamage", m.RerollDamage},
	} {
		if rp.policy < RerollNone || rp.policy > RerollAll {
			return invalidf(rp.name, "unknown reroll policy %d", int(rp.policy))
		}
	}
	return nil
}
