package models

import (
	"github.com/mordian/w40k-companion/internal/mathhammer"
)

// Profile converts the wire weapon into an engine profile.
func (w Weapon) Profile() (mathhammer.WeaponProfile, error) {
	attacks, err := mathhammer.ParseDiceExpr(string(w.Attacks))
	if err != nil {
		return mathhammer.WeaponProfile{}, &mathhammer.ValidationError{Field: "weapon.attacks", Reason: err.Error()}
	}
	damage, err := mathhammer.ParseDiceExpr(string(w.Damage))
	if err != nil {
		return mathhammer.WeaponProfile{}, &mathhammer.ValidationError{Field: "weapon.damage", Reason: err.Error()}
	}
	return mathhammer.WeaponProfile{
		Name:     w.Name,
		Attacks:  attacks,
		Skill:    w.Skill,
		Strength: w.Strength,
		AP:       w.AP,
		Damage:   damage,
		Rules:    mathhammer.MustRules(w.rules()...),
	}, nil
}

// rules lists the weapon's flag fields as engine rules. Each flag maps
// to a distinct rule kind, so the set can never see a duplicate.
func (w Weapon) rules() []mathhammer.Rule {
	var out []mathhammer.Rule
	if w.LethalHits {
		out = append(out, mathhammer.LethalHits{})
	}
	if w.SustainedHits > 0 {
		out = append(out, mathhammer.SustainedHits{Count: w.SustainedHits})
	}
	if w.DevastatingWounds {
		out = append(out, mathhammer.DevastatingWounds{})
	}
	if w.AntiX != nil {
		out = append(out, mathhammer.AntiKeyword{Keyword: w.AntiX.Keyword, Threshold: w.AntiX.Threshold})
	}
	if w.Torrent {
		out = append(out, mathhammer.Torrent{})
	}
	if w.TwinLinked {
		out = append(out, mathhammer.TwinLinked{})
	}
	if w.RapidFire > 0 {
		out = append(out, mathhammer.RapidFire{Count: w.RapidFire})
	}
	if w.Blast {
		out = append(out, mathhammer.Blast{})
	}
	if w.Heavy {
		out = append(out, mathhammer.Heavy{})
	}
	if w.Lance {
		out = append(out, mathhammer.Lance{})
	}
	return out
}

// Profile converts the wire defender into an engine profile.
func (d Defender) Profile() mathhammer.DefenderProfile {
	return mathhammer.DefenderProfile{
		Name:         d.Name,
		Toughness:    d.Toughness,
		Save:         d.Save,
		Invuln:       d.Invuln,
		Wounds:       d.Wounds,
		Models:       d.Models,
		FeelNoPain:   d.FeelNoPain,
		Keywords:     d.Keywords,
		Cover:        d.Cover,
		ReduceDamage: d.ReduceDamage,
		HalveDamage:  d.HalveDamage,
	}
}

// Set converts the toggles that live in the engine's modifier set.
func (m Modifiers) Set() (mathhammer.ModifierSet, error) {
	out := mathhammer.ModifierSet{
		HitMod:             m.PlusToHit,
		WoundMod:           m.PlusToWound,
		Cover:              m.Cover,
		Stealth:            m.Stealth,
		WoundMin:           m.WoundMin,
		Charged:            m.Charged,
		RemainedStationary: m.RemainedStationary,
		HalfRange:          m.HalfRange,
	}
	var err error
	if out.RerollHits, err = mathhammer.ParseRerollPolicy(m.RerollHits); err != nil {
		return out, &mathhammer.ValidationError{Field: "modifiers.rerollHits", Reason: err.Error()}
	}
	if out.RerollWounds, err = mathhammer.ParseRerollPolicy(m.RerollWounds); err != nil {
		return out, &mathhammer.ValidationError{Field: "modifiers.rerollWounds", Reason: err.Error()}
	}
	if out.RerollDamage, err = mathhammer.ParseRerollPolicy(m.RerollDamage); err != nil {
		return out, &mathhammer.ValidationError{Field: "modifiers.rerollDamage", Reason: err.Error()}
	}
	return out, nil
}

// ruleToggles lists the rules the modifier payload grants on top of
// the weapon's own.
func (m Modifiers) ruleToggles() []mathhammer.Rule {
	var out []mathhammer.Rule
	if m.LethalHits {
		out = append(out, mathhammer.LethalHits{})
	}
	if m.SustainedHits > 0 {
		out = append(out, mathhammer.SustainedHits{Count: m.SustainedHits})
	}
	if m.DevastatingWounds {
		out = append(out, mathhammer.DevastatingWounds{})
	}
	if m.AntiX != nil {
		out = append(out, mathhammer.AntiKeyword{Keyword: m.AntiX.Keyword, Threshold: m.AntiX.Threshold})
	}
	return out
}

// Build assembles the engine inputs for one calculation: the weapon
// with the modifier rule toggles layered on, the defender with any
// Feel No Pain override applied, and the modifier set itself.
func (r CalcRequest) Build() (mathhammer.WeaponProfile, mathhammer.DefenderProfile, mathhammer.ModifierSet, error) {
	w, err := r.Weapon.Profile()
	if err != nil {
		return mathhammer.WeaponProfile{}, mathhammer.DefenderProfile{}, mathhammer.ModifierSet{}, err
	}
	m, err := r.Modifiers.Set()
	if err != nil {
		return mathhammer.WeaponProfile{}, mathhammer.DefenderProfile{}, mathhammer.ModifierSet{}, err
	}
	if extra := r.Modifiers.ruleToggles(); len(extra) > 0 {
		w.Rules = w.Rules.With(extra...)
	}
	d := r.Defender.Profile()
	if r.Modifiers.FeelNoPain != nil {
		d.FeelNoPain = *r.Modifiers.FeelNoPain
	}
	return w, d, m, nil
}

// Build assembles the engine inputs for a matrix run, applying the
// shared modifier toggles to every weapon and defender.
func (r MatrixRequest) Build() ([]mathhammer.WeaponProfile, []mathhammer.DefenderProfile, mathhammer.ModifierSet, error) {
	m, err := r.Modifiers.Set()
	if err != nil {
		return nil, nil, mathhammer.ModifierSet{}, err
	}
	extra := r.Modifiers.ruleToggles()

	weapons := make([]mathhammer.WeaponProfile, len(r.Weapons))
	for i, wire := range r.Weapons {
		w, err := wire.Profile()
		if err != nil {
			return nil, nil, mathhammer.ModifierSet{}, err
		}
		if len(extra) > 0 {
			w.Rules = w.Rules.With(extra...)
		}
		weapons[i] = w
	}
	defenders := make([]mathhammer.DefenderProfile, len(r.Defenders))
	for i, wire := range r.Defenders {
		d := wire.Profile()
		if r.Modifiers.FeelNoPain != nil {
			d.FeelNoPain = *r.Modifiers.FeelNoPain
		}
		defenders[i] = d
	}
	return weapons, defenders, m, nil
}

// NewCalcResult maps an engine result onto the wire shape.
func NewCalcResult(r *mathhammer.Result) *CalcResult {
	return &CalcResult{
		ExpectedDamage:      r.ExpectedDamage,
		ExpectedKills:       r.ExpectedKills,
		Probabilities:       []float64(r.Kills),
		ProbabilityAtLeast:  r.KillsAtLeast,
		Variance:            r.KillsVariance,
		DamageVariance:      r.DamageVariance,
		DamageProbabilities: []float64(r.Damage),
		Breakdown: Breakdown{
			Attacks:      r.Breakdown.Attacks,
			Hits:         r.Breakdown.Hits,
			BonusHits:    r.Breakdown.BonusHits,
			AutoWounds:   r.Breakdown.AutoWounds,
			Wounds:       r.Breakdown.Wounds,
			MortalWounds: r.Breakdown.MortalWounds,
			FailedSaves:  r.Breakdown.FailedSaves,
		},
	}
}

// NewMatrixResult maps a matrix run onto the wire shape, carrying
// per-cell validation failures as messages.
func NewMatrixResult(entries [][]mathhammer.MatrixEntry) MatrixResult {
	cells := make([][]MatrixCell, len(entries))
	for i, row := range entries {
		cells[i] = make([]MatrixCell, len(row))
		for j, e := range row {
			cell := MatrixCell{Weapon: e.Weapon, Defender: e.Defender}
			if e.Err != nil {
				cell.Error = e.Err.Error()
			} else {
				cell.Result = NewCalcResult(e.Result)
			}
			cells[i][j] = cell
		}
	}
	return MatrixResult{Cells: cells}
}
