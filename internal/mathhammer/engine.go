// Package mathhammer is the combat-probability engine. It analytically
// derives hit, wound, save, damage and kill distributions for a single
// attack sequence under 10th edition rules, composing exact
// stage-by-stage distributions instead of sampling. Calculations are
// pure functions of their inputs, so callers may run any number of
// them concurrently.
package mathhammer

import "sync"

// Result is the terminal output bundle of one calculation.
type Result struct {
	ExpectedDamage float64
	DamageVariance float64
	Damage         Dist

	ExpectedKills float64
	KillsVariance float64
	Kills         Dist
	KillsAtLeast  []float64

	Breakdown Breakdown
}

// Breakdown carries the per-stage expected values the calculator page
// and the session log print next to the distributions.
type Breakdown struct {
	Attacks      float64
	Hits         float64
	BonusHits    float64 // Sustained Hits contribution, included in Hits
	AutoWounds   float64 // Lethal Hits conversions, included in Wounds
	Wounds       float64 // savable wounds
	MortalWounds float64
	FailedSaves  float64
}

// Calculate runs the full pipeline for one weapon volley into one
// defending unit. Inputs are validated before any computation; the
// stages themselves cannot fail.
func Calculate(w WeaponProfile, d DefenderProfile, m ModifierSet) (*Result, error) {
	if err := Validate(w, d, m); err != nil {
		return nil, err
	}

	hits := hitStage(w, d, m)
	wounds := woundStage(hits, w, d, m)
	saves := saveStage(wounds, w, d, m)
	dmg := damageStage(saves, w, d, m)
	kills := killStage(dmg, d.Wounds, d.Models)

	r := &Result{
		ExpectedDamage: dmg.total.Mean(),
		DamageVariance: dmg.total.Variance(),
		Damage:         dmg.total,
		ExpectedKills:  kills.Mean(),
		KillsVariance:  kills.Variance(),
		Kills:          kills,
		KillsAtLeast:   kills.AtLeast(),
		Breakdown: Breakdown{
			Attacks:      hits.expAttacks,
			Hits:         hits.expHits,
			BonusHits:    hits.expBonus,
			AutoWounds:   hits.expAuto,
			Wounds:       wounds.wounds.first().Mean(),
			MortalWounds: wounds.wounds.second().Mean(),
			FailedSaves:  saves.failed.first().Mean(),
		},
	}
	return r, nil
}

// MatrixEntry is one weapon-versus-defender cell of a batch run.
type MatrixEntry struct {
	Weapon   string
	Defender string
	Result   *Result
	Err      error
}

// Matrix computes every pairing of the given weapons and defenders
// under one modifier set. Calculations share no state, so each cell
// runs on its own goroutine and writes only its own slot.
func Matrix(weapons []WeaponProfile, defenders []DefenderProfile, m ModifierSet) [][]MatrixEntry {
	out := make([][]MatrixEntry, len(weapons))
	var wg sync.WaitGroup
	for i, w := range weapons {
		out[i] = make([]MatrixEntry, len(defenders))
		for j, d := range defenders {
			i, j, w, d := i, j, w, d
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := Calculate(w, d, m)
				out[i][j] = MatrixEntry{Weapon: w.Name, Defender: d.Name, Result: res, Err: err}
			}()
		}
	}
	wg.Wait()
	return out
}
