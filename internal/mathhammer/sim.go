package mathhammer

import (
	"fmt"
	"math/rand"
	"strings"
)

// SimResult is one fully rolled-out attack sequence with a
// step-by-step log. The analytic pipeline answers "how likely"; this
// answers "show me one game" for the session log and the calculator's
// trace view, and its long-run averages match the analytic output.
type SimResult struct {
	Logs []string `json:"logs"`

	Attacks      int `json:"attacks"`
	Hits         int `json:"hits"`
	AutoWounds   int `json:"auto_wounds"`
	Wounds       int `json:"wounds"`
	MortalWounds int `json:"mortal_wounds"`
	FailedSaves  int `json:"failed_saves"`
	Damage       int `json:"damage"`
	Kills        int `json:"kills"`
}

// Simulate plays a single volley with real dice under exactly the
// semantics the analytic stages price. A nil rng gets a time-seeded
// one.
func Simulate(w WeaponProfile, d DefenderProfile, m ModifierSet, rng *rand.Rand) (*SimResult, error) {
	if err := Validate(w, d, m); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = newRNG()
	}

	res := &SimResult{}
	logf := func(format string, args ...any) {
		res.Logs = append(res.Logs, fmt.Sprintf(format, args...))
	}

	if rules := w.Rules.Strings(); len(rules) > 0 {
		logf("Weapon rules: [%s]", strings.Join(rules, ", "))
	}

	// Attacks
	attacks := w.Attacks.Roll(rng)
	logf("Attacks A=%s -> %d", w.Attacks, attacks)
	if w.Rules.Blast() && d.Models >= 5 {
		extra := d.Models / 5
		attacks += extra
		logf("Blast: +%d attack(s) against %d models", extra, d.Models)
	}
	if n, ok := w.Rules.RapidFireCount(); ok && m.HalfRange {
		attacks += n
		logf("Rapid Fire %d: +%d attack(s) at half range", n, n)
	}
	res.Attacks = attacks

	sustained, _ := w.Rules.Sustained()
	lethal := w.Rules.Lethal()
	torrent := w.Rules.Torrent()

	hitTN := 0
	if !torrent {
		hitTN = w.Skill - netHitModifier(w, m)
		logf("To Hit: needs %d+ (skill %d+, net modifier %+d)", hitTN, w.Skill, netHitModifier(w, m))
	} else {
		logf("Torrent: attacks hit automatically")
	}

	// succeeds reports one d6 against an effective target; a natural 6
	// always passes.
	succeeds := func(v, tn int) bool { return v == 6 || v >= tn }

	rollWithPolicy := func(tn int, policy RerollPolicy, what string, i int) int {
		v := 1 + rng.Intn(6)
		switch policy {
		case RerollOnes:
			if v == 1 && !succeeds(v, tn) {
				r2 := 1 + rng.Intn(6)
				logf("%s roll %d: re-roll 1 -> %d", what, i, r2)
				v = r2
			}
		case RerollAll:
			if !succeeds(v, tn) {
				r2 := 1 + rng.Intn(6)
				logf("%s roll %d: re-roll %d -> %d", what, i, v, r2)
				v = r2
			}
		}
		return v
	}

	// Hits
	woundRolls := 0
	for i := 1; i <= attacks; i++ {
		if torrent {
			res.Hits++
			woundRolls++
			continue
		}
		v := rollWithPolicy(hitTN, m.RerollHits, "Hit", i)
		if !succeeds(v, hitTN) {
			logf("Hit roll %d: %d -> MISS (needs %d+)", i, v, hitTN)
			continue
		}
		res.Hits++
		logf("Hit roll %d: %d -> HIT (needs %d+)", i, v, hitTN)
		if v == 6 {
			if sustained > 0 {
				res.Hits += sustained
				woundRolls += sustained
				logf("Sustained Hits: +%d additional hit(s)", sustained)
			}
			if lethal {
				res.AutoWounds++
				logf("Lethal Hits: critical hit converts to auto-wound")
				continue
			}
		}
		woundRolls++
	}
	if torrent {
		logf("Hits total: %d (automatic)", res.Hits)
	} else {
		logf("Hits total: %d", res.Hits)
	}

	// Wounds
	base := woundTarget(w.Strength, d.Toughness)
	if m.WoundMin > 0 {
		base = m.WoundMin
		logf("To Wound: fixed override %d+", base)
	} else {
		logf("To Wound base: S %d vs T %d -> needs %d+", w.Strength, d.Toughness, base)
	}
	woundTN := base - netWoundModifier(w, m)

	critTh := 6
	if anti, ok := w.Rules.Anti(); ok && d.HasKeyword(anti.Keyword) && anti.Threshold < critTh {
		critTh = anti.Threshold
		logf("Anti-%s %d+ applies: unmodified %d+ to wound is critical", anti.Keyword, anti.Threshold, critTh)
	}

	woundPolicy := m.RerollWounds
	if w.Rules.TwinLinked() && woundPolicy != RerollAll {
		woundPolicy = RerollAll
		logf("Twin-linked: re-roll failed wound rolls")
	}
	devastating := w.Rules.Devastating()

	savable := res.AutoWounds
	if res.AutoWounds > 0 {
		logf("Lethal Hits auto-wounds added: +%d", res.AutoWounds)
	}
	for i := 1; i <= woundRolls; i++ {
		v := rollWithPolicy(woundTN, woundPolicy, "Wound", i)
		if !succeeds(v, woundTN) {
			logf("Wound roll %d: %d -> FAIL (needs %d+)", i, v, woundTN)
			continue
		}
		if devastating && v >= critTh {
			res.MortalWounds++
			logf("Wound roll %d: %d -> CRITICAL, Devastating Wounds converts to mortal damage", i, v)
			continue
		}
		savable++
		logf("Wound roll %d: %d -> WOUND (needs %d+)", i, v, woundTN)
	}
	res.Wounds = savable
	logf("Wounds total: %d savable, %d mortal", savable, res.MortalWounds)

	// Saves
	tn := saveThreshold(d.Save, d.Invuln, w.AP, m.Cover || d.Cover)
	if tn >= 7 {
		logf("Saves: AP %d leaves no save", w.AP)
	} else if d.Invuln > 0 && tn == d.Invuln {
		logf("Saves: using invulnerable %d+", tn)
	} else {
		logf("Saves: armor save modified to %d+", tn)
	}
	for i := 1; i <= savable; i++ {
		v := 1 + rng.Intn(6)
		if v >= tn {
			logf("Save roll %d: %d -> SAVED (needs %d+)", i, v, tn)
		} else {
			res.FailedSaves++
			logf("Save roll %d: %d -> FAILED (needs %d+)", i, v, tn)
		}
	}
	logf("Saves failed: %d", res.FailedSaves)

	// Damage, one instance per failed save and per mortal wound
	instances := res.FailedSaves + res.MortalWounds
	remaining := d.Wounds
	modelsDown := 0
	for i := 1; i <= instances; i++ {
		dmg := w.Damage.roll(rng, m.RerollDamage)
		dmg = mitigate(dmg, d)
		kind := "damage"
		if i > res.FailedSaves {
			kind = "mortal damage"
		}
		if d.FeelNoPain > 0 {
			v := 1 + rng.Intn(6)
			if v >= d.FeelNoPain {
				logf("Feel No Pain %d+: %d -> %s instance of %d ignored", d.FeelNoPain, v, kind, dmg)
				continue
			}
			logf("Feel No Pain %d+: %d -> failed", d.FeelNoPain, v)
		}
		res.Damage += dmg
		logf("Damage roll %d: %s -> %d %s", i, w.Damage, dmg, kind)

		// allocate to the current model; excess is lost
		if modelsDown < d.Models {
			if dmg >= remaining {
				modelsDown++
				remaining = d.Wounds
				logf("Model slain (%d down)", modelsDown)
			} else {
				remaining -= dmg
			}
		}
	}
	res.Kills = modelsDown
	logf("Total damage: %d, models slain: %d/%d", res.Damage, res.Kills, d.Models)

	return res, nil
}
