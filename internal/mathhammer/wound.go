package mathhammer

// woundTarget returns the roll needed to wound for Strength against
// Toughness, per the step table.
func woundTarget(s, t int) int {
	switch {
	case s >= 2*t:
		return 2
	case s > t:
		return 3
	case s == t:
		return 4
	case 2*s <= t:
		return 6
	default:
		return 5
	}
}

// woundOutcome is the wound stage result: a joint distribution over
// savable wounds and mortal wounds. Mortal wounds exist only under
// Devastating Wounds and skip the save stage entirely.
type woundOutcome struct {
	wounds joint // wounds[s][m] = P(s savable, m mortal)
}

// woundStage rolls the pending hits to wound. Criticality is read off
// the unmodified die: a 6, or the Anti threshold when the defender
// carries the keyword. Anti never moves the wound target itself; when
// its threshold does not beat the target it merely marks every success
// critical. Lethal auto-wounds skip the roll, so they can never be
// critical and Devastating never converts them.
func woundStage(prev hitOutcome, w WeaponProfile, d DefenderProfile, m ModifierSet) woundOutcome {
	base := woundTarget(w.Strength, d.Toughness)
	if m.WoundMin > 0 {
		base = m.WoundMin
	}
	eff := base - netWoundModifier(w, m)

	critTh := 6
	if anti, ok := w.Rules.Anti(); ok && d.HasKeyword(anti.Keyword) && anti.Threshold < critTh {
		critTh = anti.Threshold
	}

	policy := m.RerollWounds
	if w.Rules.TwinLinked() && policy != RerollAll {
		policy = RerollAll
	}

	ch := d6Chance(eff, critTh, policy)
	devastating := w.Rules.Devastating()

	maxRolls := len(prev.rolls) - 1
	maxAuto := len(prev.rolls[0]) - 1
	maxMortal := 0
	if devastating {
		maxMortal = maxRolls
	}
	out := newJoint(maxRolls+maxAuto, maxMortal)

	tri := newJoint(maxRolls, maxRolls)
	tri[0][0] = 1
	for r := 0; r <= maxRolls; r++ {
		for a := 0; a <= r; a++ {
			for b := 0; a+b <= r; b++ {
				p := tri[a][b]
				if p == 0 {
					continue
				}
				for l, pl := range prev.rolls[r] {
					if pl == 0 {
						continue
					}
					savable := a + l
					mortal := 0
					if devastating {
						mortal = b
					} else {
						savable += b
					}
					out[savable][mortal] += pl * p
				}
			}
		}
		if r < maxRolls {
			tri = trinomialStep(tri, ch)
		}
	}

	return woundOutcome{wounds: out.normalize()}
}
