package mathhammer

// saveThreshold computes the roll needed to save. AP worsens the armor
// save and cover improves it by one, clamped so armor never beats 2+;
// past 6+ the save is gone and 7 is returned. The invulnerable save
// ignores AP and cover and is used whenever it is the better of the
// two.
func saveThreshold(save, invuln, ap int, cover bool) int {
	armor := save + ap
	if cover {
		armor--
	}
	if armor < 2 {
		armor = 2
	}
	if armor > 6 {
		armor = 7
	}
	if invuln > 0 && invuln < armor {
		return invuln
	}
	return armor
}

// saveOutcome carries the failed saves joint with the mortal wounds
// untouched alongside.
type saveOutcome struct {
	failed joint // failed[f][m] = P(f failed saves, m mortal wounds)
}

// saveStage rolls the defender's saves against the savable wounds.
// Mortal wounds pass through unrolled.
func saveStage(prev woundOutcome, w WeaponProfile, d DefenderProfile, m ModifierSet) saveOutcome {
	tn := saveThreshold(d.Save, d.Invuln, w.AP, m.Cover || d.Cover)
	pFail := float64(tn-1) / 6

	maxS := len(prev.wounds) - 1
	maxM := len(prev.wounds[0]) - 1
	out := newJoint(maxS, maxM)

	bin := Dist{1}
	for s := 0; s <= maxS; s++ {
		for mw, p := range prev.wounds[s] {
			if p == 0 {
				continue
			}
			for f, pf := range bin {
				if pf == 0 {
					continue
				}
				out[f][mw] += p * pf
			}
		}
		if s < maxS {
			bin = bin.Convolve(Dist{1 - pFail, pFail})
		}
	}

	return saveOutcome{failed: out.normalize()}
}
