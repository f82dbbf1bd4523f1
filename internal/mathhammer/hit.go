package mathhammer

// hitOutcome is what the hit stage hands the wound stage: a joint
// distribution over pending to-wound rolls and Lethal auto-wounds,
// plus the expected values the breakdown reports.
type hitOutcome struct {
	rolls      joint // rolls[r][l] = P(r wound rolls pending, l auto-wounds)
	expAttacks float64
	expHits    float64
	expAuto    float64
	expBonus   float64
}

// attackCount resolves the attacks characteristic into its exact
// distribution, with Blast and Rapid Fire bonuses folded in as flat
// additions.
func attackCount(w WeaponProfile, d DefenderProfile, m ModifierSet) Dist {
	extra := 0
	if w.Rules.Blast() {
		extra += d.Models / 5
	}
	if n, ok := w.Rules.RapidFireCount(); ok && m.HalfRange {
		extra += n
	}
	return w.Attacks.PMF().shift(extra)
}

// hitStage rolls the attack pool. Criticals are natural sixes
// regardless of modifiers. Under Lethal Hits each critical leaves the
// pool as an auto-wound; under Sustained Hits N each critical also
// spawns N plain bonus hits that roll to wound like any other hit.
// The two streams draw on the same critical mass but never mix: a
// bonus hit is never Lethal.
func hitStage(w WeaponProfile, d DefenderProfile, m ModifierSet) hitOutcome {
	attacks := attackCount(w, d, m)
	sustained, _ := w.Rules.Sustained()
	lethal := w.Rules.Lethal()

	var ch chance
	if w.Rules.Torrent() {
		ch = autoHit()
	} else {
		eff := w.Skill - netHitModifier(w, m)
		ch = d6Chance(eff, 6, m.RerollHits)
	}

	maxN := len(attacks) - 1
	maxRolls := maxN * (1 + sustained)
	maxAuto := 0
	if lethal {
		maxAuto = maxN
	}
	out := newJoint(maxRolls, maxAuto)

	// one running trinomial serves every attack count in the mixture
	tri := newJoint(maxN, maxN)
	tri[0][0] = 1
	for n := 0; n <= maxN; n++ {
		if pn := attacks[n]; pn > 0 {
			for a := 0; a <= n; a++ {
				for b := 0; a+b <= n; b++ {
					p := tri[a][b]
					if p == 0 {
						continue
					}
					rolls := a + sustained*b
					auto := 0
					if lethal {
						auto = b
					} else {
						rolls += b
					}
					out[rolls][auto] += pn * p
				}
			}
		}
		if n < maxN {
			tri = trinomialStep(tri, ch)
		}
	}

	meanA := attacks.Mean()
	ho := hitOutcome{
		rolls:      out.normalize(),
		expAttacks: meanA,
		expHits:    meanA * (ch.success() + float64(sustained)*ch.crit),
		expBonus:   meanA * ch.crit * float64(sustained),
	}
	if lethal {
		ho.expAuto = meanA * ch.crit
	}
	return ho
}
