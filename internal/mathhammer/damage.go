package mathhammer

// damageOutcome is the damage stage result. total is the distribution
// of damage points dealt; instances and perInstance keep the
// per-instance structure the kill composer needs, because damage lost
// to overkill depends on how the points arrived, not just their sum.
type damageOutcome struct {
	total       Dist
	instances   Dist // count of damaging instances, saves failed plus mortals
	perInstance Dist // damage of one instance after mitigation and Feel No Pain
}

// mitigate applies the defender's damage modifiers to one instance:
// halve first, then the flat reduction, never dropping a damaging
// instance below 1.
func mitigate(v int, d DefenderProfile) int {
	if v <= 0 {
		return 0
	}
	if d.HalveDamage {
		v = (v + 1) / 2
	}
	v -= d.ReduceDamage
	if v < 1 {
		v = 1
	}
	return v
}

// damageStage turns failed saves and mortal wounds into damage points.
// Both streams inflict the weapon's damage characteristic and both
// face the same per-instance Feel No Pain roll, which negates an
// instance outright or not at all, so they merge into a single
// instance count here.
func damageStage(prev saveOutcome, w WeaponProfile, d DefenderProfile, m ModifierSet) damageOutcome {
	instances := prev.failed.collapse()

	raw := w.Damage.pmf(m.RerollDamage)
	mit := make(Dist, len(raw))
	for v, p := range raw {
		if p == 0 {
			continue
		}
		mit[mitigate(v, d)] += p
	}

	per := mit
	if d.FeelNoPain > 0 {
		negate := float64(7-d.FeelNoPain) / 6
		per = make(Dist, len(mit))
		per[0] += negate
		for v, p := range mit {
			per[v] += (1 - negate) * p
		}
	}
	per = per.trim()

	total := make(Dist, (len(instances)-1)*(len(per)-1)+1)
	acc := Dist{1}
	for k, pk := range instances {
		if pk > 0 {
			for v, pv := range acc {
				total[v] += pk * pv
			}
		}
		if k < len(instances)-1 {
			acc = acc.Convolve(per)
		}
	}

	return damageOutcome{
		total:       total.trim().Normalize(),
		instances:   instances,
		perInstance: per,
	}
}
