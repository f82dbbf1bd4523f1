package mathhammer

import "fmt"

// RerollPolicy selects which dice of a roll may be rolled again.
type RerollPolicy int

const (
	RerollNone RerollPolicy = iota
	RerollOnes
	RerollAll
)

func (p RerollPolicy) String() string {
	switch p {
	case RerollNone:
		return "none"
	case RerollOnes:
		return "ones"
	case RerollAll:
		return "all"
	}
	return fmt.Sprintf("RerollPolicy(%d)", int(p))
}

// ParseRerollPolicy reads the wire form used by the calculator API.
func ParseRerollPolicy(s string) (RerollPolicy, error) {
	switch s {
	case "", "none":
		return RerollNone, nil
	case "ones":
		return RerollOnes, nil
	case "all", "failures":
		return RerollAll, nil
	}
	return RerollNone, fmt.Errorf("unknown reroll policy %q", s)
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// rerollAdjusted lifts a per-trial d6 success probability by the reroll
// policy: rerolling ones adds p/6 (a failing 1 shows up one time in
// six), rerolling all failures adds (1-p)p. The result is clamped to
// [0,1].
func rerollAdjusted(p float64, policy RerollPolicy) float64 {
	switch policy {
	case RerollOnes:
		p += p / 6
	case RerollAll:
		p += (1 - p) * p
	}
	return clamp01(p)
}

// Successes returns the distribution of successes over n independent
// d6 trials, each succeeding with probability p, under a reroll
// policy. n = 0 yields {P[0]=1}. The primitive knows nothing about
// hits, wounds or criticals; callers layer game rules on top.
func Successes(n int, p float64, policy RerollPolicy) Dist {
	return binomial(n, rerollAdjusted(clamp01(p), policy))
}

// binomial builds the distribution of successes over n trials with
// probability p, one trial at a time. The incremental form stays exact
// for every n this engine sees without touching binomial coefficients.
func binomial(n int, p float64) Dist {
	d := make(Dist, n+1)
	d[0] = 1
	q := 1 - p
	for i := 0; i < n; i++ {
		for k := i + 1; k >= 1; k-- {
			d[k] = d[k]*q + d[k-1]*p
		}
		d[0] *= q
	}
	return d
}

// chance is the outcome split of a single d6 roll: probability of a
// plain success and of a critical success. The two never overlap and
// plain+crit <= 1.
type chance struct {
	plain float64
	crit  float64
}

func (c chance) success() float64 { return c.plain + c.crit }

// d6Chance evaluates one d6 roll against an effective target number,
// with criticals read off the unmodified die. A face succeeds when it
// meets the effective target or is a natural 6; a success is critical
// when the face meets critTarget. Reroll policies re-run failed dice
// once, and the second roll splits plain/critical the same way, so a
// reroll can still produce a critical.
//
// effTarget arrives after modifier capping and may sit outside 2..6:
// at 1 or below every face succeeds, at 7 only the natural 6 does.
func d6Chance(effTarget, critTarget int, policy RerollPolicy) chance {
	var succ, crit int
	for face := 1; face <= 6; face++ {
		if face != 6 && face < effTarget {
			continue
		}
		succ++
		if face >= critTarget {
			crit++
		}
	}
	p := float64(succ) / 6
	c := float64(crit) / 6

	var trigger float64
	switch policy {
	case RerollOnes:
		// only a natural 1 that failed is picked up again
		if effTarget > 1 {
			trigger = 1.0 / 6
		}
	case RerollAll:
		trigger = 1 - p
	}
	p += trigger * p
	c += trigger * c
	return chance{plain: p - c, crit: c}
}

// autoHit is the torrent outcome: every attack lands, none critically.
func autoHit() chance { return chance{plain: 1} }

// trinomialStep folds one more die into a joint (plain, crit) count
// distribution. The caller sizes the joint so no count can run off the
// end.
func trinomialStep(cur joint, ch chance) joint {
	rows, cols := len(cur), len(cur[0])
	next := newJoint(rows-1, cols-1)
	miss := 1 - ch.plain - ch.crit
	if miss < 0 {
		miss = 0
	}
	for a, row := range cur {
		for b, p := range row {
			if p == 0 {
				continue
			}
			next[a][b] += p * miss
			if a+1 < rows {
				next[a+1][b] += p * ch.plain
			}
			if b+1 < cols {
				next[a][b+1] += p * ch.crit
			}
		}
	}
	return next
}

// trinomial returns the joint distribution of (plain, crit) successes
// over n dice sharing the same per-die chance.
func trinomial(n int, ch chance) joint {
	cur := newJoint(n, n)
	cur[0][0] = 1
	for die := 0; die < n; die++ {
		cur = trinomialStep(cur, ch)
	}
	return cur
}
