package mathhammer

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var diceRe = regexp.MustCompile(`(?i)^\s*(\d+)?\s*d\s*(\d+)(\s*([+\-x*])\s*(\d+))?\s*$`)

// DiceExpr is a weapon characteristic that is either a flat value or a
// dice expression: N, NdM, NdM+K, NdM-K, NdMxK. Attacks and damage
// both use it. The zero value is a flat 0.
type DiceExpr struct {
	Count int // number of dice; 0 means the value is flat
	Sides int
	Op    byte // '+', '-' or 'x'; 0 when absent
	Mod   int
	Flat  int // used when Count == 0
}

// FlatValue wraps a plain integer characteristic.
func FlatValue(n int) DiceExpr { return DiceExpr{Flat: n} }

// ParseDiceExpr reads the datasheet form of a characteristic. Plain
// integers, D6/D3 shapes and +/-/x modifiers are accepted; dice
// results modified below 1 count as 1.
func ParseDiceExpr(expr string) (DiceExpr, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return DiceExpr{}, fmt.Errorf("empty dice expression")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return DiceExpr{Flat: n}, nil
	}
	m := diceRe.FindStringSubmatch(s)
	if m == nil {
		return DiceExpr{}, fmt.Errorf("bad dice expression %q", expr)
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if count < 1 || sides < 2 {
		return DiceExpr{}, fmt.Errorf("bad dice expression %q", expr)
	}
	d := DiceExpr{Count: count, Sides: sides}
	if m[3] != "" {
		op := m[4]
		k, _ := strconv.Atoi(m[5])
		if op == "*" {
			op = "x"
		}
		d.Op = op[0]
		d.Mod = k
	}
	return d, nil
}

func (d DiceExpr) String() string {
	if d.Count == 0 {
		return strconv.Itoa(d.Flat)
	}
	s := fmt.Sprintf("%dD%d", d.Count, d.Sides)
	if d.Count == 1 {
		s = fmt.Sprintf("D%d", d.Sides)
	}
	switch d.Op {
	case '+':
		s += fmt.Sprintf("+%d", d.Mod)
	case '-':
		s += fmt.Sprintf("-%d", d.Mod)
	case 'x':
		s += fmt.Sprintf("x%d", d.Mod)
	}
	return s
}

// applyOp finishes one rolled-out sum. Dice expressions never resolve
// below 1; flat values pass through untouched elsewhere.
func (d DiceExpr) applyOp(total int) int {
	switch d.Op {
	case '+':
		total += d.Mod
	case '-':
		total -= d.Mod
	case 'x':
		total *= d.Mod
	}
	if total < 1 {
		total = 1
	}
	return total
}

// Min returns the lowest value the expression can resolve to.
func (d DiceExpr) Min() int {
	if d.Count == 0 {
		return d.Flat
	}
	return d.applyOp(d.Count)
}

// Max returns the highest value the expression can resolve to.
func (d DiceExpr) Max() int {
	if d.Count == 0 {
		return d.Flat
	}
	return d.applyOp(d.Count * d.Sides)
}

// Mean returns the expected value of the expression.
func (d DiceExpr) Mean() float64 { return d.PMF().Mean() }

// PMF expands the expression into its exact distribution.
func (d DiceExpr) PMF() Dist {
	return d.pmf(RerollNone)
}

// pmf expands the expression with a per-die reroll policy applied.
// Rerolling ones re-rolls each die showing a 1 once; rerolling all
// re-rolls each die landing under its average once, keeping the second
// result either way. Flat values ignore the policy.
func (d DiceExpr) pmf(policy RerollPolicy) Dist {
	if d.Count == 0 {
		if d.Flat < 0 {
			return Dist{1}
		}
		return point(d.Flat)
	}
	die := d.diePMF(policy)
	sum := Dist{1}
	for i := 0; i < d.Count; i++ {
		sum = sum.Convolve(die)
	}
	out := make(Dist, d.Max()+1)
	for v, p := range sum {
		if p == 0 {
			continue
		}
		out[d.applyOp(v)] += p
	}
	return out
}

// diePMF is the single-die distribution under the reroll policy.
func (d DiceExpr) diePMF(policy RerollPolicy) Dist {
	s := d.Sides
	base := 1 / float64(s)
	rerolled := func(face int) bool {
		switch policy {
		case RerollOnes:
			return face == 1
		case RerollAll:
			return float64(face) < (float64(s)+1)/2
		}
		return false
	}
	var trigger float64
	for f := 1; f <= s; f++ {
		if rerolled(f) {
			trigger += base
		}
	}
	die := make(Dist, s+1)
	for f := 1; f <= s; f++ {
		if !rerolled(f) {
			die[f] += base
		}
		die[f] += trigger * base
	}
	return die
}

// Roll resolves the expression once.
func (d DiceExpr) Roll(r *rand.Rand) int {
	return d.roll(r, RerollNone)
}

func (d DiceExpr) roll(r *rand.Rand, policy RerollPolicy) int {
	if d.Count == 0 {
		return d.Flat
	}
	total := 0
	for i := 0; i < d.Count; i++ {
		v := 1 + r.Intn(d.Sides)
		switch policy {
		case RerollOnes:
			if v == 1 {
				v = 1 + r.Intn(d.Sides)
			}
		case RerollAll:
			if float64(v) < (float64(d.Sides)+1)/2 {
				v = 1 + r.Intn(d.Sides)
			}
		}
		total += v
	}
	return d.applyOp(total)
}

func newRNG() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }
