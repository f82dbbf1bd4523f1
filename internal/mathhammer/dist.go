package mathhammer

// distTolerance is the maximum drift from 1.0 a finished distribution
// may carry before it is renormalized.
const distTolerance = 1e-6

// Dist is a discrete probability distribution over counts. Index i
// holds the probability of exactly i occurrences (hits, wounds, damage
// points or kills). Entries are non-negative and sum to 1 within
// distTolerance.
type Dist []float64

// point returns the distribution concentrated entirely at n.
func point(n int) Dist {
	d := make(Dist, n+1)
	d[n] = 1
	return d
}

// Sum returns the total probability mass.
func (d Dist) Sum() float64 {
	var s float64
	for _, p := range d {
		s += p
	}
	return s
}

// Mean returns the expected value.
func (d Dist) Mean() float64 {
	var m float64
	for i, p := range d {
		m += float64(i) * p
	}
	return m
}

// Variance returns the variance of the distribution.
func (d Dist) Variance() float64 {
	mean := d.Mean()
	var sq float64
	for i, p := range d {
		sq += float64(i) * float64(i) * p
	}
	v := sq - mean*mean
	if v < 0 {
		// degenerate distributions can land a hair below zero
		v = 0
	}
	return v
}

// AtLeast returns the cumulative tail array a where a[k] = P(X >= k).
// a[0] is 1 for a normalized distribution and the array is
// non-increasing.
func (d Dist) AtLeast() []float64 {
	out := make([]float64, len(d))
	var tail float64
	for i := len(d) - 1; i >= 0; i-- {
		tail += d[i]
		if tail > 1 {
			tail = 1
		}
		out[i] = tail
	}
	return out
}

// Normalize rescales the distribution in place when its mass has
// drifted from 1 beyond distTolerance, and returns it. Distributions
// with no mass are returned unchanged.
func (d Dist) Normalize() Dist {
	s := d.Sum()
	if s == 0 {
		return d
	}
	if s > 1-distTolerance && s < 1+distTolerance {
		return d
	}
	for i := range d {
		d[i] /= s
	}
	return d
}

// Convolve returns the distribution of X+Y for independent X ~ d and
// Y ~ o.
func (d Dist) Convolve(o Dist) Dist {
	out := make(Dist, len(d)+len(o)-1)
	for i, p := range d {
		if p == 0 {
			continue
		}
		for j, q := range o {
			if q == 0 {
				continue
			}
			out[i+j] += p * q
		}
	}
	return out
}

// shift returns the distribution of X+k.
func (d Dist) shift(k int) Dist {
	if k <= 0 {
		return d
	}
	out := make(Dist, len(d)+k)
	copy(out[k:], d)
	return out
}

// trim drops trailing near-zero entries, keeping index 0.
func (d Dist) trim() Dist {
	n := len(d)
	for n > 1 && d[n-1] < 1e-15 {
		n--
	}
	return d[:n]
}

// joint is a two dimensional probability mass function over a pair of
// counts: j[a][b] = P(A=a, B=b). Every stage boundary that has to carry
// two correlated counts at once (to-wound rolls alongside auto-wounds,
// savable wounds alongside mortal wounds) moves one of these.
type joint [][]float64

func newJoint(aMax, bMax int) joint {
	j := make(joint, aMax+1)
	for a := range j {
		j[a] = make([]float64, bMax+1)
	}
	return j
}

// first returns the marginal distribution of A.
func (j joint) first() Dist {
	d := make(Dist, len(j))
	for a, row := range j {
		for _, p := range row {
			d[a] += p
		}
	}
	return d
}

// second returns the marginal distribution of B.
func (j joint) second() Dist {
	if len(j) == 0 {
		return Dist{1}
	}
	d := make(Dist, len(j[0]))
	for _, row := range j {
		for b, p := range row {
			d[b] += p
		}
	}
	return d
}

// collapse returns the distribution of A+B.
func (j joint) collapse() Dist {
	if len(j) == 0 {
		return Dist{1}
	}
	d := make(Dist, len(j)+len(j[0])-1)
	for a, row := range j {
		for b, p := range row {
			d[a+b] += p
		}
	}
	return d
}

func (j joint) sum() float64 {
	var s float64
	for _, row := range j {
		for _, p := range row {
			s += p
		}
	}
	return s
}

// normalize rescales the joint mass to 1 when drift exceeds
// distTolerance.
func (j joint) normalize() joint {
	s := j.sum()
	if s == 0 || (s > 1-distTolerance && s < 1+distTolerance) {
		return j
	}
	for _, row := range j {
		for b := range row {
			row[b] /= s
		}
	}
	return j
}
