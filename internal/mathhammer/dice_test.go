package mathhammer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiceExpr(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"3", "3", true},
		{" 12 ", "12", true},
		{"0", "0", true},
		{"D6", "D6", true},
		{"d3", "D3", true},
		{"2D6", "2D6", true},
		{"2d6+1", "2D6+1", true},
		{"D6-1", "D6-1", true},
		{"D3x2", "D3x2", true},
		{"d3*2", "D3x2", true},
		{" 1 d 6 + 2 ", "D6+2", true},
		{"", "", false},
		{"D", "", false},
		{"6D", "", false},
		{"two", "", false},
		{"D1", "", false},
		{"0d6", "", false},
	}
	for _, c := range cases {
		got, err := ParseDiceExpr(c.in)
		if !c.ok {
			assert.Error(t, err, "input %q", c.in)
			continue
		}
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got.String(), "input %q", c.in)
	}
}

func TestDiceExprBounds(t *testing.T) {
	d6, err := ParseDiceExpr("D6")
	require.NoError(t, err)
	assert.Equal(t, 1, d6.Min())
	assert.Equal(t, 6, d6.Max())
	assert.InDelta(t, 3.5, d6.Mean(), 1e-12)

	two, err := ParseDiceExpr("2D6+1")
	require.NoError(t, err)
	assert.Equal(t, 3, two.Min())
	assert.Equal(t, 13, two.Max())
	assert.InDelta(t, 8.0, two.Mean(), 1e-12)

	assert.Equal(t, 4, FlatValue(4).Min())
	assert.Equal(t, 4, FlatValue(4).Max())
	assert.InDelta(t, 4.0, FlatValue(4).Mean(), 1e-12)
}

func TestDiceExprPMF(t *testing.T) {
	d3plus1, err := ParseDiceExpr("D3+1")
	require.NoError(t, err)
	pmf := d3plus1.PMF()
	require.Len(t, pmf, 5)
	for v := 2; v <= 4; v++ {
		assert.InDelta(t, 1.0/3, pmf[v], 1e-12)
	}
	assert.InDelta(t, 3.0, pmf.Mean(), 1e-12)

	// a modifier below 1 counts as 1
	minus, err := ParseDiceExpr("D6-1")
	require.NoError(t, err)
	p := minus.PMF()
	assert.InDelta(t, 2.0/6, p[1], 1e-12) // rolls of 1 and 2 both land on 1
	assert.InDelta(t, 16.0/6, p.Mean(), 1e-12)
	assert.Equal(t, 1, minus.Min())

	// multiplied dice leave gaps
	doubled, err := ParseDiceExpr("D3x2")
	require.NoError(t, err)
	dp := doubled.PMF()
	require.Len(t, dp, 7)
	assert.Equal(t, 0.0, dp[1])
	assert.InDelta(t, 1.0/3, dp[2], 1e-12)
	assert.InDelta(t, 1.0/3, dp[4], 1e-12)
	assert.InDelta(t, 1.0/3, dp[6], 1e-12)

	flat := FlatValue(2).PMF()
	assert.Equal(t, point(2), flat)
}

func TestDiceExprRerollPMF(t *testing.T) {
	d6, err := ParseDiceExpr("D6")
	require.NoError(t, err)

	// rerolling ones: P(1) becomes 1/36, everything else 7/36
	ones := d6.pmf(RerollOnes)
	assert.InDelta(t, 1.0/36, ones[1], 1e-12)
	assert.InDelta(t, 7.0/36, ones[4], 1e-12)
	assert.InDelta(t, 141.0/36, ones.Mean(), 1e-12)
	assert.InDelta(t, 1.0, ones.Sum(), 1e-12)

	// rerolling low dice: faces 1-3 trigger, keep the second result
	all := d6.pmf(RerollAll)
	assert.InDelta(t, 0.5/6, all[2], 1e-12)
	assert.InDelta(t, 1.5/6, all[5], 1e-12)
	assert.InDelta(t, 1.0, all.Sum(), 1e-12)
	assert.Greater(t, all.Mean(), d6.Mean())

	// flat damage ignores the policy
	assert.Equal(t, point(3), FlatValue(3).pmf(RerollAll))
}

func TestDiceExprRoll(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	expr, err := ParseDiceExpr("2D6+1")
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		v := expr.Roll(rng)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 13)
	}
	for i := 0; i < 200; i++ {
		v := expr.roll(rng, RerollOnes)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 13)
	}
	assert.Equal(t, 5, FlatValue(5).Roll(rng))
}
