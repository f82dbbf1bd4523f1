package mathhammer

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateStructure(t *testing.T) {
	w := WeaponProfile{
		Attacks:  mustExpr(t, "2D6"),
		Skill:    3,
		Strength: 4,
		AP:       1,
		Damage:   mustExpr(t, "D3"),
		Rules:    MustRules(LethalHits{}, SustainedHits{Count: 1}, DevastatingWounds{}),
	}
	d := DefenderProfile{Toughness: 4, Save: 4, Wounds: 2, Models: 5, FeelNoPain: 6}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		res, err := Simulate(w, d, ModifierSet{RerollHits: RerollOnes}, rng)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.Attacks, 2)
		assert.LessOrEqual(t, res.Attacks, 12)
		assert.LessOrEqual(t, res.Hits, 2*res.Attacks)
		assert.LessOrEqual(t, res.Wounds+res.MortalWounds, res.Hits+res.AutoWounds)
		assert.LessOrEqual(t, res.FailedSaves, res.Wounds)
		assert.LessOrEqual(t, res.Kills, d.Models)
		assert.GreaterOrEqual(t, res.Damage, res.Kills)
		assert.NotEmpty(t, res.Logs)
	}
}

func TestSimulateLogNarration(t *testing.T) {
	w := WeaponProfile{Attacks: FlatValue(4), Skill: 3, Strength: 4, Damage: FlatValue(1), Rules: MustRules(LethalHits{})}
	d := DefenderProfile{Toughness: 4, Save: 4, Wounds: 1, Models: 5}
	res, err := Simulate(w, d, ModifierSet{}, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	joined := strings.Join(res.Logs, "\n")
	assert.Contains(t, joined, "Weapon rules: [Lethal Hits]")
	assert.Contains(t, joined, "Attacks A=4 -> 4")
	assert.Contains(t, joined, "To Hit: needs 3+")
	assert.Contains(t, joined, "To Wound base: S 4 vs T 4 -> needs 4+")
	assert.Contains(t, joined, "Hits total:")
	assert.Contains(t, joined, "models slain:")
}

func TestSimulateTorrentAlwaysHits(t *testing.T) {
	w := WeaponProfile{Attacks: mustExpr(t, "D6"), Strength: 6, Damage: FlatValue(1), Rules: MustRules(Torrent{})}
	d := DefenderProfile{Toughness: 3, Save: 5, Wounds: 1, Models: 10}
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		res, err := Simulate(w, d, ModifierSet{}, rng)
		require.NoError(t, err)
		assert.Equal(t, res.Attacks, res.Hits)
	}
}

func TestSimulateRejectsInvalidInput(t *testing.T) {
	w := WeaponProfile{Attacks: FlatValue(1), Skill: 9, Strength: 4, Damage: FlatValue(1)}
	d := DefenderProfile{Toughness: 4, Save: 4, Wounds: 1, Models: 5}
	res, err := Simulate(w, d, ModifierSet{}, rand.New(rand.NewSource(1)))
	assert.Nil(t, res)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

// runTrials averages simulated volleys against the analytic result.
// Tolerances sit far outside the sampling noise at this trial count.
func runTrials(t *testing.T, w WeaponProfile, d DefenderProfile, m ModifierSet, seed int64) (damage, kills, hits, mortals, killNone float64) {
	t.Helper()
	const trials = 20000
	rng := rand.New(rand.NewSource(seed))
	var sumD, sumK, sumH, sumM, none int
	for i := 0; i < trials; i++ {
		res, err := Simulate(w, d, m, rng)
		require.NoError(t, err)
		sumD += res.Damage
		sumK += res.Kills
		sumH += res.Hits
		sumM += res.MortalWounds
		if res.Kills == 0 {
			none++
		}
	}
	n := float64(trials)
	return float64(sumD) / n, float64(sumK) / n, float64(sumH) / n, float64(sumM) / n, float64(none) / n
}

func TestSimulateAgreesWithCalculate(t *testing.T) {
	w := WeaponProfile{
		Attacks:  mustExpr(t, "D6"),
		Skill:    3,
		Strength: 4,
		AP:       1,
		Damage:   FlatValue(2),
		Rules:    MustRules(LethalHits{}, SustainedHits{Count: 1}, DevastatingWounds{}),
	}
	d := DefenderProfile{Toughness: 4, Save: 4, Invuln: 6, Wounds: 2, Models: 5, FeelNoPain: 6}
	m := ModifierSet{RerollHits: RerollOnes, RerollWounds: RerollOnes}

	r := calc(t, w, d, m)
	damage, kills, hits, mortals, killNone := runTrials(t, w, d, m, 42)

	assert.InDelta(t, r.ExpectedDamage, damage, 0.3)
	assert.InDelta(t, r.ExpectedKills, kills, 0.1)
	assert.InDelta(t, r.Breakdown.Hits, hits, 0.15)
	assert.InDelta(t, r.Breakdown.MortalWounds, mortals, 0.1)
	assert.InDelta(t, r.Kills[0], killNone, 0.025)
}

func TestSimulateAgreesWithCalculateTorrentAnti(t *testing.T) {
	w := WeaponProfile{
		Attacks:  mustExpr(t, "D3+3"),
		Strength: 5,
		AP:       1,
		Damage:   mustExpr(t, "D3"),
		Rules: MustRules(Torrent{}, TwinLinked{}, Blast{},
			DevastatingWounds{}, AntiKeyword{Keyword: "Infantry", Threshold: 5}),
	}
	d := DefenderProfile{
		Toughness: 5, Save: 3, Wounds: 3, Models: 10,
		FeelNoPain: 5, Keywords: []string{"Infantry"},
	}
	m := ModifierSet{Cover: true}

	r := calc(t, w, d, m)
	damage, kills, _, mortals, killNone := runTrials(t, w, d, m, 99)

	assert.InDelta(t, r.ExpectedDamage, damage, 0.3)
	assert.InDelta(t, r.ExpectedKills, kills, 0.1)
	assert.InDelta(t, r.Breakdown.MortalWounds, mortals, 0.1)
	assert.InDelta(t, r.Kills[0], killNone, 0.025)
}
