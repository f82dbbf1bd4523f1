package mathhammer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boltRifle() WeaponProfile {
	return WeaponProfile{
		Name:     "Bolt rifle",
		Attacks:  FlatValue(2),
		Skill:    3,
		Strength: 4,
		AP:       1,
		Damage:   FlatValue(1),
	}
}

func guardsmen() DefenderProfile {
	return DefenderProfile{
		Name:      "Infantry Squad",
		Toughness: 3,
		Save:      5,
		Wounds:    1,
		Models:    10,
		Keywords:  []string{"Infantry"},
	}
}

func TestValidateAcceptsSaneProfiles(t *testing.T) {
	assert.NoError(t, Validate(boltRifle(), guardsmen(), ModifierSet{}))
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name  string
		w     func(*WeaponProfile)
		d     func(*DefenderProfile)
		m     func(*ModifierSet)
		field string
	}{
		{"negative attacks", func(w *WeaponProfile) { w.Attacks = FlatValue(-1) }, nil, nil, "attacks"},
		{"skill zero", func(w *WeaponProfile) { w.Skill = 0 }, nil, nil, "skill"},
		{"skill seven", func(w *WeaponProfile) { w.Skill = 7 }, nil, nil, "skill"},
		{"strength zero", func(w *WeaponProfile) { w.Strength = 0 }, nil, nil, "strength"},
		{"negative ap", func(w *WeaponProfile) { w.AP = -1 }, nil, nil, "ap"},
		{"zero damage", func(w *WeaponProfile) { w.Damage = FlatValue(0) }, nil, nil, "damage"},
		{"toughness zero", nil, func(d *DefenderProfile) { d.Toughness = 0 }, nil, "toughness"},
		{"save one", nil, func(d *DefenderProfile) { d.Save = 1 }, nil, "save"},
		{"save eight", nil, func(d *DefenderProfile) { d.Save = 8 }, nil, "save"},
		{"invuln seven", nil, func(d *DefenderProfile) { d.Invuln = 7 }, nil, "invuln"},
		{"wounds zero", nil, func(d *DefenderProfile) { d.Wounds = 0 }, nil, "wounds"},
		{"models zero", nil, func(d *DefenderProfile) { d.Models = 0 }, nil, "models"},
		{"fnp one", nil, func(d *DefenderProfile) { d.FeelNoPain = 1 }, nil, "feelNoPain"},
		{"negative reduction", nil, func(d *DefenderProfile) { d.ReduceDamage = -1 }, nil, "reduceDamage"},
		{"wound override one", nil, nil, func(m *ModifierSet) { m.WoundMin = 1 }, "woundMin"},
		{"bad reroll", nil, nil, func(m *ModifierSet) { m.RerollWounds = RerollPolicy(9) }, "rerollWounds"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, d, m := boltRifle(), guardsmen(), ModifierSet{}
			if c.w != nil {
				c.w(&w)
			}
			if c.d != nil {
				c.d(&d)
			}
			if c.m != nil {
				c.m(&m)
			}
			err := Validate(w, d, m)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, c.field, verr.Field)
		})
	}
}

func TestValidateTorrentSkipsSkill(t *testing.T) {
	w := boltRifle()
	w.Skill = 0
	w.Rules = MustRules(Torrent{})
	assert.NoError(t, Validate(w, guardsmen(), ModifierSet{}))
}

func TestValidateSaveSevenMeansNoSave(t *testing.T) {
	d := guardsmen()
	d.Save = 7
	assert.NoError(t, Validate(boltRifle(), d, ModifierSet{}))
}

func TestNetModifierCapping(t *testing.T) {
	w := boltRifle()

	assert.Equal(t, 1, netHitModifier(w, ModifierSet{HitMod: 3}))
	assert.Equal(t, -1, netHitModifier(w, ModifierSet{HitMod: -4}))
	assert.Equal(t, 0, netHitModifier(w, ModifierSet{HitMod: 1, Stealth: true}))
	assert.Equal(t, -1, netHitModifier(w, ModifierSet{Stealth: true}))

	heavy := w
	heavy.Rules = MustRules(Heavy{})
	assert.Equal(t, 1, netHitModifier(heavy, ModifierSet{RemainedStationary: true}))
	assert.Equal(t, 0, netHitModifier(heavy, ModifierSet{}), "heavy without standing still does nothing")
	assert.Equal(t, 1, netHitModifier(heavy, ModifierSet{HitMod: 1, RemainedStationary: true}), "stacked sources still cap at +1")

	lance := w
	lance.Rules = MustRules(Lance{})
	assert.Equal(t, 1, netWoundModifier(lance, ModifierSet{Charged: true}))
	assert.Equal(t, 0, netWoundModifier(lance, ModifierSet{}))
	assert.Equal(t, -1, netWoundModifier(w, ModifierSet{WoundMod: -2}))
}

func TestHasKeyword(t *testing.T) {
	d := guardsmen()
	assert.True(t, d.HasKeyword("Infantry"))
	assert.True(t, d.HasKeyword("infantry"))
	assert.True(t, d.HasKeyword(" INFANTRY "))
	assert.False(t, d.HasKeyword("Vehicle"))
}
