package datasheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mordian/w40k-companion/internal/mathhammer"
	"github.com/mordian/w40k-companion/internal/models"
)

// writeFixtures lays out a miniature export set in a temp dir, shaped
// like the real pipe-separated files.
func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Factions.csv": `faction_id|name|link
SM|Space Marines|https://example.test/space-marines
ORK|Orks|https://example.test/orks
`,
		"Datasheets.csv": `datasheet_id|name|faction_id|source_id|legend|role|loadout|transport|virtual|leader_head|leader_footer|damaged_w|damaged_description|link
000000001|Intercessor Squad|SM|||Battleline||||||||https://example.test/intercessors
000000002|Redemptor Dreadnought|SM|||Vehicle||||||||https://example.test/redemptor
000000003|Boyz|ORK|||Battleline||||||||https://example.test/boyz
`,
		"Datasheets_wargear.csv": `datasheet_id|line|line_in_wargear|dice|name|description|range|type|A|BS_WS|S|AP|D
000000001|2|||Astartes grenade launcher|<p>Frag and krak shells.</p>|24"|Ranged, Blast|D3|3+|4|0|1
000000001|1|||Bolt rifle|<p>Standard issue.</p>|24"|Ranged|2|3+|4|-1|1
000000002|1|||Macro plasma incinerator|<p>Supercharged plasma.</p>|36"|Ranged, Blast|D6+1|3+|9|-4|3
000000002|2|||Redemptor fist|-|Melee|Melee|5|3+|12|-2|3
000000003|1|||Slugga|-|12"|Ranged, Pistol|1|5+|4|0|1
000000003|2|||Choppa|-|Melee|Melee|3|3+|4|-1|1
000000003|3|||Twin shoota|<p>Twin-linked. Sustained Hits 1.</p>|18"|Ranged, Rapid Fire 2|2|5+|4|0|1
`,
		"Datasheets_models.csv": `datasheet_id|line|name|M|T|Sv|inv_sv|inv_sv_descr|W|Ld|OC
000000001|1|Intercessor|6"|4|3+|||2|6+|2
000000002|1|Redemptor Dreadnought|8"|10|2+|5+|This model has a 5+ invulnerable save.|12|6+|4
000000003|1|Boy|6"|5|6+|||1|7+|2
000000003|2|Boss Nob|6"|5|6+|||2|7+|2
`,
		"Datasheets_keywords.csv": `datasheet_id|keyword|model|is_faction_keyword
000000001|Infantry||false
000000001|Imperium||false
000000001|Adeptus Astartes||true
000000002|Vehicle||false
000000002|Walker||false
000000003|Infantry||false
000000003|Mob||false
000000003|Orks||true
`,
		"Datasheets_abilities.csv": `datasheet_id|line|ability_id|model|name|description|type|parameter
000000001|1|||Oath of Moment|<p>You can re-roll one Hit roll each phase.</p>|Core|
000000002|1|||Duty Eternal|<p>Each time an attack is allocated to this model, reduce the Damage characteristic of that attack by 1.</p>|Datasheet|
000000003|1|||Breakin' Heads|<p>Models in this unit have a 6+ Feel No Pain.</p>|Datasheet|
`,
		"Datasheets_models_cost.csv": `datasheet_id|line|description|cost
000000001|1|5 models|80
000000001|2|10 models|160
000000002|1|1 model|210
000000003|1|10 models|85
000000003|2|20 models|170
`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(writeFixtures(t))
	require.NoError(t, err)
	return s
}

func TestNewIndexesExports(t *testing.T) {
	s := mustStore(t)

	require.Len(t, s.FactionsList, 2)
	assert.Equal(t, "Orks", s.FactionsList[0].Name)
	assert.Equal(t, "Space Marines", s.FactionsBySlug["space-marines"].Name)
	assert.Equal(t, "Space Marines", s.FactionsBySlug["sm"].Name)

	units := s.UnitsByFac["SM"]
	require.Len(t, units, 2)
	assert.Equal(t, "Intercessor Squad", units[0].Name)

	u := s.UnitsByID["000000001"]
	assert.Equal(t, "4", u.T)
	assert.Equal(t, "2", u.W)
	assert.Equal(t, "80", u.Points)
	assert.Equal(t, "https://example.test/intercessors", u.Link)
}

func TestNewMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestWargearSortedAndScrubbed(t *testing.T) {
	s := mustStore(t)

	gear := s.WargearByDS["000000001"]
	require.Len(t, gear, 2)
	// file lists the grenade launcher first, line order wins
	assert.Equal(t, "Bolt rifle", gear[0].Name)
	assert.Equal(t, "Standard issue.", gear[0].Description)
	assert.Equal(t, `24"`, gear[0].Range)
}

func TestWeaponProfiles(t *testing.T) {
	s := mustStore(t)

	ws := s.WeaponProfiles("000000001")
	require.Len(t, ws, 2)
	assert.Equal(t, "Bolt rifle", ws[0].Name)
	assert.Equal(t, models.DiceValue("2"), ws[0].Attacks)
	assert.Equal(t, 3, ws[0].Skill)
	assert.Equal(t, 4, ws[0].Strength)
	assert.Equal(t, 1, ws[0].AP)
	assert.False(t, ws[0].Blast)
	assert.True(t, ws[1].Blast)
	assert.Equal(t, models.DiceValue("D3"), ws[1].Attacks)

	ork := s.WeaponProfiles("000000003")
	require.Len(t, ork, 3)
	tw := ork[2]
	assert.Equal(t, "Twin shoota", tw.Name)
	assert.True(t, tw.TwinLinked)
	assert.Equal(t, 1, tw.SustainedHits)
	assert.Equal(t, 2, tw.RapidFire)
	assert.Equal(t, 5, tw.Skill)
}

func TestDefender(t *testing.T) {
	s := mustStore(t)

	d, ok := s.Defender("000000002", 0)
	require.True(t, ok)
	assert.Equal(t, 10, d.Toughness)
	assert.Equal(t, 2, d.Save)
	assert.Equal(t, 5, d.Invuln)
	assert.Equal(t, 12, d.Wounds)
	assert.Equal(t, 1, d.Models)
	assert.Equal(t, 1, d.ReduceDamage)
	assert.Contains(t, d.Keywords, "Vehicle")

	boyz, ok := s.Defender("000000003", 0)
	require.True(t, ok)
	assert.Equal(t, 5, boyz.Toughness)
	assert.Equal(t, 6, boyz.Save)
	assert.Equal(t, 1, boyz.Wounds)
	assert.Equal(t, 10, boyz.Models)
	assert.Equal(t, 6, boyz.FeelNoPain)

	big, _ := s.Defender("000000003", 20)
	assert.Equal(t, 20, big.Models)

	_, ok = s.Defender("missing", 0)
	assert.False(t, ok)
}

func TestPointsFor(t *testing.T) {
	s := mustStore(t)

	assert.Equal(t, 80, s.PointsFor("000000001", 5))
	assert.Equal(t, 160, s.PointsFor("000000001", 7))
	assert.Equal(t, 160, s.PointsFor("000000001", 10))
	assert.Equal(t, 170, s.PointsFor("000000003", 25))
	assert.Equal(t, 0, s.PointsFor("missing", 5))
}

func TestDetail(t *testing.T) {
	s := mustStore(t)

	d, ok := s.Detail("000000001")
	require.True(t, ok)
	assert.Equal(t, "Space Marines", d.Faction.Name)
	assert.Len(t, d.Models, 1)
	assert.Len(t, d.Profiles, 2)
	require.NotNil(t, d.Defender)
	assert.Equal(t, 4, d.Defender.Toughness)

	_, ok = s.Detail("nope")
	assert.False(t, ok)
}

func TestStoreProfilesDriveCalculator(t *testing.T) {
	s := mustStore(t)

	w := s.WeaponProfiles("000000001")[0]
	def, ok := s.Defender("000000003", 10)
	require.True(t, ok)

	wp, dp, ms, err := models.CalcRequest{Weapon: w, Defender: def}.Build()
	require.NoError(t, err)
	res, err := mathhammer.Calculate(wp, dp, ms)
	require.NoError(t, err)
	assert.Greater(t, res.ExpectedDamage, 0.0)
}

func TestFindFaction(t *testing.T) {
	s := mustStore(t)

	for _, ref := range []string{"SM", "sm", "space-marines", "Space Marines"} {
		f, ok := s.FindFaction(ref)
		require.True(t, ok, "ref %q", ref)
		assert.Equal(t, "SM", f.ID)
	}

	_, ok := s.FindFaction("tau-empire")
	assert.False(t, ok)
}

func TestFindUnit(t *testing.T) {
	s := mustStore(t)

	u, ok := s.FindUnit("SM", "000000001")
	require.True(t, ok)
	assert.Equal(t, "Intercessor Squad", u.Name)

	u, ok = s.FindUnit("SM", "intercessor-squad")
	require.True(t, ok)
	assert.Equal(t, "000000001", u.ID)

	u, ok = s.FindUnit("ORK", "Boyz")
	require.True(t, ok)
	assert.Equal(t, "000000003", u.ID)

	// id belongs to another faction
	_, ok = s.FindUnit("ORK", "000000001")
	assert.False(t, ok)

	_, ok = s.FindUnit("SM", "terminator-squad")
	assert.False(t, ok)
}
