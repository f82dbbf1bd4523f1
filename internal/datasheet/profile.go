package datasheet

import (
	"strings"

	"github.com/mordian/w40k-companion/internal/models"
)

// parseSave reads an "N+" stat column, clamped to the rollable band.
func parseSave(s string) int {
	n := firstInt(s, 4)
	if n < 2 {
		return 2
	}
	if n > 6 {
		return 6
	}
	return n
}

// parseInvuln reads the invulnerable column, 0 when the export leaves
// it blank or dashed.
func parseInvuln(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	n := firstInt(s, 0)
	if n < 2 || n > 6 {
		return 0
	}
	return n
}

// parseAP reads the AP column; exports spell it "-1", the engine
// wants the positive save shift.
func parseAP(s string) int {
	n := firstInt(s, 0)
	if n < 0 {
		return -n
	}
	return n
}

// expr cleans a dice stat column, falling back when the export leaves
// it blank.
func expr(s, def string) models.DiceValue {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == "-" || s == "N/A" {
		s = def
	}
	return models.DiceValue(s)
}

// WeaponProfiles converts a unit's wargear rows into calculator
// weapons, deriving special rules from the free-text columns.
func (s *Store) WeaponProfiles(unitID string) []models.Weapon {
	gear := s.WargearByDS[unitID]
	out := make([]models.Weapon, 0, len(gear))
	for _, g := range gear {
		r := scanWeaponRules(g.Type, g.Description)
		w := models.Weapon{
			Name:     g.Name,
			Attacks:  expr(g.Attacks, "1"),
			Skill:    parseSave(g.BSOrWS),
			Strength: firstInt(g.Strength, 4),
			AP:       parseAP(g.AP),
			Damage:   expr(g.Damage, "1"),

			LethalHits:        r.Lethal,
			SustainedHits:     r.Sustained,
			DevastatingWounds: r.Devastating,
			Torrent:           r.Torrent,
			TwinLinked:        r.TwinLinked,
			RapidFire:         r.RapidFire,
			Blast:             r.Blast,
			Heavy:             r.Heavy,
			Lance:             r.Lance,
		}
		if r.AntiKeyword != "" {
			w.AntiX = &models.AntiX{Keyword: r.AntiKeyword, Threshold: r.AntiValue}
		}
		if w.Torrent {
			w.Skill = 0
		}
		out = append(out, w)
	}
	return out
}

// Defender converts a unit into a calculator defender with the given
// model count. Counts at or below zero take the unit's default size.
func (s *Store) Defender(unitID string, modelCount int) (models.Defender, bool) {
	u, ok := s.UnitsByID[unitID]
	if !ok {
		return models.Defender{}, false
	}
	ms := s.ModelsByDS[unitID]
	if len(ms) == 0 {
		return models.Defender{}, false
	}
	m := ms[0]
	if modelCount <= 0 {
		modelCount = s.DefaultModels(unitID)
	}
	fnp, reduce, halve := abilityEffects(s.AbilitiesByDS[unitID])

	var kws []string
	for _, k := range s.KeywordsByDS[unitID] {
		kws = append(kws, k.Keyword)
	}

	return models.Defender{
		Name:         u.Name,
		Toughness:    firstInt(m.T, 4),
		Save:         parseSave(m.Sv),
		Invuln:       parseInvuln(m.InvSv),
		Wounds:       max(1, firstInt(m.W, 1)),
		Models:       modelCount,
		FeelNoPain:   fnp,
		Keywords:     kws,
		ReduceDamage: reduce,
		HalveDamage:  halve,
	}, true
}

// DefaultModels reads the unit's smallest purchasable size from its
// first cost row, 1 when the exports have none.
func (s *Store) DefaultModels(unitID string) int {
	cs := s.CostsByDS[unitID]
	if len(cs) == 0 {
		return 1
	}
	return max(1, firstInt(cs[0].Description, 1))
}

// PointsFor returns the points cost for fielding the unit at the
// given size: the cheapest cost row whose size covers the count, or
// the largest row when the count exceeds every listed size.
func (s *Store) PointsFor(unitID string, modelCount int) int {
	cs := s.CostsByDS[unitID]
	if len(cs) == 0 {
		return 0
	}
	best := 0
	for _, c := range cs {
		size := firstInt(c.Description, 1)
		cost := firstInt(c.Cost, 0)
		best = cost
		if size >= modelCount {
			break
		}
	}
	return best
}

// Detail is the full unit payload the API serves: raw records plus
// the derived calculator profiles.
type Detail struct {
	Unit      Unit             `json:"unit"`
	Faction   Faction          `json:"faction"`
	Models    []Model          `json:"models"`
	Wargear   []Wargear        `json:"wargear"`
	Keywords  []Keyword        `json:"keywords"`
	Abilities []Ability        `json:"abilities"`
	Costs     []ModelCost      `json:"costs"`
	Profiles  []models.Weapon  `json:"profiles"`
	Defender  *models.Defender `json:"defender,omitempty"`
}

// Detail assembles the unit payload, or reports the id unknown.
func (s *Store) Detail(unitID string) (*Detail, bool) {
	u, ok := s.UnitsByID[unitID]
	if !ok {
		return nil, false
	}
	d := &Detail{
		Unit:      u,
		Faction:   s.FactionsByID[u.FactionID],
		Models:    s.ModelsByDS[unitID],
		Wargear:   s.WargearByDS[unitID],
		Keywords:  s.KeywordsByDS[unitID],
		Abilities: s.AbilitiesByDS[unitID],
		Costs:     s.CostsByDS[unitID],
		Profiles:  s.WeaponProfiles(unitID),
	}
	if def, ok := s.Defender(unitID, 0); ok {
		d.Defender = &def
	}
	return d, true
}
