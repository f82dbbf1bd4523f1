package datasheet

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// HomebrewFactionID groups user-authored datasheets in the store.
const HomebrewFactionID = "HOMEBREW"

// HomebrewFile is the YAML schema for user-authored datasheets.
type HomebrewFile struct {
	Units []HomebrewUnit `yaml:"units"`
}

// HomebrewUnit carries the stats the calculator needs, spelled the way
// a player reads them off a card. Weapon rules are free text and go
// through the same scan as the official exports, so "Sustained Hits 2"
// or "Anti-Vehicle (4+)" mean the same thing here.
type HomebrewUnit struct {
	Name       string            `yaml:"name"`
	Role       string            `yaml:"role"`
	Toughness  int               `yaml:"toughness"`
	Save       int               `yaml:"save"`
	Invuln     int               `yaml:"invuln"`
	Wounds     int               `yaml:"wounds"`
	Models     int               `yaml:"models"`
	Points     int               `yaml:"points"`
	FeelNoPain int               `yaml:"feelNoPain"`
	Keywords   []string          `yaml:"keywords"`
	Abilities  []HomebrewAbility `yaml:"abilities"`
	Weapons    []HomebrewWeapon  `yaml:"weapons"`
}

type HomebrewAbility struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type HomebrewWeapon struct {
	Name     string   `yaml:"name"`
	Range    string   `yaml:"range"`
	Attacks  string   `yaml:"attacks"`
	Skill    int      `yaml:"skill"`
	Strength int      `yaml:"strength"`
	AP       int      `yaml:"ap"`
	Damage   string   `yaml:"damage"`
	Rules    []string `yaml:"rules"`
}

// AddHomebrew loads a homebrew YAML file and merges its units into
// the store under the Homebrew faction, shaped like export records so
// every downstream path treats them the same. Reloading a file with
// the same unit names replaces the earlier rows. Returns the number
// of units added.
func (s *Store) AddHomebrew(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var file HomebrewFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Units) == 0 {
		return 0, nil
	}

	if _, ok := s.FactionsByID[HomebrewFactionID]; !ok {
		f := Faction{ID: HomebrewFactionID, Name: "Homebrew"}
		s.FactionsByID[f.ID] = f
		s.FactionsBySlug[toSlug(f.Name)] = f
		s.FactionsBySlug[f.ID] = f
		s.FactionsList = append(s.FactionsList, f)
		sort.Slice(s.FactionsList, func(i, j int) bool {
			return s.FactionsList[i].Name < s.FactionsList[j].Name
		})
	}

	for _, hb := range file.Units {
		if strings.TrimSpace(hb.Name) == "" {
			return 0, fmt.Errorf("parse %s: unit with empty name", path)
		}
		s.addHomebrewUnit(hb)
	}

	units := s.UnitsByFac[HomebrewFactionID]
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	s.UnitsByFac[HomebrewFactionID] = units

	return len(file.Units), nil
}

func (s *Store) addHomebrewUnit(hb HomebrewUnit) {
	id := "HB-" + toSlug(hb.Name)

	wounds := max(1, hb.Wounds)
	models := max(1, hb.Models)

	u := Unit{
		ID:        id,
		Name:      hb.Name,
		FactionID: HomebrewFactionID,
		Role:      hb.Role,
		T:         strconv.Itoa(max(1, hb.Toughness)),
		W:         strconv.Itoa(wounds),
		Points:    strconv.Itoa(hb.Points),
	}

	inv := ""
	if hb.Invuln >= 2 && hb.Invuln <= 6 {
		inv = fmt.Sprintf("%d+", hb.Invuln)
	}
	model := Model{
		Line:  1,
		Name:  hb.Name,
		M:     `6"`,
		T:     u.T,
		Sv:    fmt.Sprintf("%d+", hb.Save),
		InvSv: inv,
		W:     u.W,
		Ld:    "6+",
		OC:    "1",
	}

	var kws []Keyword
	for _, k := range hb.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, Keyword{Keyword: k})
		}
	}

	var abs []Ability
	for i, a := range hb.Abilities {
		abs = append(abs, Ability{Line: i + 1, Name: a.Name, Description: a.Description})
	}
	if hb.FeelNoPain >= 2 && hb.FeelNoPain <= 6 {
		abs = append(abs, Ability{
			Line:        len(abs) + 1,
			Name:        "Feel No Pain",
			Description: fmt.Sprintf("This unit has a %d+ Feel No Pain.", hb.FeelNoPain),
		})
	}

	var gear []Wargear
	for i, w := range hb.Weapons {
		skill := "N/A"
		if w.Skill > 0 {
			skill = fmt.Sprintf("%d+", w.Skill)
		}
		gear = append(gear, Wargear{
			Name:        w.Name,
			Description: strings.Join(w.Rules, ", "),
			Range:       w.Range,
			Type:        "Ranged",
			Attacks:     w.Attacks,
			BSOrWS:      skill,
			Strength:    strconv.Itoa(w.Strength),
			AP:          strconv.Itoa(w.AP),
			Damage:      w.Damage,
			Order:       i + 1,
		})
	}

	costs := []ModelCost{{
		Line:        1,
		Description: fmt.Sprintf("%d models", models),
		Cost:        strconv.Itoa(hb.Points),
	}}

	_, replacing := s.UnitsByID[id]
	s.UnitsByID[id] = u
	s.WargearByDS[id] = gear
	s.ModelsByDS[id] = []Model{model}
	s.KeywordsByDS[id] = kws
	s.AbilitiesByDS[id] = abs
	s.CostsByDS[id] = costs

	if replacing {
		units := s.UnitsByFac[HomebrewFactionID]
		for i := range units {
			if units[i].ID == id {
				units[i] = u
			}
		}
		s.UnitsByFac[HomebrewFactionID] = units
	} else {
		s.UnitsByFac[HomebrewFactionID] = append(s.UnitsByFac[HomebrewFactionID], u)
	}
}
