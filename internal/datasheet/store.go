// Package datasheet loads the pipe-delimited datasheet exports and a
// YAML homebrew library, and turns their records into calculator
// profiles.
package datasheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Faction is one row of Factions.csv.
type Faction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// Unit is one row of Datasheets.csv, with the leading stats of its
// first model row attached for list views.
type Unit struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FactionID string `json:"faction_id"`
	Role      string `json:"role,omitempty"`
	Link      string `json:"link,omitempty"`
	T         string `json:"T,omitempty"`
	W         string `json:"W,omitempty"`
	Points    string `json:"points,omitempty"`
}

// Wargear is one weapon row of Datasheets_wargear.csv. Stats stay as
// the export spells them; profile building parses them later.
type Wargear struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Range       string `json:"range"`
	Type        string `json:"type"`
	Attacks     string `json:"attacks"`
	BSOrWS      string `json:"bs_ws"`
	Strength    string `json:"strength"`
	AP          string `json:"ap"`
	Damage      string `json:"damage"`
	// CSV line column, kept for stable ordering in responses
	Order int `json:"-"`
}

// Model is one stat row of Datasheets_models.csv.
type Model struct {
	Line       int    `json:"line"`
	Name       string `json:"name"`
	M          string `json:"M"`
	T          string `json:"T"`
	Sv         string `json:"Sv"`
	InvSv      string `json:"inv_sv"`
	InvSvDescr string `json:"inv_sv_descr"`
	W          string `json:"W"`
	Ld         string `json:"Ld"`
	OC         string `json:"OC"`
}

// Keyword is one row of Datasheets_keywords.csv.
type Keyword struct {
	Keyword   string `json:"keyword"`
	Model     string `json:"model,omitempty"`
	IsFaction bool   `json:"is_faction_keyword"`
}

// Ability is one row of Datasheets_abilities.csv.
type Ability struct {
	Line        int    `json:"line"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// ModelCost is one row of Datasheets_models_cost.csv.
type ModelCost struct {
	Line        int    `json:"line"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
}

// Store holds every loaded record, indexed the way the API serves
// them. It is built once at startup and read-only afterwards.
type Store struct {
	FactionsByID   map[string]Faction
	FactionsBySlug map[string]Faction
	FactionsList   []Faction
	UnitsByID      map[string]Unit
	UnitsByFac     map[string][]Unit
	WargearByDS    map[string][]Wargear
	ModelsByDS     map[string][]Model
	KeywordsByDS   map[string][]Keyword
	AbilitiesByDS  map[string][]Ability
	CostsByDS      map[string][]ModelCost
}

func readPipeCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	csvr := csv.NewReader(f)
	csvr.Comma = '|'
	// exports contain unescaped quotes (e.g. 12" range), allow them
	csvr.LazyQuotes = true
	csvr.FieldsPerRecord = -1
	return csvr.ReadAll()
}

func loadFactions(dir string) ([]Faction, map[string]Faction, error) {
	rows, err := readPipeCSV(filepath.Join(dir, "Factions.csv"))
	if err != nil {
		return nil, nil, err
	}
	var list []Faction
	byID := map[string]Faction{}
	for i, r := range rows {
		if i == 0 || len(r) < 3 {
			continue
		}
		f := Faction{ID: r[0], Name: r[1], Link: r[2]}
		list = append(list, f)
		byID[f.ID] = f
	}
	sort.Slice(list, func(i, j int) bool { return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name) })
	return list, byID, nil
}

func loadUnits(dir string) (map[string]Unit, map[string][]Unit, error) {
	rows, err := readPipeCSV(filepath.Join(dir, "Datasheets.csv"))
	if err != nil {
		return nil, nil, err
	}
	byID := map[string]Unit{}
	byFac := map[string][]Unit{}
	for i, r := range rows {
		if i == 0 || len(r) < 6 {
			continue
		}
		u := Unit{ID: r[0], Name: r[1], FactionID: r[2], Role: r[5]}
		if len(r) > 13 {
			u.Link = r[13]
		}
		byID[u.ID] = u
		byFac[u.FactionID] = append(byFac[u.FactionID], u)
	}
	for fid := range byFac {
		units := byFac[fid]
		sort.Slice(units, func(i, j int) bool { return strings.ToLower(units[i].Name) < strings.ToLower(units[j].Name) })
		byFac[fid] = units
	}
	return byID, byFac, nil
}

func loadWargear(dir string) (map[string][]Wargear, error) {
	rows, err := readPipeCSV(filepath.Join(dir, "Datasheets_wargear.csv"))
	if err != nil {
		return nil, err
	}
	byDS := map[string][]Wargear{}
	for i, r := range rows {
		if i == 0 || len(r) < 13 {
			continue
		}
		order := 0
		if n, err := strconv.Atoi(strings.TrimSpace(r[1])); err == nil {
			order = n
		}
		w := Wargear{
			Name:        r[4],
			Description: htmlToText(r[5]),
			Range:       r[6],
			Type:        r[7],
			Attacks:     r[8],
			BSOrWS:      r[9],
			Strength:    r[10],
			AP:          r[11],
			Damage:      r[12],
			Order:       order,
		}
		byDS[r[0]] = append(byDS[r[0]], w)
	}
	for dsid := range byDS {
		ws := byDS[dsid]
		sort.Slice(ws, func(i, j int) bool { return ws[i].Order < ws[j].Order })
		byDS[dsid] = ws
	}
	return byDS, nil
}

func loadModels(dir string) (map[string][]Model, error) {
	rows, err := readPipeCSV(filepath.Join(dir, "Datasheets_models.csv"))
	if err != nil {
		return nil, err
	}
	byDS := map[string][]Model{}
	for i, r := range rows {
		if i == 0 || len(r) < 11 {
			continue
		}
		line := 0
		if n, err := strconv.Atoi(strings.TrimSpace(r[1])); err == nil {
			line = n
		}
		m := Model{
			Line:       line,
			Name:       r[2],
			M:          r[3],
			T:          r[4],
			Sv:         r[5],
			InvSv:      r[6],
			InvSvDescr: r[7],
			W:          r[8],
			Ld:         r[9],
			OC:         r[10],
		}
		byDS[r[0]] = append(byDS[r[0]], m)
	}
	for dsid := range byDS {
		ms := byDS[dsid]
		sort.Slice(ms, func(i, j int) bool { return ms[i].Line < ms[j].Line })
		byDS[dsid] = ms
	}
	return byDS, nil
}

func loadKeywords(dir string) (map[string][]Keyword, error) {
	rows, err := readPipeCSV(filepath.Join(dir, "Datasheets_keywords.csv"))
	if err != nil {
		return nil, err
	}
	byDS := map[string][]Keyword{}
	for i, r := range rows {
		if i == 0 || len(r) < 4 {
			continue
		}
		kw := Keyword{Keyword: r[1], Model: r[2]}
		kw.IsFaction = strings.EqualFold(strings.TrimSpace(r[3]), "true")
		byDS[r[0]] = append(byDS[r[0]], kw)
	}
	return byDS, nil
}

func loadAbilities(dir string) (map[string][]Ability, error) {
	rows, err := readPipeCSV(filepath.Join(dir, "Datasheets_abilities.csv"))
	if err != nil {
		return nil, err
	}
	byDS := map[string][]Ability{}
	for i, r := range rows {
		if i == 0 || len(r) < 8 {
			continue
		}
		line := 0
		if n, err := strconv.Atoi(strings.TrimSpace(r[1])); err == nil {
			line = n
		}
		ab := Ability{
			Line:        line,
			Name:        r[4],
			Description: htmlToText(r[5]),
			Type:        r[6],
		}
		byDS[r[0]] = append(byDS[r[0]], ab)
	}
	for dsid := range byDS {
		list := byDS[dsid]
		sort.Slice(list, func(i, j int) bool { return list[i].Line < list[j].Line })
		byDS[dsid] = list
	}
	return byDS, nil
}

func loadModelCosts(dir string) (map[string][]ModelCost, error) {
	rows, err := readPipeCSV(filepath.Join(dir, "Datasheets_models_cost.csv"))
	if err != nil {
		return nil, err
	}
	byDS := map[string][]ModelCost{}
	for i, r := range rows {
		if i == 0 || len(r) < 4 {
			continue
		}
		line := 0
		if n, err := strconv.Atoi(strings.TrimSpace(r[1])); err == nil {
			line = n
		}
		byDS[r[0]] = append(byDS[r[0]], ModelCost{Line: line, Description: r[2], Cost: r[3]})
	}
	for dsid := range byDS {
		list := byDS[dsid]
		sort.Slice(list, func(i, j int) bool { return list[i].Line < list[j].Line })
		byDS[dsid] = list
	}
	return byDS, nil
}

// New loads every export from dir and indexes it.
func New(dir string) (*Store, error) {
	fList, fMap, err := loadFactions(dir)
	if err != nil {
		return nil, err
	}
	uByID, uByFac, err := loadUnits(dir)
	if err != nil {
		return nil, err
	}
	wByDS, err := loadWargear(dir)
	if err != nil {
		return nil, err
	}
	mByDS, err := loadModels(dir)
	if err != nil {
		return nil, err
	}
	kByDS, err := loadKeywords(dir)
	if err != nil {
		return nil, err
	}
	aByDS, err := loadAbilities(dir)
	if err != nil {
		return nil, err
	}
	cByDS, err := loadModelCosts(dir)
	if err != nil {
		return nil, err
	}

	// fill list stats from the first model row, points from the first
	// cost row
	for id, u := range uByID {
		if ms := mByDS[id]; len(ms) > 0 {
			u.T = ms[0].T
			u.W = ms[0].W
		}
		if cs := cByDS[id]; len(cs) > 0 {
			u.Points = cs[0].Cost
		}
		uByID[id] = u
	}
	for fid, units := range uByFac {
		for i, u := range units {
			units[i] = uByID[u.ID]
		}
		uByFac[fid] = units
	}

	bySlug := map[string]Faction{}
	for _, f := range fList {
		bySlug[toSlug(f.Name)] = f
		bySlug[strings.ToLower(f.ID)] = f
		bySlug[f.ID] = f
	}

	return &Store{
		FactionsByID:   fMap,
		FactionsBySlug: bySlug,
		FactionsList:   fList,
		UnitsByID:      uByID,
		UnitsByFac:     uByFac,
		WargearByDS:    wByDS,
		ModelsByDS:     mByDS,
		KeywordsByDS:   kByDS,
		AbilitiesByDS:  aByDS,
		CostsByDS:      cByDS,
	}, nil
}

// FindFaction resolves a faction reference: id, lowercased id, or
// name slug.
func (s *Store) FindFaction(ref string) (Faction, bool) {
	if f, ok := s.FactionsBySlug[strings.ToLower(ref)]; ok {
		return f, true
	}
	f, ok := s.FactionsBySlug[toSlug(ref)]
	return f, ok
}

// FindUnit resolves a unit within a faction by datasheet id or name
// slug.
func (s *Store) FindUnit(factionID, ref string) (Unit, bool) {
	if u, ok := s.UnitsByID[ref]; ok && u.FactionID == factionID {
		return u, true
	}
	slug := toSlug(ref)
	for _, u := range s.UnitsByFac[factionID] {
		if toSlug(u.Name) == slug {
			return u, true
		}
	}
	return Unit{}, false
}

// htmlToText scrubs export descriptions: strip tags, collapse lines.
func htmlToText(s string) string {
	out := make([]rune, 0, len(s))
	inTag := false
	for _, ch := range s {
		if ch == '<' {
			inTag = true
			continue
		}
		if ch == '>' {
			inTag = false
			continue
		}
		if !inTag {
			out = append(out, ch)
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(string(out), "\n", " "))
}

func toSlug(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "--", "-")
	return s
}
