package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/mordian/w40k-companion/internal/mathhammer"
	"github.com/mordian/w40k-companion/internal/models"
)

// briefRequest asks for a ranked table: every weapon of the attacking
// datasheet priced into one target.
type briefRequest struct {
	Attacker  unitRef          `json:"attacker"`
	Target    briefTarget      `json:"target"`
	Modifiers models.Modifiers `json:"modifiers"`
}

type unitRef struct {
	Faction string `json:"faction"`
	Unit    string `json:"unit"`
}

// briefTarget names a datasheet, or carries an explicit defender
// profile which then wins over the reference.
type briefTarget struct {
	unitRef
	Models  int              `json:"models,omitempty"`
	Profile *models.Defender `json:"profile,omitempty"`
}

type briefRow struct {
	Weapon         string  `json:"weapon"`
	ExpectedDamage float64 `json:"expectedDamage"`
	ExpectedKills  float64 `json:"expectedKills"`
	KillChance     float64 `json:"killChance"`
	WipeChance     float64 `json:"wipeChance"`
	Error          string  `json:"error,omitempty"`
}

type briefResponse struct {
	Attacker string     `json:"attacker"`
	Target   string     `json:"target"`
	Models   int        `json:"models"`
	Rows     []briefRow `json:"rows"`
}

func (s *server) handleBrief(w http.ResponseWriter, r *http.Request) {
	var req briefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fac, ok := s.store.FindFaction(req.Attacker.Faction)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown faction: "+req.Attacker.Faction)
		return
	}
	att, ok := s.store.FindUnit(fac.ID, req.Attacker.Unit)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown unit: "+req.Attacker.Unit)
		return
	}
	weapons := s.store.WeaponProfiles(att.ID)
	if len(weapons) == 0 {
		writeError(w, http.StatusBadRequest, att.Name+" has no weapon profiles")
		return
	}

	target, targetName, err := s.resolveTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := briefResponse{
		Attacker: att.Name,
		Target:   targetName,
		Models:   target.Models,
		Rows:     make([]briefRow, 0, len(weapons)),
	}
	for _, wp := range weapons {
		row := briefRow{Weapon: wp.Name}
		if res, err := calcOne(wp, target, req.Modifiers); err != nil {
			row.Error = err.Error()
		} else {
			row.ExpectedDamage = res.ExpectedDamage
			row.ExpectedKills = res.ExpectedKills
			if len(res.ProbabilityAtLeast) > 1 {
				row.KillChance = res.ProbabilityAtLeast[1]
			}
			if target.Models < len(res.Probabilities) {
				row.WipeChance = res.Probabilities[target.Models]
			}
		}
		resp.Rows = append(resp.Rows, row)
	}
	rows := resp.Rows
	sort.SliceStable(rows, func(i, j int) bool {
		if (rows[i].Error == "") != (rows[j].Error == "") {
			return rows[i].Error == ""
		}
		if rows[i].ExpectedDamage != rows[j].ExpectedDamage {
			return rows[i].ExpectedDamage > rows[j].ExpectedDamage
		}
		return rows[i].ExpectedKills > rows[j].ExpectedKills
	})
	writeJSON(w, resp)
}

// resolveTarget produces the defender profile for a brief: an explicit
// profile wins, otherwise the named datasheet at the requested size.
func (s *server) resolveTarget(t briefTarget) (models.Defender, string, error) {
	if t.Profile != nil {
		d := *t.Profile
		if d.Models <= 0 {
			d.Models = 1
		}
		name := d.Name
		if name == "" {
			name = "custom target"
		}
		return d, name, nil
	}
	fac, ok := s.store.FindFaction(t.Faction)
	if !ok {
		return models.Defender{}, "", fmt.Errorf("unknown faction: %s", t.Faction)
	}
	u, ok := s.store.FindUnit(fac.ID, t.Unit)
	if !ok {
		return models.Defender{}, "", fmt.Errorf("unknown unit: %s", t.Unit)
	}
	d, ok := s.store.Defender(u.ID, t.Models)
	if !ok {
		return models.Defender{}, "", fmt.Errorf("%s has no model profile", u.Name)
	}
	return d, u.Name, nil
}

// calcOne runs a single engine calculation from wire-shaped inputs.
func calcOne(weapon models.Weapon, target models.Defender, mods models.Modifiers) (*models.CalcResult, error) {
	wp, def, m, err := models.CalcRequest{Weapon: weapon, Defender: target, Modifiers: mods}.Build()
	if err != nil {
		return nil, err
	}
	res, err := mathhammer.Calculate(wp, def, m)
	if err != nil {
		return nil, err
	}
	return models.NewCalcResult(res), nil
}
