package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mordian/w40k-companion/internal/datasheet"
	"github.com/mordian/w40k-companion/internal/models"
)

func TestRunStatFlags(t *testing.T) {
	var out, errBuf bytes.Buffer
	err := run([]string{
		"-attacks", "4", "-skill", "3", "-strength", "4", "-ap", "1", "-damage", "1",
		"-toughness", "4", "-save", "3", "-wounds", "2", "-models", "5",
	}, &out, &errBuf)
	require.NoError(t, err)
	assert.Empty(t, errBuf.String())

	text := out.String()
	assert.Contains(t, text, "Weapon  A4  3+  S4  AP-1  D1")
	assert.Contains(t, text, "vs Target  T4  Sv3+  W2  x5")
	// 4 attacks, 3+ to hit, 4s to wound, save pushed to 4+
	assert.Contains(t, text, "Expected damage: 0.67")
	assert.Contains(t, text, "kills      P(=k)     P(>=k)")
	assert.NotContains(t, text, "simulated volley")
}

func TestRunJSON(t *testing.T) {
	var out, errBuf bytes.Buffer
	err := run([]string{
		"-attacks", "4", "-skill", "3", "-ap", "1",
		"-save", "3", "-wounds", "2", "-models", "5",
		"-json",
	}, &out, &errBuf)
	require.NoError(t, err)

	var res models.CalcResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.InDelta(t, 4.0/6.0, res.ExpectedDamage, 1e-9)
	assert.InDelta(t, 4.0, res.Breakdown.Attacks, 1e-9)
	assert.Nil(t, res.Trace)
}

func TestRunRuleFlags(t *testing.T) {
	var out, errBuf bytes.Buffer
	err := run([]string{
		"-attacks", "2d6", "-torrent", "-lethal", "-anti", "infantry 4",
		"-keywords", "Infantry, Imperium", "-fnp", "5",
	}, &out, &errBuf)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "A2D6")
	assert.Contains(t, text, "N/A")
	assert.Contains(t, text, "[Torrent, Lethal Hits, Anti-infantry 4+]")
	assert.Contains(t, text, "FNP 5+")
}

func TestRunTrace(t *testing.T) {
	var out, errBuf bytes.Buffer
	err := run([]string{"-attacks", "3", "-trace"}, &out, &errBuf)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "One simulated volley:")
	assert.Contains(t, out.String(), "damage,")
}

func TestRunValidation(t *testing.T) {
	var out, errBuf bytes.Buffer
	err := run([]string{"-skill", "0"}, &out, &errBuf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skill")

	err = run([]string{"-unit", "Boyz"}, &out, &errBuf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-faction")

	err = run([]string{"-bogus"}, &out, &errBuf)
	require.Error(t, err)
}

func TestRunAgainstServer(t *testing.T) {
	detail := datasheet.Detail{
		Unit: datasheet.Unit{ID: "000000003", Name: "Boyz"},
		Profiles: []models.Weapon{
			{Name: "Shoota", Attacks: "2", Skill: 5, Strength: 4, Damage: "1"},
		},
		Defender: &models.Defender{Name: "Boyz", Toughness: 5, Save: 6, Wounds: 1, Models: 10},
	}
	var calcReq models.CalcRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/factions/orks/units/boyz", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(detail)
	})
	mux.HandleFunc("/api/mathhammer", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&calcReq))
		json.NewEncoder(w).Encode(models.CalcResult{ExpectedDamage: 1.25})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	var out, errBuf bytes.Buffer
	err := run([]string{
		"-api", ts.URL,
		"-faction", "Orks", "-unit", "Boyz",
		"-target-faction", "Orks", "-target-unit", "Boyz", "-target-models", "20",
		"-json",
	}, &out, &errBuf)
	require.NoError(t, err)

	assert.Equal(t, "Shoota", calcReq.Weapon.Name)
	assert.Equal(t, 20, calcReq.Defender.Models)

	var res models.CalcResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.InDelta(t, 1.25, res.ExpectedDamage, 1e-9)
}

func TestPickWeapon(t *testing.T) {
	profiles := []models.Weapon{{Name: "Bolt rifle"}, {Name: "Bolt pistol"}}

	w, err := pickWeapon(profiles, "bolt-rifle")
	require.NoError(t, err)
	assert.Equal(t, "Bolt rifle", w.Name)

	_, err = pickWeapon(profiles, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bolt rifle, Bolt pistol")

	_, err = pickWeapon(profiles, "plasma")
	require.Error(t, err)

	_, err = pickWeapon(nil, "")
	require.Error(t, err)

	w, err = pickWeapon(profiles[:1], "")
	require.NoError(t, err)
	assert.Equal(t, "Bolt rifle", w.Name)
}

func TestParseAnti(t *testing.T) {
	ax, err := parseAnti("infantry 4")
	require.NoError(t, err)
	assert.Equal(t, models.AntiX{Keyword: "infantry", Threshold: 4}, *ax)

	ax, err = parseAnti("fly 2+")
	require.NoError(t, err)
	assert.Equal(t, models.AntiX{Keyword: "fly", Threshold: 2}, *ax)

	_, err = parseAnti("vehicle")
	require.Error(t, err)

	_, err = parseAnti("monster x")
	require.Error(t, err)
}
