package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mordian/w40k-companion/internal/datasheet"
	"github.com/mordian/w40k-companion/internal/models"
)

func TestFactionsCached(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/factions", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]datasheet.Faction{{ID: "SM", Name: "Space Marines"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	first, err := c.Factions()
	require.NoError(t, err)
	second, err := c.Factions()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load())
}

func TestUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/factions/space-marines/units", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]datasheet.Unit{{ID: "000000001", Name: "Intercessor Squad"}})
	}))
	defer srv.Close()

	units, err := NewClient(srv.URL).Units("Space Marines")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Intercessor Squad", units[0].Name)
}

func TestUnitDetailRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/factions/space-marines/units/intercessor-squad", r.URL.Path)
		_ = json.NewEncoder(w).Encode(datasheet.Detail{
			Unit: datasheet.Unit{ID: "000000001", Name: "Intercessor Squad"},
			Profiles: []models.Weapon{
				{Name: "Bolt rifle", Attacks: "2", Skill: 3, Strength: 4, AP: 1, Damage: "1"},
			},
			Defender: &models.Defender{Toughness: 4, Save: 3, Wounds: 2, Models: 5},
		})
	}))
	defer srv.Close()

	d, err := NewClient(srv.URL).Unit("Space Marines", "Intercessor Squad")
	require.NoError(t, err)
	assert.Equal(t, "000000001", d.Unit.ID)
	require.Len(t, d.Profiles, 1)
	assert.Equal(t, models.DiceValue("2"), d.Profiles[0].Attacks)
	require.NotNil(t, d.Defender)
	assert.Equal(t, 4, d.Defender.Toughness)
}

func TestCalculate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/mathhammer", r.URL.Path)
		var req models.CalcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "Bolt rifle", req.Weapon.Name)
		_ = json.NewEncoder(w).Encode(models.CalcResult{ExpectedDamage: 3.33})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Calculate(models.CalcRequest{
		Weapon:   models.Weapon{Name: "Bolt rifle", Attacks: "10", Skill: 3, Strength: 4, AP: 1, Damage: "1"},
		Defender: models.Defender{Toughness: 4, Save: 3, Wounds: 2, Models: 5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 3.33, res.ExpectedDamage, 1e-9)
}

func TestErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "must be at least 1", Field: "attacks"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Calculate(models.CalcRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attacks")
	assert.Contains(t, err.Error(), "must be at least 1")

	plain := httptest.NewServer(http.NotFoundHandler())
	defer plain.Close()

	_, err = NewClient(plain.URL).Factions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
