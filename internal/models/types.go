package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mordian/w40k-companion/internal/mathhammer"
)

// ========================= Calculator Wire Contract =========================
// JSON shapes for the calculator endpoints and the CLI. Field names here are
// the external contract; the engine types stay wire-agnostic.

// DiceValue is a dice expression on the wire. It accepts both a JSON
// number (a fixed count) and a string ("2D6", "D3+1") and always
// marshals back as a string.
type DiceValue string

func (v *DiceValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = DiceValue(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("dice value must be a number or expression string: %w", err)
	}
	*v = DiceValue(strconv.Itoa(n))
	return nil
}

func (v DiceValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

// AntiX names the keyword and unmodified wound roll at which the
// Anti-X rule marks a wound critical.
type AntiX struct {
	Keyword   string `json:"keyword"`
	Threshold int    `json:"threshold"`
}

// Weapon is the attacker's profile as the UI and CLI submit it.
type Weapon struct {
	Name     string    `json:"name,omitempty"`
	Attacks  DiceValue `json:"attacks"`
	Skill    int       `json:"skill,omitempty"` // 0 with torrent
	Strength int       `json:"strength"`
	AP       int       `json:"ap"`
	Damage   DiceValue `json:"damage"`

	LethalHits        bool   `json:"lethalHits,omitempty"`
	SustainedHits     int    `json:"sustainedHits,omitempty"`
	DevastatingWounds bool   `json:"devastatingWounds,omitempty"`
	AntiX             *AntiX `json:"antiX,omitempty"`
	Torrent           bool   `json:"torrent,omitempty"`
	TwinLinked        bool   `json:"twinLinked,omitempty"`
	RapidFire         int    `json:"rapidFire,omitempty"`
	Blast             bool   `json:"blast,omitempty"`
	Heavy             bool   `json:"heavy,omitempty"`
	Lance             bool   `json:"lance,omitempty"`
}

// Defender is the target unit as submitted.
type Defender struct {
	Name       string   `json:"name,omitempty"`
	Toughness  int      `json:"toughness"`
	Save       int      `json:"save"`
	Invuln     int      `json:"invuln,omitempty"`
	Wounds     int      `json:"wounds"`
	Models     int      `json:"models"`
	FeelNoPain int      `json:"feelNoPain,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Cover      bool     `json:"cover,omitempty"`

	ReduceDamage int  `json:"reduceDamage,omitempty"`
	HalveDamage  bool `json:"halveDamage,omitempty"`
}

// Modifiers are the per-calculation toggles. The rule fields layer
// extra weapon rules over the submitted profile (a stratagem granting
// Lethal Hits, for example); they never strip a rule the weapon
// already carries. feelNoPain, when set, replaces the defender's own
// threshold.
type Modifiers struct {
	RerollHits   string `json:"rerollHits,omitempty"`
	RerollWounds string `json:"rerollWounds,omitempty"`
	RerollDamage string `json:"rerollDamage,omitempty"`
	PlusToHit    int    `json:"plusToHit,omitempty"`
	PlusToWound  int    `json:"plusToWound,omitempty"`
	Cover        bool   `json:"cover,omitempty"`
	Stealth      bool   `json:"stealth,omitempty"`

	LethalHits        bool   `json:"lethalHits,omitempty"`
	SustainedHits     int    `json:"sustainedHits,omitempty"`
	DevastatingWounds bool   `json:"devastatingWounds,omitempty"`
	AntiX             *AntiX `json:"antiX,omitempty"`
	FeelNoPain        *int   `json:"feelNoPain,omitempty"`

	WoundMin           int  `json:"woundMin,omitempty"`
	HalfRange          bool `json:"halfRange,omitempty"`
	Charged            bool `json:"charged,omitempty"`
	RemainedStationary bool `json:"remainedStationary,omitempty"`
}

// CalcRequest is the body of POST /api/mathhammer.
type CalcRequest struct {
	Weapon    Weapon    `json:"weapon"`
	Defender  Defender  `json:"defender"`
	Modifiers Modifiers `json:"modifiers"`
	Trace     bool      `json:"trace,omitempty"` // include one rolled-out example
}

// Breakdown mirrors the engine's per-stage expected values.
type Breakdown struct {
	Attacks      float64 `json:"attacks"`
	Hits         float64 `json:"hits"`
	BonusHits    float64 `json:"bonusHits,omitempty"`
	AutoWounds   float64 `json:"autoWounds,omitempty"`
	Wounds       float64 `json:"wounds"`
	MortalWounds float64 `json:"mortalWounds,omitempty"`
	FailedSaves  float64 `json:"failedSaves"`
}

// CalcResult is the calculator response. probabilities,
// probabilityAtLeast and variance describe the kill-count
// distribution; the damage distribution rides alongside.
type CalcResult struct {
	ExpectedDamage     float64   `json:"expectedDamage"`
	ExpectedKills      float64   `json:"expectedKills"`
	Probabilities      []float64 `json:"probabilities"`
	ProbabilityAtLeast []float64 `json:"probabilityAtLeast"`
	Variance           float64   `json:"variance"`

	DamageVariance      float64   `json:"damageVariance"`
	DamageProbabilities []float64 `json:"damageProbabilities"`
	Breakdown           Breakdown `json:"breakdown"`

	Trace *mathhammer.SimResult `json:"trace,omitempty"`
}

// MatrixRequest is the body of POST /api/mathhammer/matrix: every
// weapon is priced into every defender under one modifier set.
type MatrixRequest struct {
	Weapons   []Weapon   `json:"weapons"`
	Defenders []Defender `json:"defenders"`
	Modifiers Modifiers  `json:"modifiers"`
}

// MatrixCell is one pairing of the matrix response. Failed cells carry
// the validation message instead of a result.
type MatrixCell struct {
	Weapon   string      `json:"weapon"`
	Defender string      `json:"defender"`
	Result   *CalcResult `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type MatrixResult struct {
	Cells [][]MatrixCell `json:"cells"`
}

// ErrorResponse is the uniform error body for every API route.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WsMsg is the envelope for session feed frames.
type WsMsg struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
