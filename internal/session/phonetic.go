package session

import "strings"

// corrections maps lowercase transcriptions to canonical names.
// Speech-to-text mangles 40k vocabulary in predictable ways; keys are
// the mishearings we have actually seen, never canonical spellings, so
// correcting a correct name is a no-op.
var corrections = map[string]string{
	"inter sessors":     "Intercessors",
	"intercessers":      "Intercessors",
	"inter cessor":      "Intercessor",
	"a gressors":        "Aggressors",
	"hell blasters":     "Hellblasters",
	"infernace":         "Infernus",
	"infernus marines":  "Infernus Squad",
	"blade guard":       "Bladeguard Veterans",
	"vulcan histan":     "Vulkan He'stan",
	"car nifex":         "Carnifex",
	"zone thropes":      "Zoanthropes",
	"zoan thropes":      "Zoanthropes",
	"gene stealers":     "Genestealers",
	"war boss":          "Warboss",
	"boys":              "Boyz",
	"nobs":              "Nobz",
	"mega nobs":         "Meganobz",
	"loot as":           "Lootas",
	"pox walkers":       "Poxwalkers",
	"plague bearers":    "Plaguebearers",
	"death shroud":      "Deathshroud Terminators",
	"cus todes":         "Custodes",
	"kas kins":          "Kasrkin",
	"cads ians":         "Cadians",
	"termagaunts":       "Termagants",
	"heavy inter says":  "Heavy Intercessors",
	"storm boltor":      "storm bolter",
	"melt a gun":        "meltagun",
	"plasma incinerate": "plasma incinerator",
}

// CorrectName resolves a spoken-style unit or weapon name to its
// canonical form. Lookup is case-insensitive with whitespace
// collapsed; unknown names come back unchanged.
func CorrectName(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if c, ok := corrections[key]; ok {
		return c
	}
	return name
}
