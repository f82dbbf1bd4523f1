package datasheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	intRe   = regexp.MustCompile(`-?\d+`)
	blastRe = regexp.MustCompile(`\bblast\b`)
	heavyRe = regexp.MustCompile(`\bheavy\b`)
	lanceRe = regexp.MustCompile(`\blance\b`)
)

// firstInt returns the first integer appearing in s, or def.
func firstInt(s string, def int) int {
	m := intRe.FindString(s)
	if m == "" {
		return def
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return def
	}
	return n
}

// weaponRules is what the keyword scan finds in a weapon's type and
// description text.
type weaponRules struct {
	Lethal      bool
	Sustained   int
	Devastating bool
	AntiKeyword string
	AntiValue   int
	Torrent     bool
	TwinLinked  bool
	RapidFire   int
	Blast       bool
	Heavy       bool
	Lance       bool
	Tags        []string
}

// scanWeaponRules derives special rules from the free-text columns of
// a wargear row. The exports spell rules inside the type string
// ("Ranged, Rapid Fire 1") and ability text, so this is a lowercase
// substring scan, not a grammar.
func scanWeaponRules(parts ...string) weaponRules {
	blob := strings.ToLower(strings.Join(parts, " "))
	var r weaponRules

	if strings.Contains(blob, "lethal hits") {
		r.Lethal = true
		r.Tags = append(r.Tags, "Lethal Hits")
	}
	if strings.Contains(blob, "twin-linked") {
		r.TwinLinked = true
		r.Tags = append(r.Tags, "Twin-linked")
	}
	if strings.Contains(blob, "torrent") {
		r.Torrent = true
		r.Tags = append(r.Tags, "Torrent")
	}
	if strings.Contains(blob, "devastating wounds") {
		r.Devastating = true
		r.Tags = append(r.Tags, "Devastating Wounds")
	}
	if blastRe.MatchString(blob) {
		r.Blast = true
		r.Tags = append(r.Tags, "Blast")
	}
	if heavyRe.MatchString(blob) {
		r.Heavy = true
		r.Tags = append(r.Tags, "Heavy")
	}
	if lanceRe.MatchString(blob) {
		r.Lance = true
		r.Tags = append(r.Tags, "Lance")
	}

	if idx := strings.Index(blob, "sustained hits"); idx >= 0 {
		sub := strings.TrimSpace(blob[idx+len("sustained hits"):])
		n := diceCount(sub)
		if n > 0 {
			r.Sustained = n
			r.Tags = append(r.Tags, fmt.Sprintf("Sustained Hits %d", n))
		}
	}
	if idx := strings.Index(blob, "rapid fire"); idx >= 0 {
		sub := strings.TrimSpace(blob[idx+len("rapid fire"):])
		n := diceCount(sub)
		if n > 0 {
			r.RapidFire = n
			r.Tags = append(r.Tags, fmt.Sprintf("Rapid Fire %d", n))
		}
	}
	if idx := strings.Index(blob, "anti-"); idx >= 0 {
		sub := blob[idx+len("anti-"):]
		tag := strings.TrimSpace(sub)
		if p := strings.IndexAny(tag, " (\n\t,"); p >= 0 {
			tag = strings.TrimSpace(tag[:p])
		}
		n := 0
		if p := strings.Index(sub, "("); p >= 0 {
			n = firstInt(sub[p+1:], 0)
		} else {
			n = firstInt(sub, 0)
		}
		if tag != "" && n >= 2 && n <= 6 {
			r.AntiKeyword = tag
			r.AntiValue = n
			r.Tags = append(r.Tags, fmt.Sprintf("Anti-%s (%d+)", tag, n))
		}
	}
	return r
}

// diceCount reads the level after a rule name. A few rules print a
// die instead of a number; those get a flat stand-in, D3 as 2 and D6
// as 4.
func diceCount(s string) int {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "d3") {
		return 2
	}
	if strings.HasPrefix(s, "d6") {
		return 4
	}
	return firstInt(s, 0)
}

// abilityEffects scans a unit's ability text for the defensive
// numbers the calculator can price: Feel No Pain, flat damage
// reduction, and halved damage.
func abilityEffects(abs []Ability) (fnp, reduce int, halve bool) {
	for _, a := range abs {
		text := strings.ToLower(a.Description + " " + a.Name)

		if strings.Contains(text, "feel no pain") || strings.Contains(text, "fnp") {
			n := 0
			for i := 0; i+1 < len(text); i++ {
				if text[i] >= '2' && text[i] <= '6' && text[i+1] == '+' {
					n = int(text[i] - '0')
					break
				}
			}
			if n >= 2 && n <= 6 && (fnp == 0 || n < fnp) {
				fnp = n
			}
		}

		reduces := strings.Contains(text, "reduce damage by") ||
			strings.Contains(text, "damage reduction") ||
			strings.Contains(text, "-1 damage") ||
			(strings.Contains(text, "reduce") && strings.Contains(text, "damage characteristic"))
		if reduces {
			n := 1
			if idx := strings.Index(text, "reduce damage by"); idx >= 0 {
				n = firstInt(text[idx+len("reduce damage by"):], 1)
			} else if idx := strings.Index(text, "damage reduction"); idx >= 0 {
				n = firstInt(text[idx+len("damage reduction"):], 1)
			} else if idx := strings.Index(text, "damage characteristic"); idx >= 0 {
				n = firstInt(text[idx+len("damage characteristic"):], 1)
			}
			if n < 0 {
				n = -n
			}
			if n > reduce {
				reduce = n
			}
		}

		if strings.Contains(text, "halve") && strings.Contains(text, "damage") {
			halve = true
		}
	}
	return fnp, reduce, halve
}
