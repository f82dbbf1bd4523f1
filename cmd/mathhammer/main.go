// Command mathhammer is the terminal calculator: one weapon into one
// target, with the full probability readout. Profiles come from stat
// flags, from a local export directory, or from a running companion
// server.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mordian/w40k-companion/internal/api"
	"github.com/mordian/w40k-companion/internal/datasheet"
	"github.com/mordian/w40k-companion/internal/mathhammer"
	"github.com/mordian/w40k-companion/internal/models"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// source resolves datasheet references, either from a local export
// directory or over HTTP from the API server.
type source interface {
	Unit(faction, unit string) (*datasheet.Detail, error)
}

type localSource struct{ store *datasheet.Store }

func (l localSource) Unit(faction, unit string) (*datasheet.Detail, error) {
	f, ok := l.store.FindFaction(faction)
	if !ok {
		return nil, fmt.Errorf("unknown faction: %s", faction)
	}
	u, ok := l.store.FindUnit(f.ID, unit)
	if !ok {
		return nil, fmt.Errorf("unknown unit %q in %s", unit, f.Name)
	}
	d, ok := l.store.Detail(u.ID)
	if !ok {
		return nil, fmt.Errorf("unknown unit %q in %s", unit, f.Name)
	}
	return d, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("mathhammer", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		attacks  = flags.String("attacks", "1", "attack characteristic, flat or dice (\"2D6\", \"D3+1\")")
		skill    = flags.Int("skill", 4, "ballistic or weapon skill")
		strength = flags.Int("strength", 4, "strength characteristic")
		ap       = flags.Int("ap", 0, "armour penetration as a positive number")
		damage   = flags.String("damage", "1", "damage characteristic, flat or dice")

		lethal      = flags.Bool("lethal", false, "Lethal Hits")
		sustained   = flags.Int("sustained", 0, "Sustained Hits N")
		devastating = flags.Bool("devastating", false, "Devastating Wounds")
		anti        = flags.String("anti", "", "Anti-X as \"keyword threshold\", e.g. \"infantry 4\"")
		torrent     = flags.Bool("torrent", false, "Torrent, hits automatically")
		twin        = flags.Bool("twin", false, "Twin-linked, reroll wounds")
		rapidFire   = flags.Int("rapid-fire", 0, "Rapid Fire N, needs -half-range")
		blast       = flags.Bool("blast", false, "Blast, bonus attacks per five target models")
		heavy       = flags.Bool("heavy", false, "Heavy, +1 to hit when -stationary")
		lance       = flags.Bool("lance", false, "Lance, +1 to wound when -charged")

		toughness = flags.Int("toughness", 4, "target toughness")
		save      = flags.Int("save", 3, "target armour save")
		invuln    = flags.Int("invuln", 0, "target invulnerable save, 0 for none")
		wounds    = flags.Int("wounds", 1, "wounds per target model")
		modelCnt  = flags.Int("models", 1, "target model count")
		fnp       = flags.Int("fnp", 0, "target Feel No Pain, 0 for none")
		keywords  = flags.String("keywords", "", "target keywords, comma separated (checked by -anti)")
		reduceDmg = flags.Int("reduce-damage", 0, "target reduces each damage instance by N")
		halveDmg  = flags.Bool("halve-damage", false, "target halves each damage instance, rounding up")

		rerollHits   = flags.String("reroll-hits", "", "hit reroll policy: ones|all")
		rerollWounds = flags.String("reroll-wounds", "", "wound reroll policy: ones|all")
		rerollDamage = flags.String("reroll-damage", "", "damage reroll policy: ones|all")
		hitMod       = flags.Int("hit-mod", 0, "to-hit modifier, capped at net +/-1")
		woundMod     = flags.Int("wound-mod", 0, "to-wound modifier, capped at net +/-1")
		cover        = flags.Bool("cover", false, "target is in cover")
		stealth      = flags.Bool("stealth", false, "target has Stealth")
		halfRange    = flags.Bool("half-range", false, "firing within half range")
		charged      = flags.Bool("charged", false, "attacker charged this turn")
		stationary   = flags.Bool("stationary", false, "attacker remained stationary")

		dataDir  = flags.String("data", "", "resolve datasheets from a local export directory")
		apiBase  = flags.String("api", getenv("DATA_API_BASE", "http://localhost:8080"), "companion server base URL")
		faction  = flags.String("faction", "", "attacker faction, with -unit")
		unit     = flags.String("unit", "", "attacker datasheet, by name or id")
		weapon   = flags.String("weapon", "", "weapon name when the datasheet carries several")
		tFaction = flags.String("target-faction", "", "target faction, with -target-unit")
		tUnit    = flags.String("target-unit", "", "target datasheet, by name or id")
		tModels  = flags.Int("target-models", 0, "target size when resolving -target-unit")

		trace   = flags.Bool("trace", false, "append one simulated volley")
		jsonOut = flags.Bool("json", false, "emit the result as JSON")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	wpn := models.Weapon{
		Attacks:    models.DiceValue(strings.ToUpper(*attacks)),
		Skill:      *skill,
		Strength:   *strength,
		AP:         *ap,
		Damage:     models.DiceValue(strings.ToUpper(*damage)),
		Torrent:    *torrent,
		TwinLinked: *twin,
		RapidFire:  *rapidFire,
		Blast:      *blast,
		Heavy:      *heavy,
		Lance:      *lance,
	}
	if *torrent {
		wpn.Skill = 0
	}
	def := models.Defender{
		Toughness:    *toughness,
		Save:         *save,
		Invuln:       *invuln,
		Wounds:       *wounds,
		Models:       *modelCnt,
		Keywords:     splitCSV(*keywords),
		ReduceDamage: *reduceDmg,
		HalveDamage:  *halveDmg,
	}
	// rule grants ride on the modifier surface so they layer onto
	// datasheet-derived weapons the same as onto stat flags
	mods := models.Modifiers{
		RerollHits:         *rerollHits,
		RerollWounds:       *rerollWounds,
		RerollDamage:       *rerollDamage,
		PlusToHit:          *hitMod,
		PlusToWound:        *woundMod,
		Cover:              *cover,
		Stealth:            *stealth,
		HalfRange:          *halfRange,
		Charged:            *charged,
		RemainedStationary: *stationary,
		LethalHits:         *lethal,
		SustainedHits:      *sustained,
		DevastatingWounds:  *devastating,
	}
	if *anti != "" {
		ax, err := parseAnti(*anti)
		if err != nil {
			return err
		}
		mods.AntiX = ax
	}
	if *fnp > 0 {
		mods.FeelNoPain = fnp
	}

	calc := calcLocal
	var src source
	if *unit != "" || *tUnit != "" {
		if *dataDir != "" {
			store, err := datasheet.New(*dataDir)
			if err != nil {
				return fmt.Errorf("load exports: %w", err)
			}
			src = localSource{store}
		} else {
			client := api.NewClient(*apiBase)
			src = client
			calc = client.Calculate
		}
	}
	if *unit != "" {
		if *faction == "" {
			return errors.New("-unit needs -faction")
		}
		d, err := src.Unit(*faction, *unit)
		if err != nil {
			return err
		}
		wpn, err = pickWeapon(d.Profiles, *weapon)
		if err != nil {
			return err
		}
	}
	if *tUnit != "" {
		if *tFaction == "" {
			return errors.New("-target-unit needs -target-faction")
		}
		d, err := src.Unit(*tFaction, *tUnit)
		if err != nil {
			return err
		}
		if d.Defender == nil {
			return fmt.Errorf("%s has no model profile", d.Unit.Name)
		}
		def = *d.Defender
		if *tModels > 0 {
			def.Models = *tModels
		}
	}

	res, err := calc(models.CalcRequest{Weapon: wpn, Defender: def, Modifiers: mods, Trace: *trace})
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(stdout, wpn, def, mods, res)
	return nil
}

// calcLocal runs the engine in process.
func calcLocal(req models.CalcRequest) (*models.CalcResult, error) {
	wp, dp, m, err := req.Build()
	if err != nil {
		return nil, err
	}
	r, err := mathhammer.Calculate(wp, dp, m)
	if err != nil {
		return nil, err
	}
	out := models.NewCalcResult(r)
	if req.Trace {
		if sim, err := mathhammer.Simulate(wp, dp, m, nil); err == nil {
			out.Trace = sim
		}
	}
	return out, nil
}

// parseAnti reads the -anti flag: a keyword and an unmodified wound
// threshold, space separated.
func parseAnti(s string) (*models.AntiX, error) {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return nil, fmt.Errorf("anti wants \"keyword threshold\", got %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(parts[len(parts)-1], "+"))
	if err != nil {
		return nil, fmt.Errorf("anti threshold %q is not a number", parts[len(parts)-1])
	}
	return &models.AntiX{
		Keyword:   strings.Join(parts[:len(parts)-1], " "),
		Threshold: n,
	}, nil
}

// pickWeapon selects one derived profile by name. A unit with one
// weapon needs no -weapon flag.
func pickWeapon(profiles []models.Weapon, name string) (models.Weapon, error) {
	if len(profiles) == 0 {
		return models.Weapon{}, errors.New("unit has no weapon profiles")
	}
	if name == "" {
		if len(profiles) == 1 {
			return profiles[0], nil
		}
		names := make([]string, len(profiles))
		for i, p := range profiles {
			names[i] = p.Name
		}
		return models.Weapon{}, fmt.Errorf("pick one of the unit's weapons with -weapon: %s", strings.Join(names, ", "))
	}
	for _, p := range profiles {
		if nameEq(p.Name, name) {
			return p, nil
		}
	}
	return models.Weapon{}, fmt.Errorf("no weapon %q on this unit", name)
}

// nameEq compares names ignoring case and dash/space differences, so
// "bolt-rifle" picks "Bolt rifle".
func nameEq(a, b string) bool {
	return normName(a) == normName(b)
}

func normName(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' })
	return strings.ToLower(strings.Join(fields, " "))
}

// activeRules lists the weapon rules in play, with modifier grants
// layered over the profile the same way the engine layers them.
func activeRules(w models.Weapon, m models.Modifiers) []string {
	anti := w.AntiX
	if anti == nil {
		anti = m.AntiX
	}
	var out []string
	if w.Torrent {
		out = append(out, "Torrent")
	}
	if w.LethalHits || m.LethalHits {
		out = append(out, "Lethal Hits")
	}
	if n := max(w.SustainedHits, m.SustainedHits); n > 0 {
		out = append(out, fmt.Sprintf("Sustained Hits %d", n))
	}
	if w.DevastatingWounds || m.DevastatingWounds {
		out = append(out, "Devastating Wounds")
	}
	if anti != nil {
		out = append(out, fmt.Sprintf("Anti-%s %d+", anti.Keyword, anti.Threshold))
	}
	if w.TwinLinked {
		out = append(out, "Twin-linked")
	}
	if w.RapidFire > 0 {
		out = append(out, fmt.Sprintf("Rapid Fire %d", w.RapidFire))
	}
	if w.Blast {
		out = append(out, "Blast")
	}
	if w.Heavy {
		out = append(out, "Heavy")
	}
	if w.Lance {
		out = append(out, "Lance")
	}
	return out
}

func printResult(w io.Writer, wpn models.Weapon, def models.Defender, mods models.Modifiers, res *models.CalcResult) {
	name := wpn.Name
	if name == "" {
		name = "Weapon"
	}
	skill := "N/A"
	if wpn.Skill > 0 {
		skill = fmt.Sprintf("%d+", wpn.Skill)
	}
	apStr := "AP0"
	if wpn.AP > 0 {
		apStr = fmt.Sprintf("AP-%d", wpn.AP)
	}
	fmt.Fprintf(w, "%s  A%s  %s  S%d  %s  D%s", name, wpn.Attacks, skill, wpn.Strength, apStr, wpn.Damage)
	if rules := activeRules(wpn, mods); len(rules) > 0 {
		fmt.Fprintf(w, "  [%s]", strings.Join(rules, ", "))
	}
	fmt.Fprintln(w)

	tName := def.Name
	if tName == "" {
		tName = "Target"
	}
	inv := ""
	if def.Invuln > 0 {
		inv = fmt.Sprintf("/%d++", def.Invuln)
	}
	feelNoPain := def.FeelNoPain
	if mods.FeelNoPain != nil {
		feelNoPain = *mods.FeelNoPain
	}
	fnpStr := ""
	if feelNoPain > 0 {
		fnpStr = fmt.Sprintf("  FNP %d+", feelNoPain)
	}
	fmt.Fprintf(w, "vs %s  T%d  Sv%d+%s  W%d  x%d%s\n\n", tName, def.Toughness, def.Save, inv, def.Wounds, def.Models, fnpStr)

	b := res.Breakdown
	fmt.Fprintf(w, "  attacks        %7.2f\n", b.Attacks)
	fmt.Fprintf(w, "  hits           %7.2f\n", b.Hits)
	if b.BonusHits > 0 {
		fmt.Fprintf(w, "  bonus hits     %7.2f\n", b.BonusHits)
	}
	if b.AutoWounds > 0 {
		fmt.Fprintf(w, "  auto wounds    %7.2f\n", b.AutoWounds)
	}
	fmt.Fprintf(w, "  wounds         %7.2f\n", b.Wounds)
	if b.MortalWounds > 0 {
		fmt.Fprintf(w, "  mortal wounds  %7.2f\n", b.MortalWounds)
	}
	fmt.Fprintf(w, "  failed saves   %7.2f\n", b.FailedSaves)

	fmt.Fprintf(w, "\nExpected damage: %.2f  (variance %.2f)\n", res.ExpectedDamage, res.DamageVariance)
	fmt.Fprintf(w, "Expected kills:  %.2f of %d\n\n", res.ExpectedKills, def.Models)

	fmt.Fprintf(w, "  kills      P(=k)     P(>=k)\n")
	for k, p := range res.Probabilities {
		fmt.Fprintf(w, "  %5d   %8.4f   %8.4f\n", k, p, res.ProbabilityAtLeast[k])
	}

	if res.Trace != nil {
		fmt.Fprintf(w, "\nOne simulated volley:\n")
		for _, line := range res.Trace.Logs {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintf(w, "  => %d damage, %d model(s) slain\n", res.Trace.Damage, res.Trace.Kills)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
