package units

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// prefixes are applied to any registered name, e.g. "milliwatt",
// "kilogram", "millicurrency_dkk" and "quarteryear".
var prefixes = map[string]string{
	"yocto":   "1e-24",
	"zepto":   "1e-21",
	"atto":    "1e-18",
	"femto":   "1e-15",
	"pico":    "1e-12",
	"nano":    "1e-9",
	"micro":   "1e-6",
	"milli":   "1e-3",
	"centi":   "1e-2",
	"deci":    "1e-1",
	"deca":    "10",
	"hecto":   "100",
	"kilo":    "1e3",
	"mega":    "1e6",
	"giga":    "1e9",
	"tera":    "1e12",
	"peta":    "1e15",
	"exa":     "1e18",
	"zetta":   "1e21",
	"yotta":   "1e24",
	"quarter": "1/4",
}

type prefix struct {
	name  string
	scale *big.Rat
}

// registry maps unit names to resolved units. It is filled once at package
// initialisation and only read afterwards.
type registry struct {
	units    map[string]Unit
	prefixes []prefix
}

var defaultRegistry = newRegistry()

func newRegistry() *registry {
	r := &registry{units: make(map[string]Unit)}
	for name, value := range prefixes {
		r.prefixes = append(r.prefixes, prefix{name: name, scale: mustRat(value)})
	}
	// longest first so "deca" is tried before shorter overlapping names
	sort.Slice(r.prefixes, func(i, j int) bool {
		if len(r.prefixes[i].name) != len(r.prefixes[j].name) {
			return len(r.prefixes[i].name) > len(r.prefixes[j].name)
		}
		return r.prefixes[i].name < r.prefixes[j].name
	})

	r.units["none"] = dimensionless()
	for d := Dimension(0); d < numDimensions; d++ {
		r.units[dimensionNames[d]] = baseUnit(d)
	}

	for _, def := range definitions {
		if err := r.define(def.name, def.amount, def.expr); err != nil {
			panic(fmt.Sprintf("units: bad definition of %q: %v", def.name, err))
		}
	}
	return r
}

type definition struct {
	name   string
	amount string
	expr   string
}

// definitions are resolved in order; each expression may only refer to
// names defined above it.
var definitions = []definition{
	// SI derived
	{"hertz", "1", "second^-1"},
	{"newton", "1", "kilogram*meter*second^-2"},
	{"pascal", "1", "newton*meter^-2"},
	{"joule", "1", "newton*meter"},
	{"watt", "1", "joule*second^-1"},
	{"coulomb", "1", "ampere*second"},
	{"volt", "1", "watt*ampere^-1"},
	{"farad", "1", "coulomb*volt^-1"},
	{"ohm", "1", "volt*ampere^-1"},
	{"siemens", "1", "ampere*volt^-1"},
	{"weber", "1", "volt*second"},
	{"tesla", "1", "weber*meter^-2"},
	{"henry", "1", "weber*ampere^-1"},
	{"lumen", "1", "candela"},
	{"lux", "1", "lumen*meter^-2"},
	{"becquerel", "1", "second^-1"},
	{"gray", "1", "joule*kilogram^-1"},
	{"sievert", "1", "joule*kilogram^-1"},
	{"katal", "1", "mole*second^-1"},

	// common non-SI
	{"minute", "60", "second"},
	{"hour", "60", "minute"},
	{"day", "24", "hour"},
	{"are", "100", "meter^2"},
	{"hectare", "10000", "meter^2"},
	{"litre", "1", "decimeter^3"},
	{"liter", "1", "decimeter^3"},
	{"tonne", "1000", "kilogram"},
	{"bar", "100000", "pascal"},
	{"atmosphere", "101325", "pascal"},
	{"torr", "101325/760", "pascal"},
	{"angstrom", "1e-10", "meter"},
	{"barn", "1e-28", "meter^2"},
	{"barye", "1/10", "pascal"},
	{"electronvolt", "1.602176565e-19", "joule"},
	{"dalton", "1.66053886e-27", "kilogram"},

	// imperial and friends
	{"inch", "2.54", "centimeter"},
	{"foot", "12", "inch"},
	{"yard", "3", "foot"},
	{"mile", "1760", "yard"},
	{"pound", "453.59237", "gram"},
	{"ounce", "1/16", "pound"},
	{"rankine", "5/9", "kelvin"},
	{"percent", "1/100", "none"},

	// calendar approximations used for subscription intervals
	{"year", "365", "day"},
	{"month", "30", "day"},
	{"week", "7", "day"},
}

func (r *registry) define(name, amount, expr string) error {
	value, ok := new(big.Rat).SetString(amount)
	if !ok {
		return fmt.Errorf("invalid amount %q", amount)
	}
	u, err := r.parse(expr)
	if err != nil {
		return err
	}
	r.units[name] = u.scaled(value)
	return nil
}

// lookup resolves a single unit name, trying registered names first and
// then a prefix followed by a registered name.
func (r *registry) lookup(name string) (Unit, bool) {
	if u, ok := r.units[name]; ok {
		return u, true
	}
	for _, p := range r.prefixes {
		rest, found := strings.CutPrefix(name, p.name)
		if !found || rest == "" {
			continue
		}
		if u, ok := r.units[rest]; ok {
			return u.scaled(p.scale), true
		}
	}
	return Unit{}, false
}

func mustRat(s string) *big.Rat {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic(fmt.Sprintf("units: invalid rational literal %q", s))
	}
	return r
}
