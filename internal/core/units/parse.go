package units

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
)

var parseMemo sync.Map // unit string -> Unit

// ParseUnit resolves a unit expression such as "kilowatt*hour",
// "currency_dkk*meter^-3" or "milliwatt*hour/meter^3". The empty string and
// "none" are dimensionless. Results are memoized.
func ParseUnit(s string) (Unit, error) {
	if cached, ok := parseMemo.Load(s); ok {
		return cached.(Unit), nil
	}
	u, err := defaultRegistry.parse(s)
	if err != nil {
		return Unit{}, err
	}
	parseMemo.Store(s, u)
	return u, nil
}

// MustParseUnit is ParseUnit for unit strings known at compile time.
func MustParseUnit(s string) Unit {
	u, err := ParseUnit(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (r *registry) parse(s string) (Unit, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return dimensionless(), nil
	}
	if strings.Count(s, "/") > 1 {
		return Unit{}, fmt.Errorf("%w: more than one '/' in %q", coreerrors.ErrUnitParse, s)
	}

	numerator, denominator, hasDenominator := strings.Cut(s, "/")
	u, err := r.parseProduct(numerator)
	if err != nil {
		return Unit{}, fmt.Errorf("%w in %q", err, s)
	}
	if hasDenominator {
		d, err := r.parseProduct(denominator)
		if err != nil {
			return Unit{}, fmt.Errorf("%w in %q", err, s)
		}
		u = u.mul(d.pow(-1))
	}
	return u, nil
}

func (r *registry) parseProduct(s string) (Unit, error) {
	u := dimensionless()
	for _, factor := range strings.Split(s, "*") {
		factor = strings.TrimSpace(factor)
		if factor == "" {
			return Unit{}, fmt.Errorf("%w: empty factor", coreerrors.ErrUnitParse)
		}
		name, power, hasPower := strings.Cut(factor, "^")
		exponent := 1
		if hasPower {
			n, err := strconv.Atoi(power)
			if err != nil {
				return Unit{}, fmt.Errorf("%w: non-integer power %q", coreerrors.ErrUnitParse, power)
			}
			exponent = n
		}
		base, ok := r.lookup(name)
		if !ok {
			return Unit{}, fmt.Errorf("%w: unknown unit %q", coreerrors.ErrUnitParse, name)
		}
		u = u.mul(base.pow(exponent))
	}
	return u, nil
}
