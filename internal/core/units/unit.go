package units

import (
	"fmt"
	"math/big"
	"strings"
)

// Dimension indexes one position of a unit vector.
type Dimension int

const (
	Meter Dimension = iota
	Gram
	Second
	Ampere
	Kelvin
	Mole
	Candela
	CurrencyEUR
	CurrencyDKK
	Person
	Impulse
	ProductionA
	ProductionB
	ProductionC
	ProductionD
	ProductionE

	numDimensions
)

var dimensionNames = [numDimensions]string{
	"meter",
	"gram",
	"second",
	"ampere",
	"kelvin",
	"mole",
	"candela",
	"currency_eur",
	"currency_dkk",
	"person",
	"impulse",
	"production_a",
	"production_b",
	"production_c",
	"production_d",
	"production_e",
}

// Vector holds the signed exponent of every base dimension.
type Vector [numDimensions]int

// Dimensionless reports whether all exponents are zero.
func (v Vector) Dimensionless() bool {
	return v == Vector{}
}

func (v Vector) add(o Vector) Vector {
	var out Vector
	for i := range v {
		out[i] = v[i] + o[i]
	}
	return out
}

func (v Vector) scale(n int) Vector {
	var out Vector
	for i := range v {
		out[i] = v[i] * n
	}
	return out
}

// String renders the vector as a unit expression over base names,
// e.g. "gram*meter^2*second^-3".
func (v Vector) String() string {
	var factors []string
	for i, exp := range v {
		switch exp {
		case 0:
			continue
		case 1:
			factors = append(factors, dimensionNames[i])
		default:
			factors = append(factors, fmt.Sprintf("%s^%d", dimensionNames[i], exp))
		}
	}
	if len(factors) == 0 {
		return "none"
	}
	return strings.Join(factors, "*")
}

// Unit is a resolved unit expression: a scale relative to the base
// dimensions and the dimension vector.
type Unit struct {
	scale  *big.Rat
	vector Vector
}

func baseUnit(d Dimension) Unit {
	var v Vector
	v[d] = 1
	return Unit{scale: big.NewRat(1, 1), vector: v}
}

func dimensionless() Unit {
	return Unit{scale: big.NewRat(1, 1)}
}

// Scale returns a copy of the unit's scale factor.
func (u Unit) Scale() *big.Rat {
	if u.scale == nil {
		return big.NewRat(1, 1)
	}
	return new(big.Rat).Set(u.scale)
}

// Vector returns the unit's dimension vector.
func (u Unit) Vector() Vector {
	return u.vector
}

func (u Unit) mul(o Unit) Unit {
	return Unit{
		scale:  new(big.Rat).Mul(u.Scale(), o.Scale()),
		vector: u.vector.add(o.vector),
	}
}

func (u Unit) pow(n int) Unit {
	return Unit{
		scale:  ratPow(u.Scale(), n),
		vector: u.vector.scale(n),
	}
}

func (u Unit) scaled(r *big.Rat) Unit {
	return Unit{
		scale:  new(big.Rat).Mul(u.Scale(), r),
		vector: u.vector,
	}
}

func ratPow(r *big.Rat, n int) *big.Rat {
	out := big.NewRat(1, 1)
	base := new(big.Rat).Set(r)
	if n < 0 {
		base.Inv(base)
		n = -n
	}
	for ; n > 0; n-- {
		out.Mul(out, base)
	}
	return out
}
