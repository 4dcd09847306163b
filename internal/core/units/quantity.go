package units

import (
	"fmt"
	"log/slog"
	"math"
	"math/big"

	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/shopspring/decimal"
)

// Quantity is an exact rational value with a dimension vector. The value is
// stored relative to the base dimensions, so two quantities with equal
// vectors can be combined regardless of the unit they were created in.
//
// The zero Quantity is not a physical quantity; every operation on it fails
// with ErrNotPhysicalQuantity.
type Quantity struct {
	value  *big.Rat
	vector Vector
}

// New creates a quantity of value in the given unit.
func New(value *big.Rat, unit string) (Quantity, error) {
	if value == nil {
		return Quantity{}, fmt.Errorf("%w: nil value", coreerrors.ErrNotPhysicalQuantity)
	}
	u, err := ParseUnit(unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{
		value:  new(big.Rat).Mul(value, u.Scale()),
		vector: u.vector,
	}, nil
}

// MustNew is New for literals known to be valid.
func MustNew(value *big.Rat, unit string) Quantity {
	q, err := New(value, unit)
	if err != nil {
		panic(err)
	}
	return q
}

// FromInt creates a quantity from an integer value.
func FromInt(value int64, unit string) (Quantity, error) {
	return New(new(big.Rat).SetInt64(value), unit)
}

// FromString parses an exact literal ("42", "0.125", "5/9").
func FromString(value, unit string) (Quantity, error) {
	r, ok := new(big.Rat).SetString(value)
	if !ok {
		return Quantity{}, fmt.Errorf("%w: invalid literal %q", coreerrors.ErrNotPhysicalQuantity, value)
	}
	return New(r, unit)
}

// FromDecimal creates a quantity from a decimal literal without loss.
func FromDecimal(value decimal.Decimal, unit string) (Quantity, error) {
	return New(value.Rat(), unit)
}

// FromFloat creates a quantity from a binary float. The float's exact value
// is kept, which is rarely what the caller meant, so this logs a warning.
func FromFloat(value float64, unit string) (Quantity, error) {
	slog.Warn("[Units] Quantity created from float; prefer exact literals",
		"value", value,
		"unit", unit)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Quantity{}, fmt.Errorf("%w: %v", coreerrors.ErrNotPhysicalQuantity, value)
	}
	return New(new(big.Rat).SetFloat64(value), unit)
}

// Zero returns the neutral element of addition for the unit's vector.
func Zero(unit string) (Quantity, error) {
	return New(new(big.Rat), unit)
}

// ZeroOf returns zero with the same vector as q.
func ZeroOf(q Quantity) Quantity {
	return Quantity{value: new(big.Rat), vector: q.vector}
}

// IsValid reports whether q was constructed as a physical quantity.
func (q Quantity) IsValid() bool {
	return q.value != nil
}

// Vector returns the dimension vector.
func (q Quantity) Vector() Vector {
	return q.vector
}

// Base returns a copy of the value expressed in base dimensions.
func (q Quantity) Base() *big.Rat {
	if q.value == nil {
		return nil
	}
	return new(big.Rat).Set(q.value)
}

// Dimensionless reports whether q has the empty vector.
func (q Quantity) Dimensionless() bool {
	return q.vector.Dimensionless()
}

func checkValid(qs ...Quantity) error {
	for _, q := range qs {
		if q.value == nil {
			return coreerrors.ErrNotPhysicalQuantity
		}
	}
	return nil
}

func (q Quantity) requireSameVector(o Quantity, op string) error {
	if err := checkValid(q, o); err != nil {
		return err
	}
	if q.vector != o.vector {
		return fmt.Errorf("%w: cannot %s %s and %s", coreerrors.ErrIncompatibleUnits, op, q.vector, o.vector)
	}
	return nil
}

// Add returns q + o; both must have the same vector.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	if err := q.requireSameVector(o, "add"); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: new(big.Rat).Add(q.value, o.value), vector: q.vector}, nil
}

// Sub returns q - o; both must have the same vector.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if err := q.requireSameVector(o, "subtract"); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: new(big.Rat).Sub(q.value, o.value), vector: q.vector}, nil
}

// Neg returns -q.
func (q Quantity) Neg() Quantity {
	if q.value == nil {
		return q
	}
	return Quantity{value: new(big.Rat).Neg(q.value), vector: q.vector}
}

// Mul returns q * o with the pointwise sum of the vectors.
func (q Quantity) Mul(o Quantity) (Quantity, error) {
	if err := checkValid(q, o); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: new(big.Rat).Mul(q.value, o.value), vector: q.vector.add(o.vector)}, nil
}

// Scale multiplies q by a dimensionless rational.
func (q Quantity) Scale(r *big.Rat) Quantity {
	if q.value == nil || r == nil {
		return Quantity{}
	}
	return Quantity{value: new(big.Rat).Mul(q.value, r), vector: q.vector}
}

// Div returns q / o. Equal vectors give a dimensionless result.
func (q Quantity) Div(o Quantity) (Quantity, error) {
	if err := checkValid(q, o); err != nil {
		return Quantity{}, err
	}
	if o.value.Sign() == 0 {
		return Quantity{}, coreerrors.ErrDivisionByZero
	}
	return Quantity{value: new(big.Rat).Quo(q.value, o.value), vector: q.vector.add(o.vector.scale(-1))}, nil
}

// Pow raises q to an integer power.
func (q Quantity) Pow(n int) (Quantity, error) {
	if err := checkValid(q); err != nil {
		return Quantity{}, err
	}
	if n < 0 && q.value.Sign() == 0 {
		return Quantity{}, coreerrors.ErrDivisionByZero
	}
	return Quantity{value: ratPow(q.value, n), vector: q.vector.scale(n)}, nil
}

// PowRat raises q to a rational power, which must be an integer.
func (q Quantity) PowRat(exp *big.Rat) (Quantity, error) {
	if exp == nil || !exp.IsInt() || !exp.Num().IsInt64() {
		return Quantity{}, fmt.Errorf("%w: %v", coreerrors.ErrInvalidExponent, exp)
	}
	return q.Pow(int(exp.Num().Int64()))
}

// Cmp compares q and o, which must have the same vector.
func (q Quantity) Cmp(o Quantity) (int, error) {
	if err := q.requireSameVector(o, "compare"); err != nil {
		return 0, err
	}
	return q.value.Cmp(o.value), nil
}

// Sign returns -1, 0 or +1.
func (q Quantity) Sign() int {
	if q.value == nil {
		return 0
	}
	return q.value.Sign()
}

// IsZero reports whether q is a zero quantity.
func (q Quantity) IsZero() bool {
	return q.value != nil && q.value.Sign() == 0
}

// Equal reports whether q and o have the same vector and value.
func (q Quantity) Equal(o Quantity) bool {
	if q.value == nil || o.value == nil {
		return q.value == nil && o.value == nil
	}
	return q.vector == o.vector && q.value.Cmp(o.value) == 0
}

// Convert expresses q in the given unit.
func (q Quantity) Convert(unit string) (*big.Rat, error) {
	if err := checkValid(q); err != nil {
		return nil, err
	}
	u, err := ParseUnit(unit)
	if err != nil {
		return nil, err
	}
	if u.vector != q.vector {
		return nil, fmt.Errorf("%w: cannot convert %s to %q", coreerrors.ErrIncompatibleUnits, q.vector, unit)
	}
	return new(big.Rat).Quo(q.value, u.Scale()), nil
}

// Decimal converts q to unit and rounds the result to the given number of
// decimal places.
func (q Quantity) Decimal(unit string, places int32) (decimal.Decimal, error) {
	r, err := q.Convert(unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return RatToDecimal(r, places), nil
}

// Compatible reports whether q can be converted to unit.
func (q Quantity) Compatible(unit string) bool {
	u, err := ParseUnit(unit)
	if err != nil {
		return false
	}
	return q.value != nil && u.vector == q.vector
}

func (q Quantity) String() string {
	if q.value == nil {
		return "<invalid quantity>"
	}
	return fmt.Sprintf("%s %s", q.value.RatString(), q.vector)
}

// Min returns the smaller of a and b.
func Min(a, b Quantity) (Quantity, error) {
	c, err := a.Cmp(b)
	if err != nil {
		return Quantity{}, err
	}
	if c <= 0 {
		return a, nil
	}
	return b, nil
}

// Sum adds all quantities, starting from zero.
func Sum(zero Quantity, qs ...Quantity) (Quantity, error) {
	total := zero
	for _, q := range qs {
		var err error
		if total, err = total.Add(q); err != nil {
			return Quantity{}, err
		}
	}
	return total, nil
}

// CompatibleUnits reports whether two unit strings share a vector.
func CompatibleUnits(a, b string) (bool, error) {
	ua, err := ParseUnit(a)
	if err != nil {
		return false, err
	}
	ub, err := ParseUnit(b)
	if err != nil {
		return false, err
	}
	return ua.vector == ub.vector, nil
}

// SameUnit reports whether two unit strings share both scale and vector.
func SameUnit(a, b string) (bool, error) {
	ua, err := ParseUnit(a)
	if err != nil {
		return false, err
	}
	ub, err := ParseUnit(b)
	if err != nil {
		return false, err
	}
	return ua.vector == ub.vector && ua.Scale().Cmp(ub.Scale()) == 0, nil
}

// RatToDecimal rounds r to places decimal places.
func RatToDecimal(r *big.Rat, places int32) decimal.Decimal {
	num := decimal.NewFromBigInt(r.Num(), 0)
	den := decimal.NewFromBigInt(r.Denom(), 0)
	return num.DivRound(den, places)
}

// RoundToInt64 rounds r to the nearest integer, halves towards negative
// infinity, and saturates at the int64 range.
func RoundToInt64(r *big.Rat) int64 {
	floor := new(big.Int).Div(r.Num(), r.Denom()) // Euclidean; denominator is positive
	frac := new(big.Rat).Sub(r, new(big.Rat).SetInt(floor))
	if frac.Cmp(big.NewRat(1, 2)) > 0 {
		floor.Add(floor, big.NewInt(1))
	}
	if floor.IsInt64() {
		return floor.Int64()
	}
	if floor.Sign() > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}
