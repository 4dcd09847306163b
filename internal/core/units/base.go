package units

import "slices"

// Base units in which raw datapoints are stored. Integer raw values are
// interpreted in exactly one of these.
var (
	AccumulationBaseUnits = []string{
		"milliwatt*hour",
		"milliliter",
		"gram",
		"second",
		"impulse",
	}

	NonaccumulationBaseUnits = []string{
		"milliwatt",
		"milliliter*hour^-1",
		"millikelvin",
		"millivolt",
		"milliampere",
		"millibar",
		"millinone",
	}

	EnergyPerVolumeBaseUnits = []string{"milliwatt*hour/meter^3"}
	EnergyPerMassBaseUnits   = []string{"milliwatt*hour/tonne"}

	EnergyTariffBaseUnits = []string{
		"currency_dkk*gigawatt^-1*hour^-1",
		"currency_eur*gigawatt^-1*hour^-1",
	}
	VolumeTariffBaseUnits = []string{
		"millicurrency_eur*meter^-3",
		"millicurrency_dkk*meter^-3",
	}

	ProductionUnits = []string{
		"production_a",
		"production_b",
		"production_c",
		"production_d",
		"production_e",
	}
)

const (
	VolumeCO2ConversionBaseUnit = "gram*meter^-3"
	EnergyCO2ConversionBaseUnit = "gram*kilowatt^-1*hour^-1"

	// DefaultTimeUnit is the base for time utilities and durations.
	DefaultTimeUnit = "second"
)

// IsBaseUnit reports whether unit is one of the registered raw-data units.
func IsBaseUnit(unit string) bool {
	for _, set := range [][]string{
		AccumulationBaseUnits,
		NonaccumulationBaseUnits,
		EnergyPerVolumeBaseUnits,
		EnergyPerMassBaseUnits,
		EnergyTariffBaseUnits,
		VolumeTariffBaseUnits,
		ProductionUnits,
		{VolumeCO2ConversionBaseUnit, EnergyCO2ConversionBaseUnit},
	} {
		if slices.Contains(set, unit) {
			return true
		}
	}
	return false
}

// IsTariffUnit reports whether unit is compatible with one of the tariff
// base units.
func IsTariffUnit(unit string) bool {
	return compatibleWithAny(unit, append(slices.Clone(EnergyTariffBaseUnits), VolumeTariffBaseUnits...))
}

// IsCO2ConversionUnit reports whether unit is compatible with one of the CO₂
// conversion base units.
func IsCO2ConversionUnit(unit string) bool {
	return compatibleWithAny(unit, []string{VolumeCO2ConversionBaseUnit, EnergyCO2ConversionBaseUnit})
}

// IsCachable reports whether the condense cache applies to sources of this
// unit: accumulating counters, pulse counters and production counters.
func IsCachable(unit string) bool {
	return compatibleWithAny(unit, slices.Concat(AccumulationBaseUnits, ProductionUnits))
}

// IsImpulse reports whether unit counts pulses.
func IsImpulse(unit string) bool {
	ok, err := CompatibleUnits(unit, "impulse")
	return err == nil && ok
}

func compatibleWithAny(unit string, candidates []string) bool {
	for _, c := range candidates {
		if ok, err := CompatibleUnits(unit, c); err == nil && ok {
			return true
		}
	}
	return false
}

var displayNames = map[string]string{
	"kilowatt*hour":                    "kWh",
	"watt*hour":                        "Wh",
	"milliwatt*hour":                   "mWh",
	"megawatt*hour":                    "MWh",
	"kilowatt":                         "kW",
	"watt":                             "W",
	"milliwatt":                        "mW",
	"meter*meter*meter":                "m³",
	"meter^3":                          "m³",
	"liter":                            "L",
	"milliliter":                       "mL",
	"gram":                             "g",
	"kilogram":                         "kg",
	"tonne":                            "tonne",
	"milliliter*hour^-1":               "mL/h",
	"millikelvin":                      "mK",
	"kelvin":                           "K",
	"kelvin*day":                       "degree days",
	"volt":                             "V",
	"millivolt":                        "mV",
	"ampere":                           "A",
	"milliampere":                      "mA",
	"kilowatt*hour/meter^3":            "kWh/m³",
	"watt*hour/meter^3":                "Wh/m³",
	"milliwatt*hour/meter^3":           "mWh/m³",
	"milliwatt*hour/tonne":             "mWh/t",
	"joule":                            "J",
	"currency_eur":                     "EUR",
	"currency_dkk":                     "DKK",
	"currency_eur*gigawatt^-1*hour^-1": "EUR/GWh",
	"currency_eur*kilowatt^-1*hour^-1": "EUR/kWh",
	"currency_eur*megawatt^-1*hour^-1": "EUR/MWh",
	"currency_dkk*gigawatt^-1*hour^-1": "DKK/GWh",
	"currency_dkk*kilowatt^-1*hour^-1": "DKK/kWh",
	"currency_dkk*megawatt^-1*hour^-1": "DKK/MWh",
	"millicurrency_dkk*meter^-3":       "DKK/1000m³",
	"millicurrency_eur*meter^-3":       "EUR/1000m³",
	"currency_dkk*meter^-3":            "DKK/m³",
	"currency_eur*meter^-3":            "EUR/m³",
	"impulse":                          "impulse",
	"millibar":                         "mBar",
	"gram*kilowatt^-1*hour^-1":         "g/kWh",
	"gram*meter^-3":                    "g/m³",
	"person":                           "person",
	"none":                             "",
	"millinone":                        "",
	"second":                           "s",
	"minute":                           "m",
	"hour":                             "h",
}

// DisplayName returns the short human label for a unit string, falling back
// to the unit string itself.
func DisplayName(unit string) string {
	if name, ok := displayNames[unit]; ok {
		return name
	}
	return unit
}
