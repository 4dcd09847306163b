package catalog

// On-disk YAML shapes. Timestamps are RFC 3339, dates are YYYY-MM-DD and
// numbers are decimal strings so no precision is lost to float parsing.

type rawFile struct {
	Customer          *rawCustomer       `yaml:"customer"`
	Sources           []rawSource        `yaml:"sources"`
	Tariffs           []rawTariff        `yaml:"tariffs"`
	CO2Conversions    []rawCO2           `yaml:"co2_conversions"`
	MainConsumptions  []rawMain          `yaml:"main_consumptions"`
	ProductionGroups  []rawProdGroup     `yaml:"production_groups"`
	Performances      []rawPerformance   `yaml:"performances"`
	OfflineTolerances []rawOfflineChecks `yaml:"offline_tolerances"`
}

type rawCustomer struct {
	Timezone        string            `yaml:"timezone"`
	Currency        string            `yaml:"currency"`
	ProductionUnits map[string]string `yaml:"production_units"`
}

type rawSource struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Unit       string `yaml:"unit"`
	HardwareID string `yaml:"hardware_id"`
}

type rawRange struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type rawValue struct {
	Value string `yaml:"value"`
	Unit  string `yaml:"unit"`
}

type rawSubscription struct {
	Fee      string `yaml:"fee"`
	Interval string `yaml:"interval"`
}

type rawSpot struct {
	Source      string `yaml:"source"`
	Coefficient string `yaml:"coefficient"`
	Constant    string `yaml:"constant"`
	Ceiling     string `yaml:"ceiling"`
	Unit        string `yaml:"unit"`
}

type rawTariffPeriod struct {
	rawRange     `yaml:",inline"`
	Subscription rawSubscription `yaml:"subscription"`
	Fixed        *rawValue       `yaml:"fixed"`
	Spot         *rawSpot        `yaml:"spot"`
}

type rawTariff struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	Currency string            `yaml:"currency"`
	Periods  []rawTariffPeriod `yaml:"periods"`
}

// rawRatePeriod is a fixed value, or a source when Source is set.
type rawRatePeriod struct {
	rawRange `yaml:",inline"`
	Value    string `yaml:"value"`
	Unit     string `yaml:"unit"`
	Source   string `yaml:"source"`
}

type rawCO2 struct {
	Name        string          `yaml:"name"`
	UtilityUnit string          `yaml:"utility_unit"`
	Periods     []rawRatePeriod `yaml:"periods"`
}

type rawPulse struct {
	Pulses   int64  `yaml:"pulses"`
	Quantity string `yaml:"quantity"`
	Unit     string `yaml:"unit"`
}

// rawAccumulationPeriod reads Source directly, through Pulse when set, or
// spreads SingleValue when no source is given.
type rawAccumulationPeriod struct {
	rawRange    `yaml:",inline"`
	Source      string    `yaml:"source"`
	Pulse       *rawPulse `yaml:"pulse"`
	SingleValue *rawValue `yaml:"single_value"`
}

type rawConsumption struct {
	Name           string                  `yaml:"name"`
	Unit           string                  `yaml:"unit"`
	Periods        []rawAccumulationPeriod `yaml:"periods"`
	VolumeToEnergy []rawRatePeriod         `yaml:"volume_to_energy"`
}

type rawUnion struct {
	Name             string           `yaml:"name"`
	From             string           `yaml:"from"`
	To               string           `yaml:"to"`
	Consumptions     []rawConsumption `yaml:"consumptions"`
	CostCompensation []rawRatePeriod  `yaml:"cost_compensation"`
}

type rawMain struct {
	rawUnion    `yaml:",inline"`
	UtilityType string     `yaml:"utility_type"`
	Tariff      string     `yaml:"tariff"`
	CO2         string     `yaml:"co2_conversion"`
	Groups      []rawUnion `yaml:"groups"`
}

type rawProduction struct {
	Name    string                  `yaml:"name"`
	Periods []rawAccumulationPeriod `yaml:"periods"`
}

type rawProdGroup struct {
	Name        string          `yaml:"name"`
	Unit        string          `yaml:"unit"`
	Productions []rawProduction `yaml:"productions"`
}

type rawPerformance struct {
	Name              string   `yaml:"name"`
	Kind              string   `yaml:"kind"`
	ProductionUnit    string   `yaml:"production_unit"`
	PowerUnit         string   `yaml:"power_unit"`
	ConsumptionGroups []string `yaml:"consumption_groups"`
	ProductionGroups  []string `yaml:"production_groups"`
}

type rawOfflineChecks struct {
	Sequence string `yaml:"sequence"`
	Hours    int    `yaml:"hours"`
}
