package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gridlab/gridcore/internal/condensing"
	"github.com/gridlab/gridcore/internal/consumptions"
	"github.com/gridlab/gridcore/internal/core/storage/memory"
	"github.com/gridlab/gridcore/internal/energyperformances"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const customerYAML = `
customer:
  timezone: "UTC"
  currency: "currency_dkk"
  production_units:
    production_a: "pallets"
`

const plantYAML = `
sources:
  - id: "0b5c6f1e-8a53-4c4f-9d0e-5f8ad2f7c001"
    name: "main meter"
    unit: "milliwatt*hour"
  - id: "0b5c6f1e-8a53-4c4f-9d0e-5f8ad2f7c002"
    name: "spot"
    unit: "currency_dkk*gigawatt^-1*hour^-1"

tariffs:
  - name: "electricity"
    kind: "energy"
    periods:
      - from: "2014-01-01T00:00:00Z"
        to: "2014-01-02T00:00:00Z"
        subscription: {fee: "300", interval: "monthly"}
        fixed: {value: "10", unit: "currency_dkk*kilowatt^-1*hour^-1"}

main_consumptions:
  - name: "electricity"
    utility_type: "electricity"
    from: "2014-01-01"
    tariff: "electricity"
    consumptions:
      - name: "estimate"
        periods:
          - from: "2014-01-01T00:00:00Z"
            to: "2014-01-02T00:00:00Z"
            single_value: {value: "42", unit: "kilowatt*hour"}
      - name: "meter"
        periods:
          - from: "2014-01-02T00:00:00Z"
            source: "main meter"
    groups:
      - name: "hall"
        from: "2014-01-01"
        consumptions:
          - name: "hall estimate"
            periods:
              - from: "2014-01-01T00:00:00Z"
                to: "2014-01-02T00:00:00Z"
                single_value: {value: "2", unit: "kilowatt*hour"}

production_groups:
  - name: "line"
    unit: "production_a"
    productions:
      - name: "pallets out"
        periods:
          - from: "2014-01-01T00:00:00Z"
            to: "2014-01-02T00:00:00Z"
            single_value: {value: "4", unit: "production_a"}

performances:
  - name: "kwh per pallet"
    kind: "production"
    production_unit: "production_a"
    consumption_groups: ["hall"]
    production_groups: ["line"]
  - name: "hall power"
    kind: "time"
    consumption_groups: ["hall"]

offline_tolerances:
  - sequence: "meter"
    hours: 3
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"customer.yaml": customerYAML,
		"plant.yml":     plantYAML,
		"README.md":     "not a catalog file",
	})

	c, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, c.Files, 2)
	require.Len(t, c.Fingerprint, 64)
	require.Equal(t, "pallets", c.ProductionUnits["production_a"])

	require.Len(t, c.Sources(), 2)
	cachable := c.CachableSources()
	require.Len(t, cachable, 1)
	require.Equal(t, "main meter", cachable[0].Name)

	src, err := c.Source(uuid.MustParse("0b5c6f1e-8a53-4c4f-9d0e-5f8ad2f7c001"))
	require.NoError(t, err)
	require.Equal(t, "milliwatt*hour", src.Unit)

	store := memory.NewStore()
	env := c.Env(condensing.NewCache(store, store, 0), store)
	ctx := context.Background()
	day := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)

	r, err := c.Consumption("electricity")
	require.NoError(t, err)
	main, ok := r.(*consumptions.Main)
	require.True(t, ok)
	q, ok, err := main.NetCostSum(ctx, env, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, ok)
	v, err := q.Convert("currency_dkk")
	require.NoError(t, err)
	require.Equal(t, "420", v.RatString())

	_, err = c.Consumption("hall")
	require.NoError(t, err)

	perf, err := c.Performance("kwh per pallet")
	require.NoError(t, err)
	require.IsType(t, &energyperformances.Production{}, perf)
	q, ok, err = perf.Compute(ctx, env, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, ok)
	v, err = q.Convert(perf.Unit())
	require.NoError(t, err)
	require.Equal(t, "1/2", v.RatString())

	checker, err := c.OfflineTolerance("meter")
	require.NoError(t, err)
	require.Equal(t, 3, checker.Hours)
}

func TestLoad_FingerprintChanges(t *testing.T) {
	a, err := Load(writeFiles(t, map[string]string{"customer.yaml": customerYAML}))
	require.NoError(t, err)
	b, err := Load(writeFiles(t, map[string]string{"customer.yaml": customerYAML + "\n# edited\n"}))
	require.NoError(t, err)
	require.NotEqual(t, a.Fingerprint, b.Fingerprint)
}

func TestLoad_MissingDir(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	require.Empty(t, c.Sources())
	require.Equal(t, time.UTC, c.Location)

	_, err = c.Consumption("anything")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name:  "customer twice",
			files: map[string]string{"a.yaml": customerYAML, "b.yaml": customerYAML},
		},
		{
			name:  "unknown currency",
			files: map[string]string{"a.yaml": "customer: {currency: \"currency_usd\"}"},
		},
		{
			name:  "fractional hour time zone",
			files: map[string]string{"a.yaml": "customer: {timezone: \"Asia/Kolkata\"}"},
		},
		{
			name:  "bad source id",
			files: map[string]string{"a.yaml": "sources: [{id: \"nope\", name: \"m\", unit: \"milliwatt*hour\"}]"},
		},
		{
			name:  "source not in a base unit",
			files: map[string]string{"a.yaml": "sources: [{id: \"0b5c6f1e-8a53-4c4f-9d0e-5f8ad2f7c001\", name: \"m\", unit: \"kilowatt*hour\"}]"},
		},
		{
			name: "unknown tariff",
			files: map[string]string{"a.yaml": `
main_consumptions:
  - name: "m"
    utility_type: "electricity"
    from: "2014-01-01"
    tariff: "missing"
`},
		},
		{
			name: "unknown sequence for offline tolerance",
			files: map[string]string{"a.yaml": `
offline_tolerances:
  - sequence: "missing"
    hours: 2
`},
		},
		{
			name:  "malformed yaml",
			files: map[string]string{"a.yaml": "sources: ["},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFiles(t, tt.files))
			require.Error(t, err)
		})
	}
}
