// Package catalog loads the customer's configured sources and sequences from
// a directory of YAML files. Files are loaded once at startup and
// fingerprinted so the host can tell which definitions a result came from.
package catalog

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gridlab/gridcore/internal/co2conversions"
	"github.com/gridlab/gridcore/internal/consumptions"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/energyperformances"
	"github.com/gridlab/gridcore/internal/offlinetolerance"
	"github.com/gridlab/gridcore/internal/productions"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/gridlab/gridcore/internal/tariffs"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned for names and ids the catalog does not define.
var ErrNotFound = coreerrors.ErrNotFound

// Catalog is the loaded, validated configuration of one customer.
type Catalog struct {
	Location        *time.Location
	Currency        string
	ProductionUnits map[string]string
	// Fingerprint is the SHA-256 over every file's name and content.
	Fingerprint string
	// Files maps each loaded file name to the SHA-256 of its content.
	Files map[string]string

	sources          map[uuid.UUID]rawdata.Source
	sourcesByName    map[string]rawdata.Source
	tariffs          map[string]*tariffs.Tariff
	co2              map[string]*co2conversions.Conversions
	mains            map[string]*consumptions.Main
	groups           map[string]*consumptions.Group
	productionGroups map[string]*productions.Group
	performances     map[string]energyperformances.Performance
	sequences        map[string]datasequences.Sequence
	tolerances       map[string]offlinetolerance.Checker
}

func empty() *Catalog {
	return &Catalog{
		Location:         time.UTC,
		Currency:         tariffs.Currencies[0],
		ProductionUnits:  map[string]string{},
		Files:            map[string]string{},
		sources:          map[uuid.UUID]rawdata.Source{},
		sourcesByName:    map[string]rawdata.Source{},
		tariffs:          map[string]*tariffs.Tariff{},
		co2:              map[string]*co2conversions.Conversions{},
		mains:            map[string]*consumptions.Main{},
		groups:           map[string]*consumptions.Group{},
		productionGroups: map[string]*productions.Group{},
		performances:     map[string]energyperformances.Performance{},
		sequences:        map[string]datasequences.Sequence{},
		tolerances:       map[string]offlinetolerance.Checker{},
	}
}

// Load reads every *.yaml and *.yml file in dir. A missing directory is an
// empty catalog.
func Load(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir: %w", err)
	}

	var (
		merged  rawFile
		files   = map[string]string{}
		summary = sha256.New()
	)
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog file %s: %w", path, err)
		}
		var f rawFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
		}
		if f.Customer != nil && merged.Customer != nil {
			return nil, fmt.Errorf("catalog file %s: customer is already defined", path)
		}
		merge(&merged, f)

		files[e.Name()] = fmt.Sprintf("%x", sha256.Sum256(data))
		fmt.Fprintf(summary, "%s:%s\n", e.Name(), files[e.Name()])
	}

	c, err := build(merged)
	if err != nil {
		return nil, err
	}
	c.Files = files
	c.Fingerprint = fmt.Sprintf("%x", summary.Sum(nil))
	return c, nil
}

func merge(dst *rawFile, f rawFile) {
	if f.Customer != nil {
		dst.Customer = f.Customer
	}
	dst.Sources = append(dst.Sources, f.Sources...)
	dst.Tariffs = append(dst.Tariffs, f.Tariffs...)
	dst.CO2Conversions = append(dst.CO2Conversions, f.CO2Conversions...)
	dst.MainConsumptions = append(dst.MainConsumptions, f.MainConsumptions...)
	dst.ProductionGroups = append(dst.ProductionGroups, f.ProductionGroups...)
	dst.Performances = append(dst.Performances, f.Performances...)
	dst.OfflineTolerances = append(dst.OfflineTolerances, f.OfflineTolerances...)
}

// Env is the evaluation environment for this customer.
func (c *Catalog) Env(cache datasequences.Accumulator, raw storage.RawDataStore) datasequences.Env {
	return datasequences.Env{
		Location:        c.Location,
		Currency:        c.Currency,
		ProductionUnits: c.ProductionUnits,
		Cache:           cache,
		Raw:             raw,
	}
}

// Source returns the source with the given id.
func (c *Catalog) Source(id uuid.UUID) (rawdata.Source, error) {
	src, ok := c.sources[id]
	if !ok {
		return rawdata.Source{}, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	return src, nil
}

// Sources lists every source ordered by name.
func (c *Catalog) Sources() []rawdata.Source {
	out := make([]rawdata.Source, 0, len(c.sources))
	for _, src := range c.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CachableSources lists the sources whose readings accumulate and so have
// condensed deltas.
func (c *Catalog) CachableSources() []rawdata.Source {
	var out []rawdata.Source
	for _, src := range c.Sources() {
		if units.IsCachable(src.Unit) {
			out = append(out, src)
		}
	}
	return out
}

// Consumption returns the main consumption or consumption group with the
// given name.
func (c *Catalog) Consumption(name string) (consumptions.Reporter, error) {
	if m, ok := c.mains[name]; ok {
		return m, nil
	}
	if g, ok := c.groups[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("consumption %q: %w", name, ErrNotFound)
}

// Performance returns the energy performance with the given name.
func (c *Catalog) Performance(name string) (energyperformances.Performance, error) {
	p, ok := c.performances[name]
	if !ok {
		return nil, fmt.Errorf("performance %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// OfflineTolerance returns the offline check of the named sequence.
func (c *Catalog) OfflineTolerance(sequence string) (offlinetolerance.Checker, error) {
	t, ok := c.tolerances[sequence]
	if !ok {
		return offlinetolerance.Checker{}, fmt.Errorf("offline tolerance of %q: %w", sequence, ErrNotFound)
	}
	return t, nil
}
