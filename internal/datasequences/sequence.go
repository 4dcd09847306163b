// Package datasequences defines the configured data sequences a report is
// computed from: accumulations over raw counters, piecewise-constant rates,
// point sequences and sequences derived from other sequences. Every sequence
// is made of non-overlapping periods, each delegating to its own source.
package datasequences

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
)

// Accumulator reads condensed deltas of an accumulating source.
// condensing.Cache is the production implementation.
type Accumulator interface {
	Accumulated(ctx context.Context, src rawdata.Source, from, to time.Time, width condense.Resolution) samples.Stream
}

// Env is everything an evaluation needs besides the sequence itself. It is
// built per request by the host.
type Env struct {
	Location *time.Location
	// Currency is the customer currency unit, currency_dkk or currency_eur.
	Currency string
	// ProductionUnits maps production_a..e to their customer labels.
	ProductionUnits map[string]string
	Cache           Accumulator
	Raw             storage.RawDataStore
}

// Zone is the customer time zone, UTC when unset.
func (e Env) Zone() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

// Meta identifies a sequence and the unit its samples are expressed in.
type Meta struct {
	ID   uuid.UUID
	Name string
	Unit string
}

// Info returns the sequence metadata.
func (m Meta) Info() Meta { return m }

// Sequence is one of *Accumulation, *PiecewiseConstant, *PointSequence or
// *Derived.
type Sequence interface {
	Info() Meta
	// DependsOn returns every sequence this one is computed from,
	// transitively, each listed once.
	DependsOn() []Sequence
	inputs() []Sequence
	ranges() []period.Range
}

// Evaluate streams seq over [from, to) at the given resolution.
func Evaluate(ctx context.Context, env Env, seq Sequence, from, to time.Time, res condense.Resolution) samples.Stream {
	switch s := seq.(type) {
	case *Accumulation:
		return s.DevelopmentSequence(ctx, env, from, to, res)
	case *PiecewiseConstant:
		return s.evaluate(ctx, env, from, to, res)
	case *PointSequence:
		return s.evaluate(ctx, env, from, to)
	case *Derived:
		return s.evaluate(ctx, env, from, to, res)
	default:
		return samples.Failed(fmt.Errorf("evaluate: unsupported sequence %T", seq))
	}
}

// Sources lists the raw sources seq reads, directly or through its inputs.
func Sources(seq Sequence) []rawdata.Source {
	seen := make(map[uuid.UUID]bool)
	var out []rawdata.Source
	add := func(s Sequence) {
		for _, src := range directSources(s) {
			if !seen[src.ID] {
				seen[src.ID] = true
				out = append(out, src)
			}
		}
	}
	add(seq)
	for _, dep := range seq.DependsOn() {
		add(dep)
	}
	return out
}

func directSources(seq Sequence) []rawdata.Source {
	var out []rawdata.Source
	for _, p := range SourcePeriods(seq) {
		out = append(out, p.Source)
	}
	return out
}

// SourcePeriod is a period of a sequence backed by a raw source.
type SourcePeriod struct {
	period.Range
	Source rawdata.Source
}

// SourcePeriods lists the periods of seq that read a raw source, ordered by
// start. Derived sequences have none of their own.
func SourcePeriods(seq Sequence) []SourcePeriod {
	var out []SourcePeriod
	switch s := seq.(type) {
	case *Accumulation:
		for _, p := range s.Periods {
			if src, ok := p.Source(); ok {
				out = append(out, SourcePeriod{Range: p.Bounds(), Source: src})
			}
		}
	case *PiecewiseConstant:
		for _, p := range s.Periods {
			if src, ok := p.Source(); ok {
				out = append(out, SourcePeriod{Range: p.Bounds(), Source: src})
			}
		}
	case *PointSequence:
		for _, p := range s.Periods {
			out = append(out, SourcePeriod{Range: p.Range, Source: p.Source})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}

// sortedRanges returns ranges ordered by start.
func sortedRanges(ranges []period.Range) []period.Range {
	out := append([]period.Range(nil), ranges...)
	sort.Slice(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}

// NextValidDate returns the first date after date, in loc, on which any of
// seqs has a period.
func NextValidDate(seqs []Sequence, date time.Time, loc *time.Location) (time.Time, bool) {
	var (
		best  time.Time
		found bool
	)
	for _, seq := range seqs {
		d, ok := nextValidDate(periodsOf(seq), date, loc)
		if ok && (!found || d.Before(best)) {
			best, found = d, true
		}
	}
	return best, found
}

// PreviousValidDate returns the last date before date, in loc, on which any
// of seqs has a period.
func PreviousValidDate(seqs []Sequence, date time.Time, loc *time.Location) (time.Time, bool) {
	var (
		best  time.Time
		found bool
	)
	for _, seq := range seqs {
		d, ok := previousValidDate(periodsOf(seq), date, loc)
		if ok && (!found || d.After(best)) {
			best, found = d, true
		}
	}
	return best, found
}

// periodsOf returns the periods bounding seq; derived sequences are bounded
// by their inputs.
func periodsOf(seq Sequence) []period.Range {
	if r := seq.ranges(); r != nil {
		return r
	}
	var out []period.Range
	for _, in := range seq.inputs() {
		out = append(out, periodsOf(in)...)
	}
	return out
}

func nextValidDate(ranges []period.Range, date time.Time, loc *time.Location) (time.Time, bool) {
	endOfDay := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)
	for _, r := range sortedRanges(ranges) {
		if !r.Open() && !r.To.After(endOfDay) {
			continue
		}
		if !r.From.After(endOfDay) {
			return endOfDay, true
		}
		return dateIn(r.From, loc), true
	}
	return time.Time{}, false
}

func previousValidDate(ranges []period.Range, date time.Time, loc *time.Location) (time.Time, bool) {
	beginningOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	sorted := sortedRanges(ranges)
	for i := len(sorted) - 1; i >= 0; i-- {
		r := sorted[i]
		if !r.From.Before(beginningOfDay) {
			continue
		}
		if r.Open() || !r.To.Before(beginningOfDay) {
			return beginningOfDay.AddDate(0, 0, -1), true
		}
		last := dateIn(r.To, loc)
		if last.Equal(r.To) {
			last = last.AddDate(0, 0, -1)
		}
		return last, true
	}
	return time.Time{}, false
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
