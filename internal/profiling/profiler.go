package profiling

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"vizora/domain/dataset"

	"github.com/montanaflynn/stats"
)

// categoryRatio is the unique/total ratio below which text columns count as categorical.
const categoryRatio = 0.5

// DefaultSamples is how many example values each profile carries.
const DefaultSamples = 3

// ColumnProfiler computes per-column statistics. Sampling is seeded, so the
// same table always yields the same profiles.
type ColumnProfiler struct {
	seed int64
}

func NewColumnProfiler(seed int64) *ColumnProfiler {
	return &ColumnProfiler{seed: seed}
}

// ProfileColumns returns one profile per column, in column order.
func (p *ColumnProfiler) ProfileColumns(table *dataset.Table, nSamples int) []dataset.ColumnProfile {
	if nSamples <= 0 {
		nSamples = DefaultSamples
	}
	profiles := make([]dataset.ColumnProfile, 0, len(table.Columns))
	for _, name := range table.Columns {
		profiles = append(profiles, p.ProfileColumn(name, table.Column(name), nSamples))
	}
	return profiles
}

// ProfileColumn classifies one column and fills the stat fields its dtype allows.
func (p *ColumnProfiler) ProfileColumn(name string, values []any, nSamples int) dataset.ColumnProfile {
	unique := distinctNonNull(values)
	props := dataset.ColumnProperties{
		DType:           classify(values, len(unique)),
		SampleValues:    p.sample(unique, nSamples),
		NumUniqueValues: len(unique),
	}

	switch props.DType {
	case dataset.DTypeNumber:
		nums := nonNullFloats(values)
		if len(nums) > 0 {
			lo, _ := stats.Min(nums)
			hi, _ := stats.Max(nums)
			props.Min, props.Max = &lo, &hi
		}
		if len(nums) > 1 {
			if sd, err := stats.StandardDeviationSample(nums); err == nil && !math.IsNaN(sd) {
				props.Std = &sd
			}
		}
	case dataset.DTypeDate:
		lo, hi := dateBounds(values)
		props.DateMin, props.DateMax = lo, hi
	}

	return dataset.ColumnProfile{Column: name, Properties: props}
}

func classify(values []any, nUnique int) dataset.DType {
	switch dataset.KindOf(values) {
	case dataset.KindNumber:
		return dataset.DTypeNumber
	case dataset.KindBool:
		return dataset.DTypeBoolean
	case dataset.KindDate:
		return dataset.DTypeDate
	case dataset.KindEmpty:
		return dataset.DTypeString
	}
	if len(values) > 0 && float64(nUnique)/float64(len(values)) < categoryRatio {
		return dataset.DTypeCategory
	}
	return dataset.DTypeString
}

// distinctNonNull keeps first-seen order.
func distinctNonNull(values []any) []any {
	seen := make(map[string]bool)
	var out []any
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		k := dataset.Key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

func (p *ColumnProfiler) sample(unique []any, n int) []any {
	if len(unique) <= n {
		return append([]any{}, unique...)
	}
	rng := rand.New(rand.NewSource(p.seed))
	idx := rng.Perm(len(unique))[:n]
	sort.Ints(idx)
	out := make([]any, n)
	for i, j := range idx {
		out[i] = unique[j]
	}
	return out
}

func nonNullFloats(values []any) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		if f, ok := dataset.ToFloat(v); ok && !math.IsInf(f, 0) {
			out = append(out, f)
		}
	}
	return out
}

func dateBounds(values []any) (*time.Time, *time.Time) {
	var lo, hi *time.Time
	for _, v := range values {
		ts, ok := v.(time.Time)
		if !ok {
			continue
		}
		if lo == nil || ts.Before(*lo) {
			t := ts
			lo = &t
		}
		if hi == nil || ts.After(*hi) {
			t := ts
			hi = &t
		}
	}
	return lo, hi
}
