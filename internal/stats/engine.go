// Package stats derives per-row aggregates, descriptive statistics, and
// rankings from a classified score table.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"

	"github.com/KaramelBytes/scoreloom-cli/internal/classify"
	"github.com/KaramelBytes/scoreloom-cli/internal/dataset"
)

// PassThreshold is the minimum passing score.
const PassThreshold = 60.0

// TopN is the length of every top-k list.
const TopN = 3

// Derived is the in-memory view of the table with total and average columns
// added. Missing scores are NaN. It is rebuilt on every Analyze call.
type Derived struct {
	Names    []string
	Subjects []string
	// Scores is indexed [row][subject].
	Scores  [][]float64
	Total   []float64
	Average []float64
}

// Rows returns the number of rows.
func (d *Derived) Rows() int { return len(d.Names) }

// Column returns the values of one subject or aggregate column, or nil if unknown.
func (d *Derived) Column(name string) []float64 {
	switch name {
	case TotalKey:
		return d.Total
	case AverageKey:
		return d.Average
	}
	for j, s := range d.Subjects {
		if s == name {
			out := make([]float64, len(d.Scores))
			for i, row := range d.Scores {
				out[i] = row[j]
			}
			return out
		}
	}
	return nil
}

// Mean returns the unrounded mean of a column, skipping missing values.
func (d *Derived) Mean(name string) float64 {
	return call(mstats.Mean, present(d.Column(name)))
}

// PassRate returns the unrounded percentage of rows scoring at least PassThreshold.
func (d *Derived) PassRate(name string) float64 {
	return passRate(d.Column(name), d.Rows())
}

// Result bundles the derived table with its record.
type Result struct {
	Derived *Derived
	Record  *Record
	// NameColumn is the column used for display names; NameFallback is set
	// when it was chosen positionally rather than by name.
	NameColumn   string
	NameFallback bool
	// Reserved lists subject columns dropped because their names collide
	// with the derived total or average columns.
	Reserved []string
}

// Analyze computes the derived table, statistics, and rankings. Zero subject
// columns or zero rows yield an empty record rather than an error.
func Analyze(ds *dataset.Dataset, cls classify.Classification) (*Result, error) {
	if ds == nil {
		return nil, errors.New("nil dataset")
	}
	nameCol, ok := classify.NameColumn(ds.Columns)
	res := &Result{
		Derived:      &Derived{Names: []string{}, Subjects: []string{}},
		Record:       NewRecord(len(ds.Rows)),
		NameColumn:   nameCol,
		NameFallback: !ok,
	}
	subjects := make([]string, 0, len(cls.Subjects))
	for _, s := range cls.Subjects {
		if s == TotalKey || s == AverageKey {
			res.Reserved = append(res.Reserved, s)
			continue
		}
		subjects = append(subjects, s)
	}
	if len(subjects) == 0 || len(ds.Rows) == 0 {
		return res, nil
	}

	idx := make([]int, len(subjects))
	for j, s := range subjects {
		idx[j] = ds.ColumnIndex(s)
		if idx[j] < 0 {
			return nil, fmt.Errorf("subject column %q not in dataset", s)
		}
	}
	d := derive(ds, ds.ColumnIndex(nameCol), subjects, idx)
	res.Derived = d
	rec := res.Record
	rec.BasicInfo.Subjects = append([]string{}, d.Subjects...)

	n := d.Rows()
	for _, s := range d.Subjects {
		col := d.Column(s)
		sum := describe(col)
		sum.Set(KeyPassRate, Number(round2(passRate(col, n))))
		rec.BasicInfo.Statistics.Set(s, sum)
	}
	rec.BasicInfo.Statistics.Set(TotalKey, describe(d.Total))
	rec.BasicInfo.Statistics.Set(AverageKey, describeAverage(d.Average))

	rankSubjects(d, rec)
	rankAggregates(d, rec)
	return res, nil
}

func derive(ds *dataset.Dataset, nameIdx int, subjects []string, idx []int) *Derived {
	n := len(ds.Rows)
	d := &Derived{
		Names:    make([]string, n),
		Subjects: append([]string{}, subjects...),
		Scores:   make([][]float64, n),
		Total:    make([]float64, n),
		Average:  make([]float64, n),
	}
	for i, row := range ds.Rows {
		if nameIdx >= 0 {
			d.Names[i] = row[nameIdx].Text
		}
		scores := make([]float64, len(idx))
		total, count := 0.0, 0
		for j, c := range idx {
			v := row[c]
			if v.Missing {
				scores[j] = math.NaN()
				continue
			}
			scores[j] = v.Num
			total += v.Num
			count++
		}
		d.Scores[i] = scores
		if count == 0 {
			d.Total[i], d.Average[i] = math.NaN(), math.NaN()
			continue
		}
		d.Total[i] = total
		d.Average[i] = total / float64(count)
	}
	return d
}

// describe returns mean, max, min, and sample standard deviation.
func describe(col []float64) Summary {
	vals := present(col)
	s := Summary{}
	s.Set(KeyMean, Number(round2(call(mstats.Mean, vals))))
	s.Set(KeyMax, Number(call(mstats.Max, vals)))
	s.Set(KeyMin, Number(call(mstats.Min, vals)))
	std := math.NaN()
	if len(vals) >= 2 {
		std = round2(call(mstats.StandardDeviationSample, vals))
	}
	s.Set(KeyStdDev, Number(std))
	return s
}

func describeAverage(col []float64) Summary {
	vals := present(col)
	s := Summary{}
	s.Set(KeyClassAverage, Number(round2(call(mstats.Mean, vals))))
	s.Set(KeyHighestAverage, Number(round2(call(mstats.Max, vals))))
	s.Set(KeyLowestAverage, Number(round2(call(mstats.Min, vals))))
	return s
}

// passRate is the percentage of all n rows scoring at or above PassThreshold.
func passRate(col []float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	pass := 0
	for _, v := range col {
		if !math.IsNaN(v) && v >= PassThreshold {
			pass++
		}
	}
	return float64(pass) / float64(n) * 100
}

func rankSubjects(d *Derived, rec *Record) {
	for _, s := range d.Subjects {
		col := d.Column(s)
		top := TopIndices(col, TopN)
		if len(top) == 0 {
			continue
		}
		entries := make([]Entry, len(top))
		for k, i := range top {
			entries[k] = Entry{Name: d.Names[i], Score: Number(col[i])}
		}
		rec.Rankings.SubjectLeaders.Set(s, entries[0])
		rec.Rankings.SubjectTop3.Set(s, entries)
	}
}

func rankAggregates(d *Derived, rec *Record) {
	top := TopIndices(d.Total, TopN)
	for _, i := range top {
		rec.Rankings.TotalTop3 = append(rec.Rankings.TotalTop3, totalEntry(d, i))
	}
	if len(top) > 0 {
		leader := totalEntry(d, top[0])
		rec.Rankings.TotalLeader = &leader
	}
	if avg := TopIndices(d.Average, 1); len(avg) > 0 {
		i := avg[0]
		rec.Rankings.AverageLeader = &AverageEntry{Name: d.Names[i], Average: Number(round2(d.Average[i]))}
	}
}

func totalEntry(d *Derived, i int) TotalEntry {
	e := TotalEntry{Name: d.Names[i], Total: Number(d.Total[i]), Scores: Ordered[Number]{}}
	for j, s := range d.Subjects {
		e.Scores.Set(s, Number(d.Scores[i][j]))
	}
	return e
}

// TopIndices returns the row indices of the k largest values in descending
// order. Ties keep the earlier row first and NaN values are skipped, so the
// first index is always the leader.
func TopIndices(vals []float64, k int) []int {
	idx := make([]int, 0, len(vals))
	for i, v := range vals {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] > vals[idx[b]] })
	if k >= 0 && len(idx) > k {
		idx = idx[:k]
	}
	return idx
}

func present(col []float64) mstats.Float64Data {
	out := make(mstats.Float64Data, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// call evaluates a descriptive statistic, mapping empty input to NaN.
func call(fn func(mstats.Float64Data) (float64, error), vals mstats.Float64Data) float64 {
	v, err := fn(vals)
	if err != nil {
		return math.NaN()
	}
	return v
}

func round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Round(x*100) / 100
}
