// Package chart renders the fixed sequence of PNG chart artifacts for an
// analysis run.
package chart

import (
	"bytes"
	"fmt"

	"go.uber.org/multierr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Role is the fixed logical identity of a chart.
type Role string

const (
	RoleSubjectAverage Role = "subject_average"
	RoleTotalHistogram Role = "total_histogram"
	RoleSubjectBoxPlot Role = "subject_boxplot"
	RoleTop3Radar      Role = "top3_radar"
	RolePassRate       Role = "pass_rate"
)

// RadarMinSubjects is the subject count at which the radar chart is drawn.
const RadarMinSubjects = 3

var titles = map[Role]string{
	RoleSubjectAverage: "Average Score by Subject",
	RoleTotalHistogram: "Total Score Distribution",
	RoleSubjectBoxPlot: "Subject Score Box Plot",
	RoleTop3Radar:      "Top 3 Students Radar",
	RolePassRate:       "Pass Rate by Subject",
}

// Title returns the display title for a role.
func (r Role) Title() string {
	if t, ok := titles[r]; ok {
		return t
	}
	return string(r)
}

// FileName is the published file name for a role.
func (r Role) FileName() string { return "chart_" + string(r) + ".png" }

// Artifact is one rendered chart. A failed artifact has Err set and no Data.
type Artifact struct {
	Role  Role
	Title string
	Data  []byte
	Path  string
	Err   error
}

// OK reports whether the artifact rendered and is ready to embed.
func (a Artifact) OK() bool { return a.Err == nil && len(a.Data) > 0 }

// Options controls rendering.
type Options struct {
	// Width and Height are in inches.
	Width  float64
	Height float64
	// Bins is the histogram bin count.
	Bins int
}

// DefaultOptions returns the standard chart geometry.
func DefaultOptions() Options {
	return Options{Width: 12, Height: 6, Bins: 20}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.Bins <= 0 {
		o.Bins = def.Bins
	}
	return o
}

// Plan returns the roles rendered for n subject columns, in order.
func Plan(n int) []Role {
	if n <= 0 {
		return nil
	}
	roles := []Role{RoleSubjectAverage, RoleTotalHistogram, RoleSubjectBoxPlot}
	if n >= RadarMinSubjects {
		roles = append(roles, RoleTop3Radar)
	}
	return append(roles, RolePassRate)
}

type builder func(d *stats.Derived, opt Options) (*plot.Plot, error)

var builders = map[Role]builder{
	RoleSubjectAverage: subjectAverage,
	RoleTotalHistogram: totalHistogram,
	RoleSubjectBoxPlot: subjectBoxPlot,
	RoleTop3Radar:      top3Radar,
	RolePassRate:       passRate,
}

// Render draws every planned chart. One chart failing does not stop the
// others; it yields an artifact with Err set.
func Render(d *stats.Derived, opt Options) []Artifact {
	return renderAll(d, opt, builders)
}

func renderAll(d *stats.Derived, opt Options, table map[Role]builder) []Artifact {
	if d == nil || d.Rows() == 0 {
		return nil
	}
	opt = opt.withDefaults()
	roles := Plan(len(d.Subjects))
	out := make([]Artifact, 0, len(roles))
	for _, role := range roles {
		out = append(out, renderOne(role, table[role], d, opt))
	}
	return out
}

func renderOne(role Role, b builder, d *stats.Derived, opt Options) (art Artifact) {
	art = Artifact{Role: role, Title: role.Title()}
	defer func() {
		if r := recover(); r != nil {
			art.Data = nil
			art.Err = fmt.Errorf("render %s: panic: %v", role, r)
		}
	}()
	if b == nil {
		art.Err = fmt.Errorf("render %s: no renderer", role)
		return art
	}
	p, err := b(d, opt)
	if err != nil {
		art.Err = fmt.Errorf("render %s: %w", role, err)
		return art
	}
	wt, err := p.WriterTo(vg.Length(opt.Width)*vg.Inch, vg.Length(opt.Height)*vg.Inch, "png")
	if err != nil {
		art.Err = fmt.Errorf("encode %s: %w", role, err)
		return art
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		art.Err = fmt.Errorf("encode %s: %w", role, err)
		return art
	}
	art.Data = buf.Bytes()
	return art
}

// Errors combines the failures of a chart set, or returns nil.
func Errors(arts []Artifact) error {
	var err error
	for _, a := range arts {
		if a.Err != nil {
			err = multierr.Append(err, a.Err)
		}
	}
	return err
}

// Refs converts artifacts to the record's chart list.
func Refs(arts []Artifact) []stats.ChartRef {
	refs := make([]stats.ChartRef, 0, len(arts))
	for _, a := range arts {
		refs = append(refs, stats.ChartRef{
			Role:   string(a.Role),
			Title:  a.Title,
			Path:   a.Path,
			Failed: !a.OK(),
		})
	}
	return refs
}
