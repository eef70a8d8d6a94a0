package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Reference lines.
const (
	passLine   = stats.PassThreshold
	targetLine = 80.0
)

var (
	skyBlue    = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	navy       = color.RGBA{R: 0, G: 0, B: 128, A: 255}
	lightGreen = color.RGBA{R: 144, G: 238, B: 144, A: 255}
	darkGreen  = color.RGBA{R: 0, G: 100, B: 0, A: 255}
	coral      = color.RGBA{R: 255, G: 127, B: 80, A: 255}
	darkRed    = color.RGBA{R: 139, G: 0, B: 0, A: 255}
	red        = color.RGBA{R: 220, G: 20, B: 60, A: 255}
	green      = color.RGBA{R: 34, G: 139, B: 34, A: 255}
	gridGray   = color.Gray{Y: 200}
)

func newPlot(role Role, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = role.Title()
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)
	return p
}

func barWidth(n int) vg.Length {
	return vg.Points(math.Max(8, math.Min(60, 480/float64(n))))
}

// referenceLine spans the nominal x range of n bars at height y.
func referenceLine(y float64, n int, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: y}, {X: float64(n) - 0.5, Y: y}})
	if err != nil {
		return nil, err
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1.5)
	l.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	return l, nil
}

func subjectAverage(d *stats.Derived, _ Options) (*plot.Plot, error) {
	p := newPlot(RoleSubjectAverage, "Subjects", "Average Score")
	vals := make(plotter.Values, len(d.Subjects))
	for j, s := range d.Subjects {
		vals[j] = finite(d.Mean(s))
	}
	bars, err := plotter.NewBarChart(vals, barWidth(len(vals)))
	if err != nil {
		return nil, err
	}
	bars.Color = skyBlue
	bars.LineStyle.Color = navy
	line, err := referenceLine(passLine, len(vals), red)
	if err != nil {
		return nil, err
	}
	p.Add(bars, line)
	p.Legend.Add(fmt.Sprintf("Passing Line (%.0f)", passLine), line)
	p.Legend.Top = true
	p.NominalX(d.Subjects...)
	p.Y.Min, p.Y.Max = 0, 100
	return p, nil
}

func totalHistogram(d *stats.Derived, opt Options) (*plot.Plot, error) {
	p := newPlot(RoleTotalHistogram, "Total Score", "Number of Students")
	vals := present(d.Total)
	if len(vals) == 0 {
		return nil, errors.New("no total scores")
	}
	h, err := plotter.NewHist(vals, opt.Bins)
	if err != nil {
		return nil, err
	}
	h.FillColor = lightGreen
	h.LineStyle.Color = darkGreen
	p.Add(h)
	return p, nil
}

func subjectBoxPlot(d *stats.Derived, _ Options) (*plot.Plot, error) {
	p := newPlot(RoleSubjectBoxPlot, "", "Score")
	for j, s := range d.Subjects {
		vals := present(d.Column(s))
		if len(vals) == 0 {
			continue
		}
		b, err := plotter.NewBoxPlot(barWidth(len(d.Subjects)), float64(j), vals)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s, err)
		}
		b.FillColor = plotutil.Color(j)
		p.Add(b)
	}
	p.NominalX(d.Subjects...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return p, nil
}

// top3Radar overlays the three best total-score rows on one polar axis per
// subject. Radius 1 is a score of 100.
func top3Radar(d *stats.Derived, _ Options) (*plot.Plot, error) {
	k := len(d.Subjects)
	if k < RadarMinSubjects {
		return nil, fmt.Errorf("radar needs at least %d subjects, have %d", RadarMinSubjects, k)
	}
	p := plot.New()
	p.Title.Text = RoleTop3Radar.Title()
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.HideAxes()

	angle := func(j int) float64 { return math.Pi/2 - 2*math.Pi*float64(j)/float64(k) }
	at := func(j int, r float64) plotter.XY {
		a := angle(j)
		return plotter.XY{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}

	for _, r := range []float64{0.2, 0.4, 0.6, 0.8, 1.0} {
		ring := make(plotter.XYs, k+1)
		for j := 0; j <= k; j++ {
			ring[j] = at(j%k, r)
		}
		l, err := plotter.NewLine(ring)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = gridGray
		l.LineStyle.Width = vg.Points(0.5)
		p.Add(l)
	}
	labels := plotter.XYLabels{XYs: make(plotter.XYs, k), Labels: make([]string, k)}
	for j, s := range d.Subjects {
		spoke, err := plotter.NewLine(plotter.XYs{{}, at(j, 1)})
		if err != nil {
			return nil, err
		}
		spoke.LineStyle.Color = gridGray
		spoke.LineStyle.Width = vg.Points(0.5)
		p.Add(spoke)
		labels.XYs[j] = at(j, 1.12)
		labels.Labels[j] = s
	}
	lbl, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = draw.XCenter
		lbl.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(lbl)

	for i, row := range stats.TopIndices(d.Total, stats.TopN) {
		pts := make(plotter.XYs, k)
		for j := range d.Subjects {
			pts[j] = at(j, math.Max(0, finite(d.Scores[row][j]))/100)
		}
		poly, err := plotter.NewPolygon(pts)
		if err != nil {
			return nil, err
		}
		c := plotutil.Color(i)
		poly.Color = translucent(c, 64)
		poly.LineStyle.Color = c
		poly.LineStyle.Width = vg.Points(2)
		p.Add(poly)
		p.Legend.Add(d.Names[row], poly)
	}
	p.Legend.Top = true
	p.X.Min, p.X.Max = -1.3, 1.3
	p.Y.Min, p.Y.Max = -1.3, 1.3
	return p, nil
}

func passRate(d *stats.Derived, _ Options) (*plot.Plot, error) {
	p := newPlot(RolePassRate, "Subjects", "Pass Rate (%)")
	n := len(d.Subjects)
	vals := make(plotter.Values, n)
	labels := plotter.XYLabels{XYs: make(plotter.XYs, n), Labels: make([]string, n)}
	for j, s := range d.Subjects {
		r := finite(d.PassRate(s))
		vals[j] = r
		labels.XYs[j] = plotter.XY{X: float64(j), Y: r}
		labels.Labels[j] = fmt.Sprintf("%.1f%%", r)
	}
	bars, err := plotter.NewBarChart(vals, barWidth(n))
	if err != nil {
		return nil, err
	}
	bars.Color = coral
	bars.LineStyle.Color = darkRed
	line, err := referenceLine(targetLine, n, green)
	if err != nil {
		return nil, err
	}
	lbl, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = draw.XCenter
	}
	lbl.Offset = vg.Point{Y: vg.Points(3)}
	p.Add(bars, line, lbl)
	p.Legend.Add(fmt.Sprintf("Target (%.0f%%)", targetLine), line)
	p.Legend.Top = true
	p.NominalX(d.Subjects...)
	p.Y.Min, p.Y.Max = 0, 110
	return p, nil
}

func present(col []float64) plotter.Values {
	out := make(plotter.Values, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

func translucent(c color.Color, alpha uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}
