package render

import (
	"image/color"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

func dateValue(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

// pieChart draws slices clockwise from twelve o'clock, filling the canvas.
type pieChart struct {
	values []float64
}

func (pc pieChart) Plot(c draw.Canvas, _ *plot.Plot) {
	total := floats.Sum(pc.values)
	if total <= 0 {
		return
	}
	cx := (c.Min.X + c.Max.X) / 2
	cy := (c.Min.Y + c.Max.Y) / 2
	r := vg.Length(math.Min(float64(c.Max.X-c.Min.X), float64(c.Max.Y-c.Min.Y)) * 0.45)

	start := math.Pi / 2
	for i, v := range pc.values {
		sweep := 2 * math.Pi * v / total
		steps := int(math.Max(2, sweep*30))
		pts := []vg.Point{{X: cx, Y: cy}}
		for s := 0; s <= steps; s++ {
			a := start - sweep*float64(s)/float64(steps)
			pts = append(pts, vg.Point{X: cx + r*vg.Length(math.Cos(a)), Y: cy + r*vg.Length(math.Sin(a))})
		}
		c.FillPolygon(plotutil.Color(i), pts)
		start -= sweep
	}
}

// swatch is a solid legend thumbnail.
type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.color, []vg.Point{
		c.Min,
		{X: c.Max.X, Y: c.Min.Y},
		c.Max,
		{X: c.Min.X, Y: c.Max.Y},
	})
}

const violinPoints = 50

// violinPlot draws a mirrored kernel density per group at x = 0, 1, 2...
type violinPlot struct {
	ys    [][]float64
	dens  [][]float64
	ymin  float64
	ymax  float64
	width float64
}

func newViolinPlot(groups []plotter.Values) violinPlot {
	v := violinPlot{width: 0.8, ymin: math.Inf(1), ymax: math.Inf(-1)}
	for _, g := range groups {
		ys, dens := kde(g, violinPoints)
		v.ys = append(v.ys, ys)
		v.dens = append(v.dens, dens)
		if len(ys) > 0 {
			v.ymin = math.Min(v.ymin, ys[0])
			v.ymax = math.Max(v.ymax, ys[len(ys)-1])
		}
	}
	return v
}

func (v violinPlot) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for i := range v.ys {
		peak := floats.Max(v.dens[i])
		if peak <= 0 {
			continue
		}
		n := len(v.ys[i])
		poly := make([]vg.Point, 0, 2*n)
		for k := 0; k < n; k++ {
			half := v.dens[i][k] / peak * v.width / 2
			poly = append(poly, vg.Point{X: trX(float64(i) + half), Y: trY(v.ys[i][k])})
		}
		for k := n - 1; k >= 0; k-- {
			half := v.dens[i][k] / peak * v.width / 2
			poly = append(poly, vg.Point{X: trX(float64(i) - half), Y: trY(v.ys[i][k])})
		}
		c.FillPolygon(plotutil.Color(i), poly)
	}
}

func (v violinPlot) DataRange() (xmin, xmax, ymin, ymax float64) {
	return -0.5, float64(len(v.ys)) - 0.5, v.ymin, v.ymax
}

// kde evaluates a Gaussian kernel density estimate on n evenly spaced points
// spanning the data plus three bandwidths either side. Bandwidth follows
// Silverman's rule.
func kde(values []float64, n int) ([]float64, []float64) {
	if len(values) == 0 {
		return nil, nil
	}
	h := 1.06 * stat.StdDev(values, nil) * math.Pow(float64(len(values)), -0.2)
	if h == 0 || math.IsNaN(h) {
		h = math.Max(math.Abs(values[0])*0.1, 1)
	}
	lo := floats.Min(values) - 3*h
	hi := floats.Max(values) + 3*h

	ys := make([]float64, n)
	dens := make([]float64, n)
	norm := 1 / (float64(len(values)) * h * math.Sqrt(2*math.Pi))
	for k := 0; k < n; k++ {
		y := lo + (hi-lo)*float64(k)/float64(n-1)
		sum := 0.0
		for _, v := range values {
			u := (y - v) / h
			sum += math.Exp(-0.5 * u * u)
		}
		ys[k], dens[k] = y, sum*norm
	}
	return ys, dens
}
