// Package export renders recorded trajectories to image files with
// gonum/plot.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/storage"
)

const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

var axisNames = [3]string{"x", "y", "z"}

// Path projects particle centres onto two axes. It implements plotter.XYer.
type Path struct {
	Points []r3.Vec
	H, V   int
}

func (p Path) Len() int { return len(p.Points) }

func (p Path) XY(i int) (float64, float64) {
	return geom.Component(p.Points[i], p.H), geom.Component(p.Points[i], p.V)
}

// Series is a scalar against time. It implements plotter.XYer.
type Series struct {
	Times  []float64
	Values []float64
}

func (s Series) Len() int { return len(s.Times) }

func (s Series) XY(i int) (float64, float64) { return s.Times[i], s.Values[i] }

// particleIDs lists the ids present in the first frame.
func particleIDs(frames []storage.Frame) []int {
	if len(frames) == 0 {
		return nil
	}
	ids := make([]int, len(frames[0].Particles))
	for i, p := range frames[0].Particles {
		ids[i] = p.ID
	}
	return ids
}

func checkAxis(a int) error {
	if a < 0 || a > 2 {
		return fmt.Errorf("axis %d out of range", a)
	}
	return nil
}

// Trajectories draws every particle's path projected onto axes h and v.
// maxLegend caps the legend entries for large lattices.
func Trajectories(frames []storage.Frame, h, v, maxLegend int) (*plot.Plot, error) {
	if err := checkAxis(h); err != nil {
		return nil, err
	}
	if err := checkAxis(v); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to plot")
	}

	p := plot.New()
	p.Title.Text = "Particle trajectories"
	p.X.Label.Text = axisNames[h]
	p.Y.Label.Text = axisNames[v]
	p.Add(plotter.NewGrid())

	for i, id := range particleIDs(frames) {
		_, centers := storage.Track(frames, id)
		line, err := plotter.NewLine(Path{Points: centers, H: h, V: v})
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		if i < maxLegend {
			p.Legend.Add(fmt.Sprintf("particle %d", id), line)
		}
	}
	return p, nil
}

// Heights plots one coordinate of every particle against time.
func Heights(frames []storage.Frame, axis int) (*plot.Plot, error) {
	if err := checkAxis(axis); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to plot")
	}

	p := plot.New()
	p.Title.Text = "Particle " + axisNames[axis] + " over time"
	p.X.Label.Text = "t"
	p.Y.Label.Text = axisNames[axis]

	for i, id := range particleIDs(frames) {
		times, centers := storage.Track(frames, id)
		values := make([]float64, len(centers))
		for k, c := range centers {
			values[k] = geom.Component(c, axis)
		}
		line, err := plotter.NewLine(Series{Times: times, Values: values})
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
	}
	return p, nil
}

// Save writes p to path; the format follows the extension (png, svg, pdf, ...).
func Save(p *plot.Plot, path string) error {
	return p.Save(DefaultWidth, DefaultHeight, path)
}

// Write renders p in format to out.
func Write(p *plot.Plot, out io.Writer, format string) error {
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, strings.ToLower(format))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(out)
	return err
}

// FormatOf returns the image format implied by path.
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
