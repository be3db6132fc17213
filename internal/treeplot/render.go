package treeplot

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/evolbioinfo/gotree/tree"
	"github.com/fogleman/gg"

	"phylorun/internal/nexus"
	"phylorun/internal/stageerr"
)

// Options control the image size in pixels.
type Options struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// DefaultOptions is a 12x8 inch figure at 100 dpi.
func DefaultOptions() Options { return Options{Width: 1200, Height: 800} }

// Validate rejects images too small to hold a plot.
func (o Options) Validate() error {
	if o.Width < 200 || o.Height < 200 {
		return fmt.Errorf("plot size %dx%d too small (min 200x200)", o.Width, o.Height)
	}
	return nil
}

const (
	marginLeft   = 40.0
	marginRight  = 220.0
	marginTop    = 40.0
	marginBottom = 70.0
	tickTarget   = 5
)

// LoadLast reads a MrBayes tree file and returns its last sampled tree with
// tip names translated.
func LoadLast(path string) (*tree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ts, err := nexus.ReadTrees(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	last, err := ts.Last()
	if err != nil {
		return nil, stageerr.EmptyInput(path, "no trees found in %s", path)
	}
	return ts.Parse(last)
}

// Render draws t as PNG to w.
func Render(t *tree.Tree, w io.Writer, o Options) error {
	dc, err := draw(t, o)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// RenderFile draws t as PNG at path, replacing any existing file.
func RenderFile(t *tree.Tree, path string, o Options) error {
	dc, err := draw(t, o)
	if err != nil {
		return err
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func draw(t *tree.Tree, o Options) (*gg.Context, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	l, err := NewLayout(t)
	if err != nil {
		return nil, err
	}

	w, h := float64(o.Width), float64(o.Height)
	plotW := w - marginLeft - marginRight
	plotH := h - marginTop - marginBottom
	maxX := l.MaxX
	if maxX <= 0 {
		maxX = 1
	}
	rows := float64(l.Tips - 1)
	if rows < 1 {
		rows = 1
	}
	px := func(x float64) float64 { return marginLeft + x/maxX*plotW }
	py := func(y float64) float64 { return marginTop + y/rows*plotH }

	dc := gg.NewContext(o.Width, o.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1.5)

	for _, n := range l.Nodes {
		y := py(n.Y)
		if !n.Root {
			dc.DrawLine(px(n.ParentX), y, px(n.X), y)
			dc.Stroke()
			if n.Label != "" {
				dc.DrawStringAnchored(n.Label, (px(n.ParentX)+px(n.X))/2, y-3, 0.5, 0)
			}
		}
		if len(n.Children) > 0 {
			top := py(l.Nodes[n.Children[0]].Y)
			bottom := py(l.Nodes[n.Children[len(n.Children)-1]].Y)
			dc.DrawLine(px(n.X), top, px(n.X), bottom)
			dc.Stroke()
		}
		if n.Tip && n.Name != "" {
			dc.DrawStringAnchored(n.Name, px(n.X)+5, y, 0, 0.5)
		}
	}

	// x axis
	axisY := h - marginBottom + 25
	dc.SetLineWidth(1)
	dc.DrawLine(px(0), axisY, px(maxX), axisY)
	dc.Stroke()
	step := niceStep(maxX, tickTarget)
	for v := 0.0; v <= maxX+step/1e6; v += step {
		x := px(v)
		dc.DrawLine(x, axisY, x, axisY+5)
		dc.Stroke()
		dc.DrawStringAnchored(strconv.FormatFloat(v, 'g', 4, 64), x, axisY+8, 0.5, 1)
	}
	axisLabel := "branch length"
	if l.UnitLengths {
		axisLabel = "depth"
	}
	dc.DrawStringAnchored(axisLabel, px(maxX/2), h-10, 0.5, 0)
	return dc, nil
}
