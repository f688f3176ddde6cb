/*
 * plot.go, part of oxdna
 *
 * Copyright 2023 The oxdna developers
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package cluster

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Plot writes a scatter plot of the clustering to a file, the format given
// by the extension (png, pdf, svg...). With 1-component points the
// configuration id goes on X and the order parameter on Y; with 2 or more
// components the first two order parameters span the plot, a notice being
// logged when more are present. Each cluster gets its own color and the
// centroid configurations, when given, are drawn in black.
func Plot(d *Data, centroids map[int]int, name string, options ...*Options) error {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if err := d.check(); err != nil {
		return err
	}
	dims := len(d.Points[0])
	if dims > 2 {
		o.logger.Info("plotting the first two order parameters only", "components", dims)
	}
	xy := func(i int) (float64, float64) {
		if dims == 1 {
			return float64(i), d.Points[i][0]
		}
		return d.Points[i][0], d.Points[i][1]
	}
	p := plot.New()
	p.Title.Text = "clusters"
	if dims == 1 {
		p.X.Label.Text = "configuration id"
		p.Y.Label.Text = "OP0"
	} else {
		p.X.Label.Text = "OP0"
		p.Y.Label.Text = "OP1"
	}
	labels := uniqueLabels(d.Labels)
	for key, l := range labels {
		pts := make(plotter.XYs, 0, len(d.Labels))
		for i, lab := range d.Labels {
			if lab != l {
				continue
			}
			x, y := xy(i)
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		r, g, b := colors(key, len(labels))
		s.GlyphStyle.Color = color.RGBA{R: r, G: g, B: b, A: 255}
		if l == -1 {
			p.Legend.Add("noise", s)
		} else {
			p.Legend.Add(fmt.Sprintf("cluster %d", l), s)
		}
		p.Add(s)
	}
	if len(centroids) > 0 {
		pts := make(plotter.XYs, 0, len(centroids))
		for _, l := range labels {
			i, ok := centroids[l]
			if !ok {
				continue
			}
			x, y := xy(i)
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = color.RGBA{A: 255}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(4)
		p.Legend.Add("centroids", s)
		p.Add(s)
	}
	return p.Save(5*vg.Inch, 5*vg.Inch, name)
}

//spreads the clusters over the hue circle, skipping the yellows around 60
//that wash out on white.
func colors(key, steps int) (r, g, b uint8) {
	norm := 260.0 / float64(steps)
	hp := float64(key)*norm + 20.0
	var h float64
	if hp < 55 {
		h = hp - 20.0
	} else {
		h = hp + 20.0
	}
	return iHVS2RGB(h, 1.0, 1.0)
}

//takes hue (0-360), v and s (0-1), returns r,g,b (0-255)
func iHVS2RGB(h, v, s float64) (uint8, uint8, uint8) {
	var i, f, p, q, t float64
	var r, g, b float64
	maxcolor := 255.0
	conversion := maxcolor * v
	if s == 0.0 {
		return uint8(conversion), uint8(conversion), uint8(conversion)
	}
	h = h / 60
	i = math.Floor(h)
	f = h - i
	p = v * (1 - s)
	q = v * (1 - s*f)
	t = v * (1 - s*(1-f))
	switch int(i) {
	case 0:
		r = v
		g = t
		b = p
	case 1:
		r = q
		g = v
		b = p
	case 2:
		r = p
		g = v
		b = t
	case 3:
		r = p
		g = q
		b = v
	case 4:
		r = t
		g = p
		b = v
	default: //case 5
		r = v
		g = p
		b = q
	}
	r = r * conversion
	g = g * conversion
	b = b * conversion
	return uint8(r), uint8(g), uint8(b)
}
