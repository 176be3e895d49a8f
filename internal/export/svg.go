// Package export renders run curves as standalone SVG line charts.
package export

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/san-kum/pdesim/internal/experiment"
)

var palette = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800", "#8888ff"}

const pad = 0.05

type bounds struct{ minX, maxX, minY, maxY float64 }

func curveBounds(curves []experiment.Curve) (bounds, bool) {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	found := false
	for _, c := range curves {
		for i := range c.X {
			if math.IsNaN(c.Y[i]) || math.IsInf(c.Y[i], 0) {
				continue
			}
			b.minX, b.maxX = math.Min(b.minX, c.X[i]), math.Max(b.maxX, c.X[i])
			b.minY, b.maxY = math.Min(b.minY, c.Y[i]), math.Max(b.maxY, c.Y[i])
			found = true
		}
	}
	if !found {
		return b, false
	}
	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * pad
	b.maxX += rangeX * pad
	b.minY -= rangeY * pad
	b.maxY += rangeY * pad
	return b, true
}

// CurvesToSVG draws every curve on shared axes, one colour each, with a
// legend. Non-finite points break the line. It returns "" when there is
// nothing to draw.
func CurvesToSVG(curves []experiment.Curve, width, height int, title string) string {
	b, ok := curveBounds(curves)
	if !ok || width <= 0 || height <= 0 {
		return ""
	}
	w, h := float64(width), float64(height)
	px := func(x float64) float64 { return (x - b.minX) / (b.maxX - b.minX) * w }
	py := func(y float64) float64 { return h - (y-b.minY)/(b.maxY-b.minY)*h }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	// zero line when the value axis crosses it
	if b.minY < 0 && b.maxY > 0 {
		sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444466" stroke-dasharray="4 4"/>
`, py(0), width, py(0)))
	}

	for n, c := range curves {
		color := palette[n%len(palette)]
		var d strings.Builder
		pen := false
		for i := range c.X {
			if math.IsNaN(c.Y[i]) || math.IsInf(c.Y[i], 0) {
				pen = false
				continue
			}
			cmd := "L"
			if !pen {
				cmd = "M"
			}
			if d.Len() > 0 {
				d.WriteByte(' ')
			}
			d.WriteString(fmt.Sprintf("%s%.1f,%.1f", cmd, px(c.X[i]), py(c.Y[i])))
			pen = true
		}
		if d.Len() == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, color, d.String()))
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 36+16*n, color, html.EscapeString(c.Name)))
	}

	if title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="8" y="18" fill="#ffffff" font-family="monospace" font-size="14">%s</text>
`, html.EscapeString(title)))
	}
	sb.WriteString("</svg>")
	return sb.String()
}
