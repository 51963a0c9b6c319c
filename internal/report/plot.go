package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"pulsecli/internal/analysis"
)

const (
	plotWidth  = 900
	plotHeight = 420

	marginLeft   = 60
	marginRight  = 20
	marginTop    = 30
	marginBottom = 40
)

var (
	plotBackground = color.RGBA{255, 255, 255, 255}
	plotAxis       = color.RGBA{60, 60, 60, 255}
	plotGrid       = color.RGBA{225, 225, 225, 255}
	plotSignal     = color.RGBA{40, 90, 200, 255}
	plotThreshold  = color.RGBA{200, 140, 40, 255}
	plotPeak       = color.RGBA{210, 40, 40, 255}
)

// RenderPNG draws one channel's signal over its time axis with the
// detection threshold and the detected pulse peaks marked, and returns
// the encoded PNG.
func RenderPNG(result *analysis.Result, channel string) ([]byte, error) {
	ch, err := findChannel(result, channel)
	if err != nil {
		return nil, err
	}

	values, err := result.Table.Numeric(ch.Channel)
	if err != nil {
		return nil, fmt.Errorf("report: channel %q: %w", ch.Channel, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("report: channel %q has no samples", ch.Channel)
	}

	img := image.NewRGBA(image.Rect(0, 0, plotWidth, plotHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{plotBackground}, image.Point{}, draw.Src)

	p := &plotter{
		img:    img,
		x0:     marginLeft,
		y0:     marginTop,
		x1:     plotWidth - marginRight,
		y1:     plotHeight - marginBottom,
		values: values,
	}
	p.computeRange(ch.Threshold)

	p.drawGrid()
	p.drawAxes()
	p.drawThreshold(ch.Threshold)
	p.drawSignal()
	p.drawPeaks(ch)
	p.drawLabels(ch)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("report: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// findChannel resolves the requested channel, defaulting to the first
// analyzed channel when the name is empty.
func findChannel(result *analysis.Result, channel string) (*analysis.ChannelResult, error) {
	if result == nil || result.Table == nil || len(result.Channels) == 0 {
		return nil, fmt.Errorf("report: result has no channels")
	}
	if channel == "" {
		return &result.Channels[0], nil
	}
	for i := range result.Channels {
		if result.Channels[i].Channel == channel {
			return &result.Channels[i], nil
		}
	}
	return nil, fmt.Errorf("report: channel %q was not analyzed", channel)
}

// plotter scales sample/value coordinates into the fixed plot area.
type plotter struct {
	img            *image.RGBA
	x0, y0, x1, y1 int
	values         []float64
	minV, maxV     float64
}

func (p *plotter) computeRange(threshold float64) {
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range p.values {
		if math.IsNaN(v) {
			continue
		}
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if math.IsInf(minV, 1) {
		minV, maxV = 0, 1
	}
	// Keep the threshold line visible.
	minV = math.Min(minV, threshold)
	maxV = math.Max(maxV, threshold)
	if maxV == minV {
		maxV = minV + 1
	}

	// A little headroom top and bottom.
	pad := (maxV - minV) * 0.05
	p.minV, p.maxV = minV-pad, maxV+pad
}

func (p *plotter) xAt(i int) int {
	if len(p.values) == 1 {
		return p.x0
	}
	return p.x0 + i*(p.x1-p.x0)/(len(p.values)-1)
}

func (p *plotter) yAt(v float64) int {
	frac := (v - p.minV) / (p.maxV - p.minV)
	return p.y1 - int(frac*float64(p.y1-p.y0))
}

func (p *plotter) drawGrid() {
	for i := 1; i < 5; i++ {
		y := p.y0 + i*(p.y1-p.y0)/5
		p.hline(p.x0, p.x1, y, plotGrid)
	}
}

func (p *plotter) drawAxes() {
	p.hline(p.x0, p.x1, p.y1, plotAxis)
	p.vline(p.x0, p.y0, p.y1, plotAxis)
}

func (p *plotter) drawThreshold(threshold float64) {
	y := p.yAt(threshold)
	for x := p.x0; x <= p.x1; x += 6 {
		end := x + 3
		if end > p.x1 {
			end = p.x1
		}
		p.hline(x, end, y, plotThreshold)
	}
}

func (p *plotter) drawSignal() {
	prevSet := false
	var prevX, prevY int
	for i, v := range p.values {
		if math.IsNaN(v) {
			prevSet = false
			continue
		}
		x, y := p.xAt(i), p.yAt(v)
		if prevSet {
			p.line(prevX, prevY, x, y, plotSignal)
		} else {
			p.img.Set(x, y, plotSignal)
		}
		prevX, prevY = x, y
		prevSet = true
	}
}

func (p *plotter) drawPeaks(ch *analysis.ChannelResult) {
	for _, pulse := range ch.Pulses {
		// Mark the first sample that reaches the pulse peak.
		for i := pulse.Start; i <= pulse.End && i < len(p.values); i++ {
			if p.values[i] == pulse.Peak {
				p.marker(p.xAt(i), p.yAt(pulse.Peak))
				break
			}
		}
	}
}

func (p *plotter) drawLabels(ch *analysis.ChannelResult) {
	title := fmt.Sprintf("%s  (threshold %.4g, %d pulses)", ch.Channel, ch.Threshold, len(ch.Pulses))
	p.text(p.x0, p.y0-10, title, plotAxis)

	p.text(4, p.yAt(p.maxV)+12, fmt.Sprintf("%.4g", p.maxV), plotAxis)
	p.text(4, p.y1, fmt.Sprintf("%.4g", p.minV), plotAxis)
	p.text(p.x0, p.y1+24, "0", plotAxis)
	p.text(p.x1-40, p.y1+24, fmt.Sprintf("%d", len(p.values)-1), plotAxis)
}

// marker draws a small filled diamond.
func (p *plotter) marker(cx, cy int) {
	for dy := -3; dy <= 3; dy++ {
		span := 3 - abs(dy)
		for dx := -span; dx <= span; dx++ {
			p.img.Set(cx+dx, cy+dy, plotPeak)
		}
	}
}

func (p *plotter) hline(x0, x1, y int, c color.Color) {
	for x := x0; x <= x1; x++ {
		p.img.Set(x, y, c)
	}
}

func (p *plotter) vline(x, y0, y1 int, c color.Color) {
	for y := y0; y <= y1; y++ {
		p.img.Set(x, y, c)
	}
}

// line draws a straight segment with integer Bresenham stepping.
func (p *plotter) line(x0, y0, x1, y1 int, c color.Color) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		p.img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (p *plotter) text(x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  p.img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
