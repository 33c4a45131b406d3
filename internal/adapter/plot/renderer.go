package plot

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fogleman/gg"

	"github.com/nikhaldi/mobility-growth/internal/domain"
	"github.com/nikhaldi/mobility-growth/internal/observability"
)

const (
	defaultWidth  = 1280
	defaultHeight = 960

	marginLeft   = 90
	marginRight  = 40
	marginTop    = 40
	marginBottom = 120

	// Gridlines: a major line every 10 data units, split once by a minor line.
	majorTick        = 10.0
	minorSubdivision = 2
)

// Renderer draws an aggregation snapshot as an annotated scatter plot:
// one labeled point per county, the fitted trend line, gridlines, and a
// caption restating the parameters.
type Renderer struct {
	width   int
	height  int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRenderer creates a PNG renderer at the default canvas size.
func NewRenderer(logger *slog.Logger, metrics *observability.Metrics) *Renderer {
	return &Renderer{
		width:   defaultWidth,
		height:  defaultHeight,
		logger:  logger,
		metrics: metrics,
	}
}

// Render produces a PNG for the snapshot. An empty snapshot still renders:
// axes, gridlines, and caption with no points or line.
func (r *Renderer) Render(snap domain.Snapshot) ([]byte, error) {
	start := time.Now()

	xs, ys, labels := snapshotPoints(snap)

	dc := gg.NewContext(r.width, r.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	xAxis := axisRange(xs, snap.Fit != nil)
	yAxis := axisRange(ys, false)

	plotW := float64(r.width - marginLeft - marginRight)
	plotH := float64(r.height - marginTop - marginBottom)
	toX := func(x float64) float64 { return marginLeft + (x-xAxis.lo)/(xAxis.hi-xAxis.lo)*plotW }
	toY := func(y float64) float64 { return marginTop + plotH - (y-yAxis.lo)/(yAxis.hi-yAxis.lo)*plotH }

	r.drawGrid(dc, xAxis, yAxis, toX, toY)
	r.drawFrame(dc)

	if snap.Fit != nil {
		r.drawTrend(dc, *snap.Fit, xs, toX, toY, xAxis, yAxis)
	}
	r.drawPoints(dc, xs, ys, labels, toX, toY)
	r.drawAxisLabels(dc)
	r.drawCaption(dc, snap.Params)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	r.metrics.RendersTotal.Inc()
	r.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	r.logger.Debug("plot rendered", "points", len(xs), "bytes", buf.Len(), "duration", time.Since(start))
	return buf.Bytes(), nil
}

// snapshotPoints extracts finite (mobility, growth, label) triples from the
// wire rows; rows with a null growth rate are skipped.
func snapshotPoints(snap domain.Snapshot) (xs, ys []float64, labels []string) {
	for i := range snap.Rows {
		row := snap.Rows[i]
		if row.MeanDailyGrowthPct == nil {
			continue
		}
		xs = append(xs, row.MeanMobilityIndex)
		ys = append(ys, *row.MeanDailyGrowthPct)
		labels = append(labels, row.RegionName)
	}
	return xs, ys, labels
}

type axis struct {
	lo, hi float64
}

// axisRange pads the data range by 5% on each side (the trend line is drawn
// over the same padded x-range, so including it keeps the line inside the
// frame). Degenerate or empty ranges fall back to a fixed span so an empty
// plot still has axes.
func axisRange(values []float64, padForTrend bool) axis {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo > hi {
		return axis{lo: -50, hi: 50}
	}
	if lo == hi {
		return axis{lo: lo - 10, hi: hi + 10}
	}
	pad := (hi - lo) * 0.05
	if padForTrend {
		// Leave a little extra so the padded trend endpoints don't touch
		// the frame.
		pad *= 1.5
	}
	return axis{lo: lo - pad, hi: hi + pad}
}

func (r *Renderer) drawGrid(dc *gg.Context, xAxis, yAxis axis, toX, toY func(float64) float64) {
	minorStep := majorTick / minorSubdivision

	// Minor lines first so major lines draw over them.
	dc.SetRGB(0.92, 0.92, 0.92)
	dc.SetLineWidth(0.5)
	for x := math.Ceil(xAxis.lo/minorStep) * minorStep; x <= xAxis.hi; x += minorStep {
		dc.DrawLine(toX(x), marginTop, toX(x), float64(r.height-marginBottom))
	}
	for y := math.Ceil(yAxis.lo/minorStep) * minorStep; y <= yAxis.hi; y += minorStep {
		dc.DrawLine(marginLeft, toY(y), float64(r.width-marginRight), toY(y))
	}
	dc.Stroke()

	dc.SetRGB(0.8, 0.8, 0.8)
	dc.SetLineWidth(1)
	for x := math.Ceil(xAxis.lo/majorTick) * majorTick; x <= xAxis.hi; x += majorTick {
		dc.DrawLine(toX(x), marginTop, toX(x), float64(r.height-marginBottom))
	}
	for y := math.Ceil(yAxis.lo/majorTick) * majorTick; y <= yAxis.hi; y += majorTick {
		dc.DrawLine(marginLeft, toY(y), float64(r.width-marginRight), toY(y))
	}
	dc.Stroke()

	// Tick labels at major lines.
	dc.SetRGB(0.35, 0.35, 0.35)
	for x := math.Ceil(xAxis.lo/majorTick) * majorTick; x <= xAxis.hi; x += majorTick {
		dc.DrawStringAnchored(fmt.Sprintf("%g", x), toX(x), float64(r.height-marginBottom)+14, 0.5, 0.5)
	}
	for y := math.Ceil(yAxis.lo/majorTick) * majorTick; y <= yAxis.hi; y += majorTick {
		dc.DrawStringAnchored(fmt.Sprintf("%g", y), marginLeft-10, toY(y), 1, 0.5)
	}
}

func (r *Renderer) drawFrame(dc *gg.Context) {
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(marginLeft, marginTop,
		float64(r.width-marginLeft-marginRight), float64(r.height-marginTop-marginBottom))
	dc.Stroke()
}

func (r *Renderer) drawTrend(dc *gg.Context, fit domain.TrendFit, xs []float64, toX, toY func(float64) float64, xAxis, yAxis axis) {
	samples := domain.TrendSamples(fit, xs)
	if samples == nil {
		return
	}

	dc.SetRGBA(0.85, 0.3, 0.2, 0.9)
	dc.SetLineWidth(2)
	started := false
	for _, s := range samples {
		// Clip vertically so a steep line doesn't escape the frame.
		if s.Y < yAxis.lo || s.Y > yAxis.hi || s.X < xAxis.lo || s.X > xAxis.hi {
			if started {
				dc.Stroke()
				started = false
			}
			continue
		}
		if !started {
			dc.MoveTo(toX(s.X), toY(s.Y))
			started = true
			continue
		}
		dc.LineTo(toX(s.X), toY(s.Y))
	}
	if started {
		dc.Stroke()
	}
}

func (r *Renderer) drawPoints(dc *gg.Context, xs, ys []float64, labels []string, toX, toY func(float64) float64) {
	for i := range xs {
		px, py := toX(xs[i]), toY(ys[i])

		dc.SetRGBA(0.15, 0.35, 0.65, 0.85)
		dc.DrawCircle(px, py, 5)
		dc.Fill()

		dc.SetRGB(0.25, 0.25, 0.25)
		dc.DrawString(labels[i], px+8, py-6)
	}
}

func (r *Renderer) drawAxisLabels(dc *gg.Context) {
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored("Mean mobility index (m50)",
		float64(marginLeft)+float64(r.width-marginLeft-marginRight)/2,
		float64(r.height-marginBottom)+40, 0.5, 0.5)

	dc.Push()
	dc.RotateAbout(-math.Pi/2, 24, float64(marginTop)+float64(r.height-marginTop-marginBottom)/2)
	dc.DrawStringAnchored("Mean daily case growth (%)",
		24, float64(marginTop)+float64(r.height-marginTop-marginBottom)/2, 0.5, 0.5)
	dc.Pop()
}

func (r *Renderer) drawCaption(dc *gg.Context, p domain.Params) {
	caption := Caption(p)
	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawStringWrapped(caption,
		float64(r.width)/2, float64(r.height)-36,
		0.5, 0.5, float64(r.width)-2*marginLeft, 1.4, gg.AlignCenter)
}

// Caption builds the human-readable restatement of the five parameters.
func Caption(p domain.Params) string {
	const df = "2006-01-02"
	return fmt.Sprintf(
		"Mean daily case growth %s to %s vs mean m50 mobility index %s to %s, %s counties with at least %d cases.",
		p.GrowthWindow.Start.Format(df), p.GrowthWindow.End.Format(df),
		p.MobilityWindow.Start.Format(df), p.MobilityWindow.End.Format(df),
		p.State, p.MinCases,
	)
}
