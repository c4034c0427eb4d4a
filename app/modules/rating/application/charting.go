package ratingservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// LeaderboardChartPNG renders a scope's standings as a horizontal snapshot of
// the top ratings, one bar per player.
func (s *RatingService) LeaderboardChartPNG(ctx context.Context, query LeaderboardQuery) ([]byte, error) {
	return withTelemetry(s, ctx, "LeaderboardChartPNG", func(ctx context.Context) ([]byte, error) {
		entries, err := s.Leaderboard(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return renderNoDataPlaceholder()
		}
		if len(entries) > maxChartBars {
			entries = entries[:maxChartBars]
		}

		bars := make([]chart.Value, len(entries))
		for i, e := range entries {
			bars[i] = chart.Value{
				Label: fmt.Sprintf("#%d %s", e.Rank, e.UserID),
				Value: float64(e.Rating),
			}
		}

		graph := chart.BarChart{
			Title:      fmt.Sprintf("%s leaderboard", query.Scope),
			Width:      900,
			Height:     450,
			BarWidth:   24,
			BarSpacing: 20,
			Background: chart.Style{
				Padding: chart.Box{Top: 40},
			},
			Bars: bars,
		}

		buffer := bytes.NewBuffer([]byte{})
		if err := graph.Render(chart.PNG, buffer); err != nil {
			return nil, fmt.Errorf("render leaderboard chart: %w", err)
		}
		return buffer.Bytes(), nil
	})
}

// maxChartBars keeps the bar field inside the 900px canvas.
const maxChartBars = 20

func renderNoDataPlaceholder() ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No rated matches yet"
	)

	// chart.Chart refuses to render without a visible series; anchor with a
	// transparent one and draw the message as an element.
	graph := chart.Chart{
		Width:  width,
		Height: height,
		XAxis:  chart.XAxis{Style: chart.Style{Hidden: true}},
		YAxis:  chart.YAxis{Style: chart.Style{Hidden: true}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style: chart.Style{
					StrokeColor: drawing.ColorTransparent,
					DotColor:    drawing.ColorTransparent,
				},
			},
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				r.SetFontColor(drawing.ColorBlack)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
