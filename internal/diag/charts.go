package diag

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/soar-cam/trackerd/internal/httputil"
)

const recentSampleLimit = 2000

// handleCharts renders line charts of recent pan/tilt/zoom/speed history
// and a bar chart of recorder state transitions, grounded on the
// teacher's lidar monitor echarts handlers (charts.NewLine/NewBar +
// components.Page, rendered directly to the response as HTML).
func (s *Surface) handleCharts(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "event log not configured")
		return
	}

	samples, err := s.db.RecentTrackingSamples(recentSampleLimit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load tracking samples: %v", err))
		return
	}
	transitions, err := s.db.RecentRecorderTransitions(200)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load recorder transitions: %v", err))
		return
	}

	xAxis := make([]string, 0, len(samples))
	panSeries := make([]opts.LineData, 0, len(samples))
	tiltSeries := make([]opts.LineData, 0, len(samples))
	zoomSeries := make([]opts.LineData, 0, len(samples))
	speedSeries := make([]opts.LineData, 0, len(samples))
	for _, sample := range samples {
		xAxis = append(xAxis, time.Unix(sample.OccurredAt, 0).Format("15:04:05"))
		panSeries = append(panSeries, opts.LineData{Value: sample.PanDeg})
		tiltSeries = append(tiltSeries, opts.LineData{Value: sample.TiltDeg})
		zoomSeries = append(zoomSeries, opts.LineData{Value: sample.Zoom})
		speedSeries = append(speedSeries, opts.LineData{Value: sample.SpeedMPS})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tracking history", Subtitle: fmt.Sprintf("%d samples", len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
	)
	line.SetXAxis(xAxis).
		AddSeries("pan (deg)", panSeries).
		AddSeries("tilt (deg)", tiltSeries).
		AddSeries("zoom", zoomSeries).
		AddSeries("speed (m/s)", speedSeries).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	barX := make([]string, 0, len(transitions))
	barY := make([]opts.BarData, 0, len(transitions))
	for i, t := range transitions {
		barX = append(barX, fmt.Sprintf("#%d %s->%s", i, t.FromState, t.ToState))
		barY = append(barY, opts.BarData{Value: t.SpeedMPS})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Auto-recorder transitions", Subtitle: fmt.Sprintf("%d transitions", len(transitions))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(barX).AddSeries("speed at transition (m/s)", barY)

	page := components.NewPage()
	page.AddCharts(line, bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render charts: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
