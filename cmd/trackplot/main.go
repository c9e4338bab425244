// Command trackplot renders a pan/tilt/zoom/speed history chart from the
// controller's event log, for offline review of a tracking run without
// needing the diagnostic HTTP surface up. Grounded on the teacher's
// internal/lidar/monitor.GridPlotter (gonum/plot line-per-series pattern,
// one PNG per run).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/soar-cam/trackerd/internal/eventlog"
)

func main() {
	dbPath := flag.String("db", "eventlog.db", "path to the event log sqlite database")
	sessionID := flag.Int64("session", 0, "session ID to plot (0 plots the most recent samples across all sessions)")
	limit := flag.Int("limit", 2000, "sample count to plot when -session is unset")
	out := flag.String("out", "trackplot.png", "output PNG path")
	flag.Parse()

	if err := run(*dbPath, *sessionID, *limit, *out); err != nil {
		log.Fatalf("trackplot: %v", err)
	}
}

func run(dbPath string, sessionID int64, limit int, out string) error {
	db, err := eventlog.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer db.Close()

	var samples []eventlog.TrackingSample
	if sessionID != 0 {
		samples, err = db.SessionTrackingSamples(sessionID)
	} else {
		samples, err = db.RecentTrackingSamples(limit)
	}
	if err != nil {
		return fmt.Errorf("query tracking samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("no tracking samples found")
	}

	return renderPlot(samples, out)
}

// renderPlot draws four time series (pan, tilt, zoom, speed) as lines
// overlaid on one set of axes, against the samples' occurred_at
// timestamps.
func renderPlot(samples []eventlog.TrackingSample, out string) error {
	t0 := samples[0].OccurredAt

	panPts := make(plotter.XYs, len(samples))
	tiltPts := make(plotter.XYs, len(samples))
	zoomPts := make(plotter.XYs, len(samples))
	speedPts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		x := float64(s.OccurredAt - t0)
		panPts[i] = plotter.XY{X: x, Y: s.PanDeg}
		tiltPts[i] = plotter.XY{X: x, Y: s.TiltDeg}
		zoomPts[i] = plotter.XY{X: x, Y: s.Zoom}
		speedPts[i] = plotter.XY{X: x, Y: s.SpeedMPS}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("trackerd session history (%d samples)", len(samples))
	p.X.Label.Text = "seconds since first sample"
	p.Y.Label.Text = "pan/tilt (deg), zoom, speed (m/s)"

	if err := addLine(p, "pan (deg)", panPts); err != nil {
		return err
	}
	if err := addLine(p, "tilt (deg)", tiltPts); err != nil {
		return err
	}
	if err := addLine(p, "zoom", zoomPts); err != nil {
		return err
	}
	if err := addLine(p, "speed (m/s)", speedPts); err != nil {
		return err
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(14*vg.Inch, 6*vg.Inch, out); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", out)
	return nil
}

func addLine(p *plot.Plot, label string, pts plotter.XYs) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build line %q: %w", label, err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}
