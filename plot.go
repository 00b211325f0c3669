package gofusion

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	estimateColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	truthColor    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	lidarColor    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	radarColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// PlotTrack saves a plot of the estimated positions, the measured positions
// and, when not empty, the ground truth. The image format follows the
// extension of path.
func PlotTrack(path string, estimates []*UKFEstimate, truths []GroundTruth) error {
	if len(estimates) == 0 {
		return errors.New("no estimates to plot")
	}
	p := plot.New()
	p.Title.Text = "UKF track"
	p.X.Label.Text = "px (m)"
	p.Y.Label.Text = "py (m)"

	estPts := make(plotter.XYs, 0, len(estimates))
	var lidarPts, radarPts plotter.XYs
	for _, est := range estimates {
		estPts = append(estPts, plotter.XY{X: est.State().AtVec(idxPX), Y: est.State().AtVec(idxPY)})
		z := est.Measurement()
		if z == nil {
			continue
		}
		switch est.Sensor() {
		case Laser:
			lidarPts = append(lidarPts, plotter.XY{X: z.AtVec(0), Y: z.AtVec(1)})
		case Radar:
			rho, phi := z.AtVec(idxRho), z.AtVec(idxPhi)
			radarPts = append(radarPts, plotter.XY{X: rho * math.Cos(phi), Y: rho * math.Sin(phi)})
		}
	}

	if len(truths) > 0 {
		truthPts := make(plotter.XYs, len(truths))
		for i, gt := range truths {
			truthPts[i] = plotter.XY{X: gt.PX, Y: gt.PY}
		}
		truthLine, err := plotter.NewLine(truthPts)
		if err != nil {
			return err
		}
		truthLine.Color = truthColor
		truthLine.Width = vg.Points(1)
		p.Add(truthLine)
		p.Legend.Add("ground truth", truthLine)
	}

	for _, meas := range []struct {
		label string
		pts   plotter.XYs
		color color.Color
	}{
		{"lidar", lidarPts, lidarColor},
		{"radar", radarPts, radarColor},
	} {
		if len(meas.pts) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(meas.pts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = meas.color
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(scatter)
		p.Legend.Add(meas.label, scatter)
	}

	estLine, err := plotter.NewLine(estPts)
	if err != nil {
		return err
	}
	estLine.Color = estimateColor
	estLine.Width = vg.Points(1.5)
	p.Add(estLine)
	p.Legend.Add("UKF estimate", estLine)

	p.Legend.Top = true
	p.Legend.Left = true
	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}

// PlotNIS saves the NIS of every update of one sensor along with its 95%
// chi-square threshold.
func PlotNIS(path string, estimates []*UKFEstimate, sensor SensorType) error {
	threshold, err := NISThreshold(sensor, 0.95)
	if err != nil {
		return err
	}
	var pts plotter.XYs
	for k, est := range estimates {
		if est.Updated() && est.Sensor() == sensor {
			pts = append(pts, plotter.XY{X: float64(k), Y: est.NIS()})
		}
	}
	if len(pts) == 0 {
		return fmt.Errorf("no %s updates to plot", sensor)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s NIS", sensor)
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "NIS"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = lidarColor
	if sensor == Radar {
		line.Color = radarColor
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(sensor.String(), line)

	bound, err := plotter.NewLine(plotter.XYs{{X: pts[0].X, Y: threshold}, {X: pts[len(pts)-1].X, Y: threshold}})
	if err != nil {
		return err
	}
	bound.Color = color.Black
	bound.Width = vg.Points(1)
	bound.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(bound)
	p.Legend.Add(fmt.Sprintf("χ² 95%% (%.3f)", threshold), bound)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
