package app

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/geom"
)

var (
	netColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	boxColor   = color.RGBA{G: 255, A: 255}
	pathColor  = color.RGBA{R: 255, G: 200, A: 255}
	sideAColor = color.RGBA{R: 60, G: 160, B: 255, A: 255}
	sideBColor = color.RGBA{R: 255, G: 80, B: 60, A: 255}
)

// RenderOverlay draws the net outline, the latest observation and the
// predicted path over frame and encodes the result as JPEG.
func RenderOverlay(frame image.Image, st Status) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert overlay frame: %w", err)
	}
	defer mat.Close()

	b := frame.Bounds()
	if st.Camera != nil && st.Camera.Width > 0 && st.Camera.Height > 0 {
		sx := float64(b.Dx()) / float64(st.Camera.Width)
		sy := float64(b.Dy()) / float64(st.Camera.Height)
		cam := st.Camera.Scaled(sx, sy)

		if st.Net != nil {
			drawNet(&mat, st.Net, cam.Project)
		}
		if st.Observation != nil {
			box := st.Observation.Box.Scale(sx, sy)
			gocv.Rectangle(&mat, image.Rect(int(box.MinX), int(box.MinY), int(box.MaxX), int(box.MaxY)), boxColor, 2)
		}
		for _, p := range st.Path {
			if pt, ok := cam.Project(p); ok {
				gocv.Circle(&mat, image.Pt(int(pt.X), int(pt.Y)), 3, pathColor, -1)
			}
		}
	}

	if ev := st.LastEvent; ev != nil {
		c := sideAColor
		if ev.Side == collision.SideB {
			c = sideBColor
		}
		label := fmt.Sprintf("HIT %s %.1f m/s", ev.Side, ev.ImpactSpeed)
		gocv.PutText(&mat, label, image.Pt(10, 30), gocv.FontHersheySimplex, 0.8, c, 2)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

func drawNet(mat *gocv.Mat, region *geom.PlaneRegion, project func(r3.Vec) (geom.Point2, bool)) {
	f, err := region.Frame()
	if err != nil {
		return
	}
	r := r3.Scale(f.HalfWidth, f.Right)
	u := r3.Scale(f.HalfHeight, f.Up)
	corners := []r3.Vec{
		r3.Sub(r3.Sub(f.Origin, r), u),
		r3.Sub(r3.Add(f.Origin, r), u),
		r3.Add(r3.Add(f.Origin, r), u),
		r3.Add(r3.Sub(f.Origin, r), u),
	}

	pts := make([]image.Point, 0, len(corners))
	for _, c := range corners {
		p, ok := project(c)
		if !ok {
			return
		}
		pts = append(pts, image.Pt(int(p.X), int(p.Y)))
	}
	for i := range pts {
		gocv.Line(mat, pts[i], pts[(i+1)%len(pts)], netColor, 2)
	}
}
