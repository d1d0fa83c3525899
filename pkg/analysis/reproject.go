package analysis

import "github.com/openvisage/visage/pkg/face"

// Reproject maps points from resized/padded coordinate space back to
// original-image space by dividing every coordinate by scale. It is
// pure: the input is never modified. For scale == 1 the input value is
// returned as-is, skipping the divide entirely so the no-op path
// introduces no rounding drift.
func Reproject(points face.Landmarks, scale float32) face.Landmarks {
	if scale == 1.0 {
		return points
	}

	out := make(face.Landmarks, len(points))
	for i, p := range points {
		out[i] = face.Point{X: p.X / scale, Y: p.Y / scale}
	}
	return out
}

// ReprojectBox maps a bounding box back to original-image space.
func ReprojectBox(b face.BoundingBox, scale float32) face.BoundingBox {
	if scale == 1.0 {
		return b
	}
	return face.BoundingBox{
		X1: b.X1 / scale,
		Y1: b.Y1 / scale,
		X2: b.X2 / scale,
		Y2: b.Y2 / scale,
	}
}
