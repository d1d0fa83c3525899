package face

// Point represents a 2D point in pixel coordinates.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// BoundingBox represents an axis-aligned face bounding box
// with top-left (X1, Y1) and bottom-right (X2, Y2) corners.
type BoundingBox struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// Width returns the box width.
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the box height.
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the box area.
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Center returns the box center point.
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Landmarks is an ordered set of facial keypoints.
// Detectors in this module emit five points: left eye, right eye,
// nose tip, left mouth corner, right mouth corner.
type Landmarks []Point

// NumAlignmentLandmarks is the landmark count alignment expects.
const NumAlignmentLandmarks = 5
