package analysis

import (
	"image"
	"sort"

	"github.com/openvisage/visage/pkg/face"
	"github.com/openvisage/visage/pkg/model"
)

// SelectLargest truncates a detection batch to at most maxNum entries
// when it exceeds the limit, keeping the largest faces by box area.
// Ties break by original detection order, and the retained entries
// stay in their original order rather than being re-sorted by area.
// With maxNum <= 0 or a batch already within the limit, the batch is
// returned unchanged.
func SelectLargest(dets model.Detections, shape image.Point, maxNum int) model.Detections {
	n := dets.Len()
	if maxNum <= 0 || n <= maxNum {
		return dets
	}

	areas := make([]float32, n)
	offsets := make([]float32, n)
	cx := float32(shape.X / 2)
	cy := float32(shape.Y / 2)
	for i, b := range dets.Boxes {
		areas[i] = b.Area()
		c := b.Center()
		dx := c.X - cx
		dy := c.Y - cy
		// Squared center offset, a candidate ranking input.
		// TODO: fold the offset into the ranking once the weighting
		// against area is decided; selection is area-only for now.
		offsets[i] = dx*dx + dy*dy
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return areas[order[a]] > areas[order[b]]
	})

	keep := order[:maxNum]
	sort.Ints(keep)

	out := model.Detections{
		Boxes:     make([]face.BoundingBox, 0, maxNum),
		Scores:    make([]float32, 0, maxNum),
		Landmarks: make([]face.Landmarks, 0, maxNum),
	}
	if dets.MaskProbs != nil {
		out.MaskProbs = make([]float32, 0, maxNum)
	}

	for _, i := range keep {
		out.Boxes = append(out.Boxes, dets.Boxes[i])
		out.Scores = append(out.Scores, dets.Scores[i])
		out.Landmarks = append(out.Landmarks, dets.Landmarks[i])
		if dets.MaskProbs != nil {
			out.MaskProbs = append(out.MaskProbs, dets.MaskProbs[i])
		}
	}

	return out
}
