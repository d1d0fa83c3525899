package model

import (
	"image"
	"sync"

	"github.com/openvisage/visage/pkg/face"
	"gocv.io/x/gocv"
)

// AlignedSize is the side length of a normalized face crop in pixels.
const AlignedSize = 112

// arcTemplate holds the canonical five-point landmark positions inside
// a 112x112 crop: eyes, nose tip, mouth corners.
var arcTemplate = []gocv.Point2f{
	{X: 38.2946, Y: 51.6963},
	{X: 73.5318, Y: 51.5014},
	{X: 56.0252, Y: 71.7366},
	{X: 41.5493, Y: 92.3655},
	{X: 70.7299, Y: 92.2041},
}

// NormAligner aligns faces by estimating a similarity transform from
// the detected five-point landmarks onto the canonical template and
// warping the original image into a 112x112 crop.
type NormAligner struct {
	mu sync.Mutex // protects the warp, Mats are not thread-safe
}

// NewNormAligner creates a landmark-based face aligner.
func NewNormAligner() *NormAligner {
	return &NormAligner{}
}

// AlignCrop warps the face described by lm out of orig into a
// normalized crop. The caller owns the returned Mat.
func (a *NormAligner) AlignCrop(orig gocv.Mat, lm face.Landmarks) (gocv.Mat, error) {
	if len(lm) != face.NumAlignmentLandmarks {
		return gocv.Mat{}, WrapError("align", ErrBadLandmarks)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	srcPts := make([]gocv.Point2f, len(lm))
	for i, p := range lm {
		srcPts[i] = gocv.Point2f{X: p.X, Y: p.Y}
	}

	src := gocv.NewPoint2fVectorFromPoints(srcPts)
	defer src.Close()
	dst := gocv.NewPoint2fVectorFromPoints(arcTemplate)
	defer dst.Close()

	m := gocv.EstimateAffinePartial2D(src, dst)
	defer m.Close()

	if m.Empty() {
		return gocv.Mat{}, WrapError("align", ErrBadLandmarks)
	}

	crop := gocv.NewMat()
	gocv.WarpAffine(orig, &crop, m, image.Pt(AlignedSize, AlignedSize))
	return crop, nil
}

var _ Aligner = (*NormAligner)(nil)
