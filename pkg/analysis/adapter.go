package analysis

import (
	"github.com/openvisage/visage/pkg/model"
	"gocv.io/x/gocv"
)

// detectionAdapter wraps a detector backend and caches its capability
// flags. The mask-probability capability is queried exactly once, at
// construction, and stays fixed for the adapter's lifetime.
type detectionAdapter struct {
	detector model.Detector
	masks    bool
}

func newDetectionAdapter(d model.Detector) *detectionAdapter {
	return &detectionAdapter{
		detector: d,
		masks:    d.Capabilities().MaskProbability,
	}
}

// detect runs the backend and normalizes its output. Threshold
// filtering is the backend's job; the adapter only enforces shape
// invariants. No faces above threshold yields an empty batch, never an
// error: callers treat "no faces" uniformly.
func (a *detectionAdapter) detect(img gocv.Mat, threshold float32) (model.Detections, error) {
	dets, err := a.detector.Detect(img, threshold)
	if err != nil {
		return model.Detections{}, model.WrapError("detect", err)
	}

	// Mask probabilities only pass through when the capability was
	// declared; anything else the backend emits is dropped.
	if !a.masks {
		dets.MaskProbs = nil
	}

	return dets, nil
}
