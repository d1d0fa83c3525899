// Package model defines the inference backend contracts the analysis
// pipeline consumes: face detection, identity embedding, demographic
// attributes, and landmark-based alignment. Implementations are opaque
// synchronous black boxes; the pipeline never reaches into them.
package model

import (
	"github.com/openvisage/visage/pkg/face"
	"gocv.io/x/gocv"
)

// Capabilities describes optional features a detector supports.
// Queried once at adapter construction, never per call.
type Capabilities struct {
	// MaskProbability is true when the detector emits a mask-wearing
	// probability per detection.
	MaskProbability bool
}

// Detections is the raw output of one detector invocation: parallel
// slices with one entry per detected face. MaskProbs is nil (not
// empty) when the detector lacks mask classification.
type Detections struct {
	Boxes     []face.BoundingBox
	Scores    []float32
	Landmarks []face.Landmarks
	MaskProbs []float32
}

// Len returns the number of detections.
func (d Detections) Len() int {
	return len(d.Boxes)
}

// Detector locates faces in an image. Detections scoring below
// threshold are filtered by the model itself.
type Detector interface {
	Detect(img gocv.Mat, threshold float32) (Detections, error)

	// Capabilities reports the detector's optional features.
	Capabilities() Capabilities

	// Close releases backend resources.
	Close() error
}

// Embedder computes one fixed-length identity vector per aligned crop,
// in input order.
type Embedder interface {
	Embed(crops []gocv.Mat) ([][]float32, error)

	// MaxBatchSize is the largest crop batch one Embed call accepts.
	MaxBatchSize() int

	// Close releases backend resources.
	Close() error
}

// Attributes are the demographic estimates for one face.
type Attributes struct {
	Gender int
	Age    float32
}

// AttributeModel infers gender and age per aligned crop, in input
// order.
type AttributeModel interface {
	Infer(crops []gocv.Mat) ([]Attributes, error)

	// Close releases backend resources.
	Close() error
}

// Aligner produces a normalized face crop from the original image and
// the face's landmarks. Deterministic given identical inputs.
type Aligner interface {
	AlignCrop(orig gocv.Mat, lm face.Landmarks) (gocv.Mat, error)
}
