// Package face defines the face record produced by the analysis
// pipeline and the geometry types shared by detectors and aligners.
package face

import "gocv.io/x/gocv"

// Face is one analyzed face. It is assembled in stages: detection fills
// the geometry and score, extraction fills embeddings and attributes.
// Optional fields stay nil until the stage that produces them ran.
// A Face is treated as an immutable value once yielded to a caller.
type Face struct {
	// BBox is the bounding box in original-image pixel coordinates.
	BBox BoundingBox `json:"bbox"`

	// Landmarks are facial keypoints in original-image pixel coordinates.
	Landmarks Landmarks `json:"landmark"`

	// Score is the detector confidence in [0, 1].
	Score float32 `json:"det_score"`

	// MaskProb is the mask-wearing probability. Only set when the
	// detector supports mask classification.
	MaskProb *float32 `json:"mask_prob,omitempty"`

	// Scale is the preprocessing scale factor of the source frame,
	// kept for traceability. Always > 0.
	Scale float32 `json:"scale"`

	// DetIndex is the detection's rank within its source image.
	DetIndex int `json:"num_det"`

	// Data is the aligned face crop. Dropped at assembly unless the
	// caller asked to keep it. Never serialized.
	Data *gocv.Mat `json:"-"`

	// Embedding is the raw identity vector, set when embedding
	// extraction was requested.
	Embedding []float32 `json:"embedding,omitempty"`

	// EmbeddingNorm is the L2 norm of Embedding.
	EmbeddingNorm *float32 `json:"embedding_norm,omitempty"`

	// NormedEmbedding is Embedding divided by EmbeddingNorm.
	NormedEmbedding []float32 `json:"normed_embedding,omitempty"`

	// Gender is the predicted gender class id.
	Gender *int `json:"gender,omitempty"`

	// Age is the predicted age.
	Age *float32 `json:"age,omitempty"`
}

// WithoutData returns a copy of the face with the aligned crop
// released and cleared. The original value is not modified.
func (f Face) WithoutData() Face {
	if f.Data != nil {
		f.Data.Close()
		f.Data = nil
	}
	return f
}

// HasEmbedding reports whether an identity embedding is present.
func (f Face) HasEmbedding() bool {
	return len(f.Embedding) > 0
}

// Faces is a list of analyzed faces from one image.
type Faces []Face

// Count returns the number of faces.
func (faces Faces) Count() int {
	return len(faces)
}

// Close releases any aligned crops still held by the faces.
func (faces Faces) Close() {
	for i := range faces {
		if faces[i].Data != nil {
			faces[i].Data.Close()
			faces[i].Data = nil
		}
	}
}
