// Package analysis orchestrates the face pipeline: image preparation,
// detection, face selection, coordinate reprojection, alignment,
// batched embedding/attribute extraction, and record assembly.
package analysis

import (
	"context"
	"fmt"
	"runtime"

	"github.com/openvisage/visage/internal/log"
	"github.com/openvisage/visage/pkg/face"
	"github.com/openvisage/visage/pkg/imaging"
	"github.com/openvisage/visage/pkg/model"
	"gocv.io/x/gocv"
)

// Options control one pipeline run.
type Options struct {
	// Threshold overrides the configured detection cutoff when > 0.
	Threshold float32

	// LimitFaces caps how many faces are processed per image; 0 means
	// no limit. When exceeded, the largest faces by box area win.
	LimitFaces int

	// ExtractEmbedding requests identity embeddings.
	ExtractEmbedding bool

	// ExtractAttributes requests gender/age estimates.
	ExtractAttributes bool

	// KeepFaceData keeps the aligned crop on each record. Off by
	// default to bound memory.
	KeepFaceData bool
}

// Analyzer runs the face analysis pipeline. One Get call is one
// logical run; the analyzer itself holds no per-run state and may be
// shared across goroutines as long as its backends tolerate concurrent
// calls.
type Analyzer struct {
	config    Config
	adapter   *detectionAdapter
	extractor *extractor
	aligner   model.Aligner
}

// NewAnalyzer wires the backends into a pipeline. The embedding batch
// size is clamped to the backend's limit here, once, with a warning.
func NewAnalyzer(cfg Config, det model.Detector, emb model.Embedder, attr model.AttributeModel, aligner model.Aligner) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if det == nil || emb == nil || attr == nil || aligner == nil {
		return nil, ErrMissingBackend
	}

	if maxBatch := emb.MaxBatchSize(); cfg.MaxBatchSize > maxBatch {
		log.Warn("embedding backend cannot batch, clamping",
			"requested", cfg.MaxBatchSize, "supported", maxBatch)
		cfg.MaxBatchSize = maxBatch
	}

	return &Analyzer{
		config:    cfg,
		adapter:   newDetectionAdapter(det),
		extractor: &extractor{embedder: emb, attributes: attr},
		aligner:   aligner,
	}, nil
}

// Config returns the effective configuration after clamping.
func (a *Analyzer) Config() Config {
	return a.config
}

// Get analyzes one image and returns its face records in detection
// order. Zero faces is a valid empty result, not an error. The context
// is honored at the pipeline's cooperative yield point after
// detection; a canceled run leaves no state behind.
func (a *Analyzer) Get(ctx context.Context, img gocv.Mat, opts Options) (face.Faces, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = a.config.Threshold
	}

	frame, err := imaging.Prepare(img, a.config.TargetSize, imaging.ModePad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer frame.Close()

	dets, err := a.adapter.detect(frame.Transformed, threshold)
	if err != nil {
		return nil, err
	}

	// Cooperative scheduling point: detection is the expensive stage,
	// give other runs a chance before the crop/extract work starts.
	// No work is pending here, so cancellation is side-effect free.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		runtime.Gosched()
	}

	if dets.Len() == 0 {
		return face.Faces{}, nil
	}

	if opts.LimitFaces > 0 {
		dets = SelectLargest(dets, frame.Shape(), opts.LimitFaces)
	}

	candidates, err := a.cropCandidates(frame, dets)
	if err != nil {
		face.Faces(candidates).Close()
		return nil, err
	}

	chunks, err := Chunks(candidates, a.config.MaxBatchSize)
	if err != nil {
		face.Faces(candidates).Close()
		return nil, err
	}

	for _, chunk := range chunks {
		if err := a.extractor.extract(chunk, opts.ExtractEmbedding, opts.ExtractAttributes); err != nil {
			face.Faces(candidates).Close()
			return nil, err
		}
	}

	records := make(face.Faces, len(candidates))
	for i, c := range candidates {
		if opts.KeepFaceData {
			records[i] = c
		} else {
			records[i] = c.WithoutData()
		}
	}

	return records, nil
}

// cropCandidates reprojects each detection to original-image space and
// aligns its crop from the original image rather than the resized one,
// for best crop fidelity.
func (a *Analyzer) cropCandidates(frame *imaging.Frame, dets model.Detections) ([]face.Face, error) {
	candidates := make([]face.Face, 0, dets.Len())

	for i := 0; i < dets.Len(); i++ {
		bbox := ReprojectBox(dets.Boxes[i], frame.Scale)
		lm := Reproject(dets.Landmarks[i], frame.Scale)

		crop, err := a.aligner.AlignCrop(frame.Orig, lm)
		if err != nil {
			return candidates, model.WrapError("align", err)
		}

		cand := face.Face{
			BBox:      bbox,
			Landmarks: lm,
			Score:     dets.Scores[i],
			Scale:     frame.Scale,
			DetIndex:  i,
			Data:      &crop,
		}
		if dets.MaskProbs != nil {
			p := dets.MaskProbs[i]
			cand.MaskProb = &p
		}

		candidates = append(candidates, cand)
	}

	return candidates, nil
}
