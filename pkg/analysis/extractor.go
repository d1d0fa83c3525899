package analysis

import (
	"fmt"

	"github.com/openvisage/visage/pkg/face"
	"github.com/openvisage/visage/pkg/model"
	"gocv.io/x/gocv"
)

// extractor runs the embedding and attribute backends over chunks of
// face candidates and merges the results back positionally. A chunk
// must not be reordered between dispatch and merge.
type extractor struct {
	embedder   model.Embedder
	attributes model.AttributeModel
}

// extract enriches one chunk in place. Each backend sees the chunk's
// crops exactly once, in candidate order.
func (e *extractor) extract(chunk []face.Face, wantEmbedding, wantAttributes bool) error {
	if len(chunk) == 0 {
		return nil
	}

	crops := make([]gocv.Mat, len(chunk))
	for i := range chunk {
		crops[i] = *chunk[i].Data
	}

	var embeddings [][]float32
	if wantEmbedding {
		var err error
		embeddings, err = e.embedder.Embed(crops)
		if err != nil {
			return model.WrapError("embed", err)
		}
		if len(embeddings) != len(crops) {
			return model.WrapError("embed", errLengthMismatch("embeddings", len(embeddings), len(crops)))
		}
	}

	var attrs []model.Attributes
	if wantAttributes {
		var err error
		attrs, err = e.attributes.Infer(crops)
		if err != nil {
			return model.WrapError("attributes", err)
		}
		if len(attrs) != len(crops) {
			return model.WrapError("attributes", errLengthMismatch("attributes", len(attrs), len(crops)))
		}
	}

	for i := range chunk {
		if wantEmbedding {
			emb := embeddings[i]
			norm, normed := face.Normalize(emb)
			chunk[i].Embedding = emb
			chunk[i].EmbeddingNorm = &norm
			chunk[i].NormedEmbedding = normed
		}
		if wantAttributes {
			gender := attrs[i].Gender
			age := attrs[i].Age
			chunk[i].Gender = &gender
			chunk[i].Age = &age
		}
	}

	return nil
}

func errLengthMismatch(what string, got, want int) error {
	return fmt.Errorf("analysis: got %d %s for %d crops", got, what, want)
}
