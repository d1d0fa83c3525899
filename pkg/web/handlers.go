package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/openvisage/visage/internal/log"
	"github.com/openvisage/visage/pkg/analysis"
	"github.com/openvisage/visage/pkg/face"
	"github.com/openvisage/visage/pkg/model"
)

// ExtractRequest is the body of POST /extract.
type ExtractRequest struct {
	// Image is the base64-encoded image (JPEG or PNG).
	Image string `json:"image"`

	// Threshold overrides the detection cutoff when > 0.
	Threshold float32 `json:"threshold,omitempty"`

	// LimitFaces caps how many faces are returned; 0 means no limit.
	LimitFaces int `json:"limit_faces,omitempty"`

	// ExtractEmbedding requests identity embeddings.
	ExtractEmbedding bool `json:"extract_embedding,omitempty"`

	// ExtractGA requests gender/age estimates.
	ExtractGA bool `json:"extract_ga,omitempty"`
}

// ExtractResponse is the body of a successful extraction.
type ExtractResponse struct {
	RequestID string     `json:"request_id"`
	TookMs    int64      `json:"took_ms"`
	Faces     face.Faces `json:"faces"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleInfo(c *fiber.Ctx) error {
	cfg := s.analyzer.Config()
	return c.JSON(fiber.Map{
		"target_size":    []int{cfg.TargetSize.X, cfg.TargetSize.Y},
		"max_batch_size": cfg.MaxBatchSize,
		"threshold":      cfg.Threshold,
		"device":         cfg.Device.String(),
	})
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	var req ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	raw, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image is not valid base64")
	}

	requestID := uuid.NewString()
	start := time.Now()

	faces, err := s.analyze(c.UserContext(), raw, req)
	if err != nil {
		return extractError(requestID, err)
	}

	return c.JSON(ExtractResponse{
		RequestID: requestID,
		TookMs:    time.Since(start).Milliseconds(),
		Faces:     faces,
	})
}

// analyze decodes the image bytes and runs one pipeline pass.
func (s *Server) analyze(ctx context.Context, raw []byte, req ExtractRequest) (face.Faces, error) {
	img, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil || img.Empty() {
		if err == nil {
			img.Close()
		}
		return nil, analysis.ErrInvalidImage
	}
	defer img.Close()

	return s.analyzer.Get(ctx, img, analysis.Options{
		Threshold:         req.Threshold,
		LimitFaces:        req.LimitFaces,
		ExtractEmbedding:  req.ExtractEmbedding,
		ExtractAttributes: req.ExtractGA,
	})
}

func extractError(requestID string, err error) error {
	var backendErr *model.BackendError
	switch {
	case errors.Is(err, analysis.ErrInvalidImage):
		return fiber.NewError(fiber.StatusBadRequest, "image could not be decoded")
	case errors.As(err, &backendErr):
		log.Error("inference backend failure", "request_id", requestID, "error", err)
		return fiber.NewError(fiber.StatusBadGateway, "inference backend failure")
	default:
		log.Error("extraction failed", "request_id", requestID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "extraction failed")
	}
}

// wsResult is one per-frame answer on the streaming socket.
type wsResult struct {
	Seq   int        `json:"seq"`
	Faces face.Faces `json:"faces,omitempty"`
	Error string     `json:"error,omitempty"`
}

// handleFramesWS answers each binary JPEG frame with the faces found
// in it. Text frames carry an ExtractRequest updating the options for
// subsequent frames.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	defer c.Close()

	var opts ExtractRequest
	seq := 0

	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		if msgType == websocket.TextMessage {
			if err := json.Unmarshal(data, &opts); err != nil {
				_ = c.WriteJSON(wsResult{Seq: seq, Error: "invalid options"})
			}
			continue
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		seq++
		faces, err := s.analyze(context.Background(), data, opts)
		if err != nil {
			_ = c.WriteJSON(wsResult{Seq: seq, Error: err.Error()})
			continue
		}

		if err := c.WriteJSON(wsResult{Seq: seq, Faces: faces}); err != nil {
			return
		}
	}
}
