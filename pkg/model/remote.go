package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gocv.io/x/gocv"
)

// RemoteConfig holds the connection settings for a remote inference
// service hosting the embedding and attribute models.
type RemoteConfig struct {
	BaseURL string        // e.g. http://localhost:18081
	Batch   int           // Largest crop batch the service accepts
	Timeout time.Duration // Per-request timeout
}

// DefaultRemoteConfig returns defaults for a local inference service.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		BaseURL: "http://localhost:18081",
		Batch:   32,
		Timeout: 30 * time.Second,
	}
}

// Remote is an embedding and attribute backend speaking JSON over HTTP
// to an accelerator-hosted inference service. Crops travel as base64
// JPEG; vectors and gender/age pairs come back in input order.
type Remote struct {
	config RemoteConfig
	client *http.Client
}

// NewRemote creates a remote backend client.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Batch <= 0 {
		cfg.Batch = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Remote{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type remoteRequest struct {
	Crops []string `json:"crops"`
}

type remoteEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type remoteAttrResponse struct {
	Attributes []struct {
		Gender int     `json:"gender"`
		Age    float32 `json:"age"`
	} `json:"attributes"`
}

// Embed sends the crops to the service's embedding endpoint.
func (r *Remote) Embed(crops []gocv.Mat) ([][]float32, error) {
	var resp remoteEmbedResponse
	if err := r.post("/embed", crops, &resp); err != nil {
		return nil, WrapError("embed", err)
	}
	if len(resp.Embeddings) != len(crops) {
		return nil, WrapError("embed", fmt.Errorf("got %d embeddings for %d crops",
			len(resp.Embeddings), len(crops)))
	}
	return resp.Embeddings, nil
}

// Infer sends the crops to the service's attribute endpoint.
func (r *Remote) Infer(crops []gocv.Mat) ([]Attributes, error) {
	var resp remoteAttrResponse
	if err := r.post("/attributes", crops, &resp); err != nil {
		return nil, WrapError("attributes", err)
	}
	if len(resp.Attributes) != len(crops) {
		return nil, WrapError("attributes", fmt.Errorf("got %d attribute pairs for %d crops",
			len(resp.Attributes), len(crops)))
	}
	out := make([]Attributes, len(resp.Attributes))
	for i, a := range resp.Attributes {
		out[i] = Attributes{Gender: a.Gender, Age: a.Age}
	}
	return out, nil
}

// MaxBatchSize returns the configured batch limit.
func (r *Remote) MaxBatchSize() int {
	return r.config.Batch
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (r *Remote) Close() error { return nil }

func (r *Remote) post(path string, crops []gocv.Mat, out interface{}) error {
	if len(crops) == 0 {
		return ErrNoCrops
	}
	if len(crops) > r.config.Batch {
		return ErrBatchTooLarge
	}

	req := remoteRequest{Crops: make([]string, len(crops))}
	for i, crop := range crops {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, crop)
		if err != nil {
			return fmt.Errorf("encode crop %d: %w", i, err)
		}
		req.Crops[i] = base64.StdEncoding.EncodeToString(buf.GetBytes())
		buf.Close()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service error %d: %s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}

var (
	_ Embedder       = (*Remote)(nil)
	_ AttributeModel = (*Remote)(nil)
)
