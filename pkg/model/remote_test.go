package model

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gocv.io/x/gocv"
)

func testCrops(t *testing.T, n int) []gocv.Mat {
	t.Helper()
	crops := make([]gocv.Mat, n)
	for i := range crops {
		crops[i] = gocv.NewMatWithSize(AlignedSize, AlignedSize, gocv.MatTypeCV8UC3)
	}
	t.Cleanup(func() {
		for i := range crops {
			crops[i].Close()
		}
	})
	return crops
}

func TestRemote_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("path: got %s, want /embed", r.URL.Path)
		}

		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := remoteEmbedResponse{Embeddings: make([][]float32, len(req.Crops))}
		for i := range resp.Embeddings {
			resp.Embeddings[i] = []float32{float32(i), 1}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	remote := NewRemote(RemoteConfig{BaseURL: server.URL, Batch: 4})

	got, err := remote.Embed(testCrops(t, 3))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Embed: got %d vectors, want 3", len(got))
	}
	for i, v := range got {
		if v[0] != float32(i) {
			t.Errorf("vector %d out of order: got %v", i, v)
		}
	}
}

func TestRemote_Infer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/attributes" {
			t.Errorf("path: got %s, want /attributes", r.URL.Path)
		}

		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		var resp remoteAttrResponse
		for i := range req.Crops {
			resp.Attributes = append(resp.Attributes, struct {
				Gender int     `json:"gender"`
				Age    float32 `json:"age"`
			}{Gender: i % 2, Age: 30 + float32(i)})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	remote := NewRemote(RemoteConfig{BaseURL: server.URL, Batch: 4})

	got, err := remote.Infer(testCrops(t, 2))
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Infer: got %d pairs, want 2", len(got))
	}
	if got[1].Gender != 1 || got[1].Age != 31 {
		t.Errorf("pair 1: got %+v", got[1])
	}
}

func TestRemote_BatchLimit(t *testing.T) {
	remote := NewRemote(RemoteConfig{BaseURL: "http://localhost:1", Batch: 1})

	_, err := remote.Embed(testCrops(t, 2))
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("Embed: want ErrBatchTooLarge, got %v", err)
	}
}

func TestRemote_NoCrops(t *testing.T) {
	remote := NewRemote(DefaultRemoteConfig())

	_, err := remote.Embed(nil)
	if !errors.Is(err, ErrNoCrops) {
		t.Fatalf("Embed: want ErrNoCrops, got %v", err)
	}
}

func TestRemote_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	remote := NewRemote(RemoteConfig{BaseURL: server.URL, Batch: 4})

	_, err := remote.Embed(testCrops(t, 1))
	if err == nil {
		t.Fatal("Embed: want error on 503 response")
	}

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("Embed: want BackendError, got %T", err)
	}
}

func TestRemote_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remoteEmbedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer server.Close()

	remote := NewRemote(RemoteConfig{BaseURL: server.URL, Batch: 4})

	_, err := remote.Embed(testCrops(t, 2))
	if err == nil {
		t.Fatal("Embed: want error when vector count mismatches crop count")
	}
}
