package main

import (
	"encoding/json"
	"net/http"

	"github.com/civicai/civicai/internal/classify"
	"github.com/civicai/civicai/internal/issues"
	"github.com/civicai/civicai/internal/photostore"
	"github.com/civicai/civicai/internal/realtime"
)

// server holds the request handlers' shared dependencies. feed and photos
// may be nil when the backing service is not configured.
type server struct {
	classifier *classify.Classifier
	store      *issues.Store
	feed       *realtime.Feed
	photos     *photostore.Store
}

// maxClassifyBody bounds classify request bodies: a base64 JPEG at the
// model's inline limit plus JSON overhead.
const maxClassifyBody = 8 << 20

type classifyImageRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

type classifyTextRequest struct {
	Text string `json:"text"`
}

// POST /api/classify/image
func (s *server) handleClassifyImage(w http.ResponseWriter, r *http.Request) {
	var req classifyImageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBody)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageBase64 == "" {
		httpError(w, http.StatusBadRequest, "imageBase64 is required")
		return
	}

	result := s.classifier.ClassifyImage(r.Context(), req.ImageBase64, nil)
	respondJSON(w, http.StatusOK, result)
}

// POST /api/classify/text
func (s *server) handleClassifyText(w http.ResponseWriter, r *http.Request) {
	var req classifyTextRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBody)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		httpError(w, http.StatusBadRequest, "text is required")
		return
	}

	result := s.classifier.ClassifyText(r.Context(), req.Text, nil)
	respondJSON(w, http.StatusOK, result)
}

// GET /healthz
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
