package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/civicai/civicai/internal/classify"
	"github.com/civicai/civicai/internal/issues"
	"github.com/civicai/civicai/internal/photo"
	"github.com/civicai/civicai/internal/realtime"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxPhotoBody bounds raw photo uploads.
const maxPhotoBody = 16 << 20

// photoMaxDimension is the longest side stored photos are scaled down to.
const photoMaxDimension = 1600

type createIssueRequest struct {
	ReporterID   *uuid.UUID `json:"reporterId,omitempty"`
	Anonymous    bool       `json:"anonymous"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Priority     string     `json:"priority"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Address      string     `json:"address"`
	AICategory   string     `json:"aiCategory"`
	AIConfidence int        `json:"aiConfidence"`
}

// POST /api/issues
func (s *server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBody)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Description == "" {
		httpError(w, http.StatusBadRequest, "title and description are required")
		return
	}
	if !req.Anonymous && req.ReporterID == nil {
		httpError(w, http.StatusBadRequest, "reporterId is required for non-anonymous issues")
		return
	}

	input := issues.Input{
		ReporterID:   req.ReporterID,
		Anonymous:    req.Anonymous,
		Title:        req.Title,
		Description:  req.Description,
		Category:     classify.MapCategory(req.Category),
		Priority:     issues.Priority(req.Priority),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Address:      req.Address,
		AICategory:   req.AICategory,
		AIConfidence: req.AIConfidence,
	}

	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	issue, err := s.store.Create(ctx, input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create issue")
		httpError(w, http.StatusInternalServerError, "failed to create issue")
		return
	}

	s.publish(realtime.EventIssueCreated, issue)
	respondJSON(w, http.StatusCreated, issue)
}

// GET /api/issues?category=&priority=&status=&limit=&offset=
func (s *server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	list, err := s.store.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list issues")
		httpError(w, http.StatusInternalServerError, "failed to list issues")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/issues/{id}
func (s *server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	issue, err := s.store.Get(ctx, id)
	if errors.Is(err, issues.ErrNotFound) {
		httpError(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch issue")
		httpError(w, http.StatusInternalServerError, "failed to fetch issue")
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

type updateIssueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// PATCH /api/issues/{id}
func (s *server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req updateIssueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBody)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := issues.Update{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Category != nil {
		c := classify.MapCategory(*req.Category)
		upd.Category = &c
	}
	if req.Priority != nil {
		p := issues.Priority(*req.Priority)
		if !p.IsValid() {
			httpError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		upd.Priority = &p
	}
	if req.Status != nil {
		st := issues.Status(*req.Status)
		if !st.IsValid() {
			httpError(w, http.StatusBadRequest, "invalid status")
			return
		}
		upd.Status = &st
	}

	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	issue, err := s.store.Update(ctx, id, upd)
	if errors.Is(err, issues.ErrNotFound) {
		httpError(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to update issue")
		httpError(w, http.StatusInternalServerError, "failed to update issue")
		return
	}

	s.publish(realtime.EventIssueUpdated, issue)
	respondJSON(w, http.StatusOK, issue)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// POST /api/issues/{id}/status
func (s *server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := issues.Status(req.Status)
	if !status.IsValid() {
		httpError(w, http.StatusBadRequest, "invalid status")
		return
	}

	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, issues.ErrNotFound) {
			httpError(w, http.StatusNotFound, "issue not found")
			return
		}
		log.Error().Err(err).Msg("Failed to update issue status")
		httpError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	issue, err := s.store.Get(ctx, id)
	if err == nil {
		s.publish(realtime.EventIssueStatusChanged, issue)
		respondJSON(w, http.StatusOK, issue)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// POST /api/issues/{id}/photos
func (s *server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	if s.photos == nil {
		httpError(w, http.StatusServiceUnavailable, "photo storage is not configured")
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPhotoBody))
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read photo body")
		return
	}
	if len(data) == 0 {
		httpError(w, http.StatusBadRequest, "photo body is empty")
		return
	}

	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	issue, err := s.store.Get(ctx, id)
	if errors.Is(err, issues.ErrNotFound) {
		httpError(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to fetch issue")
		return
	}

	scaled, err := photo.ScaleJPEG(data, photoMaxDimension)
	if err != nil {
		httpError(w, http.StatusBadRequest, "photo is not a valid JPEG")
		return
	}

	key, err := s.photos.Upload(ctx, id, len(issue.PhotoURLs), scaled)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upload photo")
		httpError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	urls := append(issue.PhotoURLs, key)
	updated, err := s.store.Update(ctx, id, issues.Update{PhotoURLs: &urls})
	if err != nil {
		log.Error().Err(err).Msg("Failed to record photo on issue")
		httpError(w, http.StatusInternalServerError, "failed to record photo")
		return
	}

	s.publish(realtime.EventIssueUpdated, updated)
	respondJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// GET /api/issues/{id}/photos/{index}
func (s *server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	if s.photos == nil {
		httpError(w, http.StatusServiceUnavailable, "photo storage is not configured")
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		httpError(w, http.StatusBadRequest, "invalid photo index")
		return
	}

	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	issue, err := s.store.Get(ctx, id)
	if errors.Is(err, issues.ErrNotFound) {
		httpError(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to fetch issue")
		return
	}
	if index >= len(issue.PhotoURLs) {
		httpError(w, http.StatusNotFound, "photo not found")
		return
	}

	url, err := s.photos.PresignURL(ctx, issue.PhotoURLs[index])
	if err != nil {
		log.Error().Err(err).Msg("Failed to presign photo URL")
		httpError(w, http.StatusInternalServerError, "failed to presign photo URL")
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GET /api/reporters/{id}/issues
func (s *server) handleReporterIssues(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	list, err := s.store.ListByReporter(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list reporter issues")
		httpError(w, http.StatusInternalServerError, "failed to list issues")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/stats
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := issues.WithTimeout(r.Context())
	defer cancel()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch stats")
		httpError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// publish sends an issue event to the realtime feed when one is configured.
// Feed failures never fail the request that triggered them.
func (s *server) publish(eventType realtime.EventType, issue *issues.Issue) {
	if s.feed == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.feed.Publish(ctx, eventType, issue)
}

// pathUUID extracts and parses a UUID path segment, responding with 400 on
// failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.UUID{}, false
	}
	return id, true
}

// parseFilter builds an issue Filter from query parameters.
func parseFilter(r *http.Request) (issues.Filter, error) {
	var filter issues.Filter
	q := r.URL.Query()

	if v := q.Get("category"); v != "" {
		c := classify.Category(v)
		if !c.IsValid() {
			return filter, errors.New("invalid category")
		}
		filter.Category = &c
	}
	if v := q.Get("priority"); v != "" {
		p := issues.Priority(v)
		if !p.IsValid() {
			return filter, errors.New("invalid priority")
		}
		filter.Priority = &p
	}
	if v := q.Get("status"); v != "" {
		st := issues.Status(v)
		if !st.IsValid() {
			return filter, errors.New("invalid status")
		}
		filter.Status = &st
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid offset")
		}
		filter.Offset = n
	}

	return filter, nil
}
