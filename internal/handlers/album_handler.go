package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"familyphotos/internal/service"
)

// AlbumHandler handles albums and their public share links
type AlbumHandler struct {
	albumService *service.AlbumService
	logger       *zap.Logger
}

// NewAlbumHandler creates a new album handler
func NewAlbumHandler(albumService *service.AlbumService, logger *zap.Logger) *AlbumHandler {
	return &AlbumHandler{albumService: albumService, logger: logger}
}

type createAlbumRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	IsPublic    bool       `json:"is_public"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// optionalTime tells an absent field apart from an explicit null
type optionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *optionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

type updateAlbumRequest struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	IsPublic    *bool        `json:"is_public"`
	ExpiresAt   optionalTime `json:"expires_at"`
}

type addPhotoRequest struct {
	PhotoID int64 `json:"photo_id"`
}

type reorderRequest struct {
	PhotoIDs []int64 `json:"photo_ids"`
}

// List returns every album
func (h *AlbumHandler) List(w http.ResponseWriter, r *http.Request) {
	albums, err := h.albumService.List(r.Context(), actor(r))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"albums": albums})
}

// Create makes a new album with a fresh share token
func (h *AlbumHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAlbumRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	album, err := h.albumService.Create(r.Context(), actor(r), service.AlbumInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, album)
}

// Get returns an album with its photos in order
func (h *AlbumHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	detail, err := h.albumService.Get(r.Context(), actor(r), id)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// Update changes album fields. "expires_at": null removes the expiry.
func (h *AlbumHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	var req updateAlbumRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	update := service.AlbumUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if req.ExpiresAt.Set {
		update.ExpiresAt = req.ExpiresAt.Value
		update.ClearExpiry = req.ExpiresAt.Value == nil
	}

	album, err := h.albumService.Update(r.Context(), actor(r), id, update)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, album)
}

// Delete removes an album. Its photos stay in the feed.
func (h *AlbumHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	if err := h.albumService.Delete(r.Context(), actor(r), id); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddPhoto appends a photo to the end of an album
func (h *AlbumHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	var req addPhotoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	if req.PhotoID <= 0 {
		badRequest(w, "photo_id is required")
		return
	}

	entry, err := h.albumService.AddPhoto(r.Context(), actor(r), id, req.PhotoID)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// RemovePhoto takes a photo out of an album
func (h *AlbumHandler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	photoID, err := pathID(r, "photoID")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	if err := h.albumService.RemovePhoto(r.Context(), actor(r), id, photoID); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder sets the display order. photo_ids must list every photo in the album.
func (h *AlbumHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	detail, err := h.albumService.Reorder(r.Context(), actor(r), id, req.PhotoIDs)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// RotateShareToken replaces the share token, revoking the old link
func (h *AlbumHandler) RotateShareToken(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	album, err := h.albumService.RotateShareToken(r.Context(), actor(r), id)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, album)
}

// Shared serves a public album by share token. No session is required.
func (h *AlbumHandler) Shared(w http.ResponseWriter, r *http.Request) {
	album, err := h.albumService.ViewShared(r.Context(), r.PathValue("token"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, album)
}
