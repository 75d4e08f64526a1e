package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/service"
)

// PhotoHandler handles the photo feed
type PhotoHandler struct {
	photoService *service.PhotoService
	maxUpload    int64
	logger       *zap.Logger
}

// NewPhotoHandler creates a new photo handler. maxUpload is the largest image
// accepted, in bytes.
func NewPhotoHandler(photoService *service.PhotoService, maxUpload int64, logger *zap.Logger) *PhotoHandler {
	return &PhotoHandler{photoService: photoService, maxUpload: maxUpload, logger: logger}
}

type captionRequest struct {
	Caption *string `json:"caption"`
}

// List returns a page of photos, newest first
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", service.DefaultPageSize)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	page, err := h.photoService.List(r.Context(), actor(r), limit, offset)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Upload accepts a multipart form with a "file" part and an optional "caption"
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(w, r, "file", h.maxUpload)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	defer file.Close()

	in := service.UploadInput{
		OriginalFilename: header.Filename,
		Size:             header.Size,
		Body:             file,
	}
	if values, ok := r.MultipartForm.Value["caption"]; ok && len(values) > 0 {
		in.Caption = &values[0]
	}

	photo, err := h.photoService.Upload(r.Context(), actor(r), in)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}

// Get returns one photo with a fresh signed URL
func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	photo, err := h.photoService.Get(r.Context(), actor(r), id)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// UpdateCaption changes or clears the caption of the caller's photo
func (h *PhotoHandler) UpdateCaption(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	var req captionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	photo, err := h.photoService.UpdateCaption(r.Context(), actor(r), id, req.Caption)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// Delete removes the caller's photo
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	if err := h.photoService.Delete(r.Context(), actor(r), id); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// formFile parses a multipart body of at most maxBytes plus form overhead and
// returns the named file part
func formFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, apperr.Validation("Upload too large")
		}
		return nil, nil, apperr.Validation(ErrInvalidFormData)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, apperr.Validation(ErrMissingFile)
	}
	return file, header, nil
}
