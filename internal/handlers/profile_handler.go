package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"familyphotos/internal/service"
)

// ProfileHandler handles the caller's own profile
type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, logger: logger}
}

type profileRequest struct {
	FullName *string `json:"full_name"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.Get(r.Context(), actor(r))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	profile, err := h.profileService.UpdateFullName(r.Context(), actor(r), req.FullName)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UploadAvatar replaces the profile picture from a multipart "avatar" part
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(w, r, "avatar", service.MaxAvatarSize)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	defer file.Close()

	profile, err := h.profileService.UploadAvatar(r.Context(), actor(r), header.Filename, header.Size, file)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
