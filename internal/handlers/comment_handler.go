package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"familyphotos/internal/service"
)

// CommentHandler handles photo comments
type CommentHandler struct {
	commentService *service.CommentService
	logger         *zap.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService *service.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{commentService: commentService, logger: logger}
}

type commentRequest struct {
	Text string `json:"text"`
}

// List returns the comments on a photo, oldest first
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	photoID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	comments, err := h.commentService.List(r.Context(), actor(r), photoID)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// Add posts a comment on a photo
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	photoID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	comment, err := h.commentService.Add(r.Context(), actor(r), photoID, req.Text)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// Edit changes the text of the caller's comment
func (h *CommentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	comment, err := h.commentService.Edit(r.Context(), actor(r), id, req.Text)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, comment)
}

// Delete removes the caller's comment
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	if err := h.commentService.Delete(r.Context(), actor(r), id); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
