package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"familyphotos/internal/gesture"
	"familyphotos/internal/service"
)

// ReactionHandler handles emoji reactions and tap gestures on photos
type ReactionHandler struct {
	reactionService *service.ReactionService
	logger          *zap.Logger
}

// NewReactionHandler creates a new reaction handler
func NewReactionHandler(reactionService *service.ReactionService, logger *zap.Logger) *ReactionHandler {
	return &ReactionHandler{reactionService: reactionService, logger: logger}
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

type gestureRequest struct {
	Inputs []gesture.Input `json:"inputs"`
}

// List returns the reaction summary of a photo and the caller's own reaction
func (h *ReactionHandler) List(w http.ResponseWriter, r *http.Request) {
	photoID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	state, err := h.reactionService.List(r.Context(), actor(r), photoID)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Toggle adds, replaces or removes the caller's reaction
func (h *ReactionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	photoID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	var req reactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	outcome, err := h.reactionService.Toggle(r.Context(), actor(r), photoID, req.Emoji)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

// Gesture replays recorded pointer inputs. A double tap toggles the heart.
func (h *ReactionHandler) Gesture(w http.ResponseWriter, r *http.Request) {
	photoID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	var req gestureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	result, err := h.reactionService.ApplyGesture(r.Context(), actor(r), photoID, req.Inputs)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
