package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"familyphotos/internal/models"
	"familyphotos/internal/service"
)

// FamilyHandler handles the membership list and invitations
type FamilyHandler struct {
	familyService *service.FamilyService
	logger        *zap.Logger
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, logger *zap.Logger) *FamilyHandler {
	return &FamilyHandler{familyService: familyService, logger: logger}
}

type inviteRequest struct {
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

// List returns every family member with counts by status
func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.familyService.List(r.Context(), actor(r))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Invite adds an email to the family and sends the invitation
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	summary, err := h.familyService.Invite(r.Context(), actor(r), req.Email, req.FullName)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, summary)
}

// Delete cancels a pending invitation or removes a member
func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	result, err := h.familyService.CancelOrRemove(r.Context(), actor(r), id)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Deactivate suspends an active member
func (h *FamilyHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.familyService.Deactivate)
}

// Reactivate restores a deactivated member
func (h *FamilyHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.familyService.Reactivate)
}

func (h *FamilyHandler) changeStatus(w http.ResponseWriter, r *http.Request,
	change func(ctx context.Context, caller, memberID int64) (*models.FamilyMember, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	member, err := change(r.Context(), actor(r), id)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// InvitationStatus lets the holder of an invitation token see whom the
// invitation is for. No session is required.
func (h *FamilyHandler) InvitationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.familyService.InvitationStatus(r.Context(), r.PathValue("token"))
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
