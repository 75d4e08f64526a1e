package service

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/gesture"
	"familyphotos/internal/metrics"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
)

const maxEmojiRunes = 8

var (
	ErrInvalidEmoji     = apperr.Validation("Reaction must be a single emoji")
	ErrReactionConflict = apperr.Conflict("Reaction changed at the same time, try again")
)

// ReactionState is everything the UI shows about reactions on one photo
type ReactionState struct {
	PhotoID   int64                  `json:"photo_id"`
	Summary   []models.ReactionCount `json:"summary"`
	Reactions []models.Reaction      `json:"reactions"`
	Mine      *string                `json:"mine,omitempty"`
}

// ToggleOutcome reports a toggle and the caller's reaction afterwards
type ToggleOutcome struct {
	Outcome  models.ReactionOutcome `json:"outcome"`
	Reaction *models.Reaction       `json:"reaction,omitempty"`
}

// GestureResult reports what a replayed pointer sequence did
type GestureResult struct {
	Gestures []string        `json:"gestures"`
	Toggles  []ToggleOutcome `json:"toggles"`
}

// ReactionService handles emoji reactions on photos
type ReactionService struct {
	reactions *repository.ReactionRepository
	photos    *repository.PhotoRepository
	gestures  gesture.Config
	logger    *zap.Logger
}

// NewReactionService creates a new reaction service
func NewReactionService(reactions *repository.ReactionRepository, photos *repository.PhotoRepository, gestures gesture.Config, logger *zap.Logger) *ReactionService {
	return &ReactionService{reactions: reactions, photos: photos, gestures: gestures, logger: logger}
}

func validEmoji(emoji string) bool {
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiRunes {
		return false
	}
	for _, r := range emoji {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Toggle sets, replaces or removes the actor's reaction on a photo
func (s *ReactionService) Toggle(ctx context.Context, actor, photoID int64, emoji string) (*ToggleOutcome, error) {
	emoji = strings.TrimSpace(emoji)
	if !validEmoji(emoji) {
		return nil, ErrInvalidEmoji
	}

	result, err := s.reactions.Toggle(ctx, actor, photoID, emoji)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrReactionConflict
		}
		return nil, internalErr("toggle reaction", err)
	}
	if result == nil {
		return nil, ErrPhotoNotFound
	}

	metrics.RecordReaction(string(result.Outcome))
	return &ToggleOutcome{Outcome: result.Outcome, Reaction: result.Reaction}, nil
}

// List returns the reaction summary for a photo and the actor's own reaction
func (s *ReactionService) List(ctx context.Context, actor, photoID int64) (*ReactionState, error) {
	photo, err := s.photos.Get(ctx, actor, photoID)
	if err != nil {
		return nil, internalErr("get photo", err)
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}

	reactions, err := s.reactions.ListForPhoto(ctx, actor, photoID)
	if err != nil {
		return nil, internalErr("list reactions", err)
	}
	summary, err := s.reactions.Summary(ctx, actor, photoID)
	if err != nil {
		return nil, internalErr("summarise reactions", err)
	}

	state := &ReactionState{PhotoID: photoID, Summary: summary, Reactions: reactions}
	for i := range reactions {
		if reactions[i].UserID == actor {
			state.Mine = &reactions[i].Emoji
			break
		}
	}
	return state, nil
}

// ApplyGesture classifies a recorded pointer sequence on a photo. Every
// double tap toggles the heart reaction; single taps and drags change nothing.
func (s *ReactionService) ApplyGesture(ctx context.Context, actor, photoID int64, inputs []gesture.Input) (*GestureResult, error) {
	events, err := gesture.Replay(s.gestures, inputs)
	if err != nil {
		return nil, apperr.Validation("Invalid pointer sequence").Wrap(err)
	}

	result := &GestureResult{Gestures: make([]string, 0, len(events)), Toggles: []ToggleOutcome{}}
	for _, ev := range events {
		result.Gestures = append(result.Gestures, ev.Outcome.String())
		if ev.Outcome != gesture.Double {
			continue
		}
		toggle, err := s.Toggle(ctx, actor, photoID, models.HeartEmoji)
		if err != nil {
			return nil, err
		}
		result.Toggles = append(result.Toggles, *toggle)
	}
	return result, nil
}
