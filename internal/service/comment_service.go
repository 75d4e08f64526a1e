package service

import (
	"context"

	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
	"familyphotos/internal/validation"
)

var (
	ErrCommentNotFound  = apperr.NotFound("Comment not found")
	ErrNotCommentAuthor = apperr.Forbidden("Only the author can change this comment")
)

// CommentService handles comments on photos
type CommentService struct {
	comments *repository.CommentRepository
	photos   *repository.PhotoRepository
	logger   *zap.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(comments *repository.CommentRepository, photos *repository.PhotoRepository, logger *zap.Logger) *CommentService {
	return &CommentService{comments: comments, photos: photos, logger: logger}
}

func cleanComment(text string) (string, error) {
	text = validation.SanitizeText(text)
	if err := validation.ValidateCommentText(text); err != nil {
		return "", invalid(err)
	}
	return text, nil
}

// Add posts a comment on a photo
func (s *CommentService) Add(ctx context.Context, actor, photoID int64, text string) (*models.Comment, error) {
	text, err := cleanComment(text)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PhotoID: photoID, Text: text}
	created, err := s.comments.Create(ctx, actor, comment)
	if err != nil {
		return nil, internalErr("add comment", err)
	}
	if !created {
		return nil, ErrPhotoNotFound
	}

	if stored, err := s.comments.Get(ctx, actor, comment.ID); err == nil && stored != nil {
		comment = stored
	}
	return comment, nil
}

// List returns a photo's comments, oldest first
func (s *CommentService) List(ctx context.Context, actor, photoID int64) ([]models.Comment, error) {
	photo, err := s.photos.Get(ctx, actor, photoID)
	if err != nil {
		return nil, internalErr("get photo", err)
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}

	comments, err := s.comments.ListForPhoto(ctx, actor, photoID)
	if err != nil {
		return nil, internalErr("list comments", err)
	}
	return comments, nil
}

func (s *CommentService) ownComment(ctx context.Context, actor, id int64) (*models.Comment, error) {
	comment, err := s.comments.Get(ctx, actor, id)
	if err != nil {
		return nil, internalErr("get comment", err)
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	if comment.UserID != actor {
		return nil, ErrNotCommentAuthor
	}
	return comment, nil
}

// Edit replaces the text of the actor's own comment
func (s *CommentService) Edit(ctx context.Context, actor, id int64, text string) (*models.Comment, error) {
	if _, err := s.ownComment(ctx, actor, id); err != nil {
		return nil, err
	}
	text, err := cleanComment(text)
	if err != nil {
		return nil, err
	}

	updated, err := s.comments.Update(ctx, actor, id, text)
	if err != nil {
		return nil, internalErr("edit comment", err)
	}
	if !updated {
		return nil, ErrCommentNotFound
	}

	comment, err := s.comments.Get(ctx, actor, id)
	if err != nil {
		return nil, internalErr("get comment", err)
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

// Delete removes the actor's own comment
func (s *CommentService) Delete(ctx context.Context, actor, id int64) error {
	if _, err := s.ownComment(ctx, actor, id); err != nil {
		return err
	}
	deleted, err := s.comments.Delete(ctx, actor, id)
	if err != nil {
		return internalErr("delete comment", err)
	}
	if !deleted {
		return ErrCommentNotFound
	}
	s.logger.Debug("comment deleted", zap.Int64("comment_id", id), zap.Int64("user_id", actor))
	return nil
}
